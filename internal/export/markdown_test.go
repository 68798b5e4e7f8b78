package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marlin/internal/agents"
	"marlin/internal/session"
)

func TestSessionHistory(t *testing.T) {
	dir := t.TempDir()
	s := session.Session{
		ID:   "abc",
		Name: "Rates discussion",
		Messages: []session.Message{
			{Sender: session.SenderUser, Text: "What moved rates?", Timestamp: 1},
			{Sender: session.SenderAssistant, Text: "The Fed held steady.", Timestamp: 2},
			{Sender: session.SenderAssistant, Text: "streaming...", Timestamp: 3, Partial: true},
		},
	}

	path, err := SessionHistory(dir, s, session.ModeRAG)
	if err != nil {
		t.Fatalf("SessionHistory failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "rag_chat_history_") {
		t.Errorf("unexpected filename: %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "# Chat History — Rates discussion") {
		t.Errorf("missing title: %s", content)
	}
	if !strings.Contains(content, "## Message 1 — User") {
		t.Errorf("missing user message heading: %s", content)
	}
	if !strings.Contains(content, "## Message 2 — AI Assistant") {
		t.Errorf("missing assistant message heading: %s", content)
	}
	if strings.Contains(content, "streaming...") {
		t.Error("partial messages must be excluded from exports")
	}
}

func TestSessionHistoryEmpty(t *testing.T) {
	path, err := SessionHistory(t.TempDir(), session.Session{ID: "x", Name: "Empty"}, session.ModeQuant)
	if err != nil {
		t.Fatalf("SessionHistory failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "_No messages._") {
		t.Errorf("empty session should note the absence of messages: %s", data)
	}
}

func TestSessionHistoryUnknownMode(t *testing.T) {
	if _, err := SessionHistory(t.TempDir(), session.Session{}, session.Mode("bogus")); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestRAGReport(t *testing.T) {
	retries := 2
	env := agents.RAGEnvelope{
		Answer: agents.RAGAnswer{
			Messages: []agents.RAGMessage{
				{Type: "human", Content: "q"},
				{Type: "ai", Content: "final answer"},
			},
			IntermediateMessage: "working on it",
			Documents: []agents.RAGDocument{
				{PageContent: "chunk text", Metadata: map[string]any{"source_file": "a.pdf"}},
			},
			RetryCount: &retries,
			ToolCalls: []agents.RAGToolCall{
				{Tool: "retriever", Input: map[string]any{"k": 5}},
			},
		},
	}

	path, err := RAGReport(t.TempDir(), "q", env)
	if err != nil {
		t.Fatalf("RAGReport failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "rag_response_") {
		t.Errorf("unexpected filename: %s", filepath.Base(path))
	}

	data, _ := os.ReadFile(path)
	content := string(data)

	for _, want := range []string{
		"# API Response Report",
		"**Query:** q",
		"## Messages",
		"### Message 2 (ai)",
		"## Intermediate Message",
		"## Documents",
		"source_file",
		"## Retry Count",
		"## Tool Calls",
		"### Call 1 — retriever",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("report missing %q:\n%s", want, content)
		}
	}
}
