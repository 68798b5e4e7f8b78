// Package export writes chat transcripts and raw agent responses to
// timestamped markdown files for offline review.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"marlin/internal/agents"
	"marlin/internal/session"
)

const fileTimeLayout = "2006-01-02_15-04-05"

// SessionHistory writes the session's merged transcript for the given
// mode to {mode}_chat_history_{timestamp}.md under dir and returns the
// file path. In-flight partial messages are excluded.
func SessionHistory(dir string, s session.Session, mode session.Mode) (string, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("unknown mode: %s", mode)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Chat History — %s\n\n", s.Name)
	fmt.Fprintf(&b, "**Session ID:** %s\n", s.ID)
	fmt.Fprintf(&b, "**Mode:** %s\n", mode)
	fmt.Fprintf(&b, "**Exported:** %s\n\n", time.Now().Format(time.RFC3339))
	b.WriteString("---\n")

	n := 0
	for _, msg := range s.Messages {
		if msg.Partial {
			continue
		}
		n++
		fmt.Fprintf(&b, "\n## Message %d — %s\n\n", n, senderLabel(msg.Sender))
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}
	if n == 0 {
		b.WriteString("\n_No messages._\n")
	}

	name := fmt.Sprintf("%s_chat_history_%s.md", mode, time.Now().Format(fileTimeLayout))
	return writeFile(dir, name, b.String())
}

// RAGReport writes the full raw retrieval response as a structured
// report to rag_response_{timestamp}.md under dir and returns the file
// path.
func RAGReport(dir, query string, env agents.RAGEnvelope) (string, error) {
	var b strings.Builder
	b.WriteString("# API Response Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Mode:** %s\n", session.ModeRAG)
	fmt.Fprintf(&b, "**Query:** %s\n\n", query)
	b.WriteString("---\n")

	if len(env.Answer.Messages) > 0 {
		b.WriteString("\n## Messages\n")
		for i, m := range env.Answer.Messages {
			fmt.Fprintf(&b, "\n### Message %d (%s)\n\n", i+1, m.Type)
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
	}

	if env.Answer.IntermediateMessage != "" {
		b.WriteString("\n## Intermediate Message\n\n")
		b.WriteString(env.Answer.IntermediateMessage)
		b.WriteString("\n")
	}

	if len(env.Answer.Documents) > 0 {
		b.WriteString("\n## Documents\n")
		for i, doc := range env.Answer.Documents {
			fmt.Fprintf(&b, "\n### Document %d\n\n", i+1)
			b.WriteString(doc.PageContent)
			b.WriteString("\n")
			if len(doc.Metadata) > 0 {
				meta, err := json.MarshalIndent(doc.Metadata, "", "  ")
				if err == nil {
					fmt.Fprintf(&b, "\n```json\n%s\n```\n", meta)
				}
			}
		}
	}

	if env.Answer.RetryCount != nil {
		fmt.Fprintf(&b, "\n## Retry Count\n\n%d\n", *env.Answer.RetryCount)
	}

	if len(env.Answer.ToolCalls) > 0 {
		b.WriteString("\n## Tool Calls\n")
		for i, tc := range env.Answer.ToolCalls {
			fmt.Fprintf(&b, "\n### Call %d — %s\n", i+1, tc.Tool)
			if tc.Input != nil {
				if in, err := json.MarshalIndent(tc.Input, "", "  "); err == nil {
					fmt.Fprintf(&b, "\nInput:\n```json\n%s\n```\n", in)
				}
			}
			if tc.Output != nil {
				if out, err := json.MarshalIndent(tc.Output, "", "  "); err == nil {
					fmt.Fprintf(&b, "\nOutput:\n```json\n%s\n```\n", out)
				}
			}
		}
	}

	name := fmt.Sprintf("rag_response_%s.md", time.Now().Format(fileTimeLayout))
	return writeFile(dir, name, b.String())
}

func senderLabel(s session.Sender) string {
	if s == session.SenderUser {
		return "User"
	}
	return "AI Assistant"
}

func writeFile(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
