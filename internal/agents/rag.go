package agents

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// RAGEnvelope is the wire shape of the retrieval agent's /ask response.
// Document metadata stays schemaless because the backend attaches
// source-dependent fields; the report exporter dumps it verbatim.
type RAGEnvelope struct {
	Answer RAGAnswer `json:"answer"`
}

// RAGAnswer carries the agent graph's output state.
type RAGAnswer struct {
	Messages            []RAGMessage  `json:"messages"`
	IntermediateMessage string        `json:"Intermediate_message"`
	Documents           []RAGDocument `json:"documents"`
	RetryCount          *int          `json:"retry_count,omitempty"`
	ToolCalls           []RAGToolCall `json:"tool_calls,omitempty"`
}

// RAGMessage is one message in the agent graph's transcript.
type RAGMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// RAGDocument is one retrieved source chunk.
type RAGDocument struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
	Type        string         `json:"type,omitempty"`
}

// RAGToolCall records one tool invocation made by the agent graph.
type RAGToolCall struct {
	Tool   string `json:"tool"`
	Input  any    `json:"input,omitempty"`
	Output any    `json:"output,omitempty"`
}

// Citation is one validated source reference extracted from the
// response's documents.
type Citation struct {
	File  string
	Page  int
	Image string
}

// RAGResult is the parsed form of one retrieval exchange: the final
// answer with related questions split out and citations filtered down
// to usable sources. Envelope retains the raw response for report
// export.
type RAGResult struct {
	Answer    string
	Related   []string
	Citations []Citation
	Envelope  RAGEnvelope
}

// RAGClient calls the Secondary Research retrieval agent.
type RAGClient struct {
	url        string
	httpClient *http.Client
}

// NewRAGClient creates a client for the given /ask endpoint URL.
func NewRAGClient(url string) *RAGClient {
	return &RAGClient{url: url, httpClient: &http.Client{}}
}

// Ask sends the user's query and parses the response.
func (c *RAGClient) Ask(ctx context.Context, query string) (*RAGResult, error) {
	var env RAGEnvelope
	if err := postJSON(ctx, c.httpClient, c.url, map[string]string{"query": query}, &env); err != nil {
		return nil, err
	}
	return parseRAGEnvelope(env), nil
}

// Text renders the result the way the chat shows it: the answer,
// followed by optional related-question and citation sections.
func (r *RAGResult) Text() string {
	var b strings.Builder
	b.WriteString(r.Answer)

	if len(r.Related) > 0 {
		b.WriteString("\n\n**Related Questions:**\n")
		b.WriteString(strings.Join(r.Related, "\n"))
	}

	if len(r.Citations) > 0 {
		b.WriteString("\n\n**Citations:**\n")
		for i, c := range r.Citations {
			fmt.Fprintf(&b, "\n%d. %s", i+1, c.File)
			if c.Page > 0 {
				fmt.Fprintf(&b, " (Page %d)", c.Page)
			}
			if c.Image != "" {
				fmt.Fprintf(&b, "\n   📷 Image: %s", c.Image)
			}
		}
	}
	return b.String()
}
