package agents

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// QuantResponse is the wire shape of the quantitative agent's /analyze
// response.
type QuantResponse struct {
	Answer  string   `json:"answer"`
	Ticker  string   `json:"ticker,omitempty"`
	Metrics []Metric `json:"metrics,omitempty"`
}

// Metric is one named figure returned by the quantitative agent.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// QuantClient calls the quantitative analysis agent.
type QuantClient struct {
	url        string
	httpClient *http.Client
}

// NewQuantClient creates a client for the given /analyze endpoint URL.
func NewQuantClient(url string) *QuantClient {
	return &QuantClient{url: url, httpClient: &http.Client{}}
}

// Ask sends the user's query for analysis.
func (c *QuantClient) Ask(ctx context.Context, query string) (*QuantResponse, error) {
	var resp QuantResponse
	if err := postJSON(ctx, c.httpClient, c.url, map[string]string{"query": query}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Text renders the response the way the chat shows it: the answer,
// followed by an optional metric list.
func (r *QuantResponse) Text() string {
	var b strings.Builder
	b.WriteString(r.Answer)

	if len(r.Metrics) > 0 {
		b.WriteString("\n\n**Key Metrics:**\n")
		for _, m := range r.Metrics {
			fmt.Fprintf(&b, "\n- %s: %s", m.Label, m.Value)
		}
	}
	return b.String()
}
