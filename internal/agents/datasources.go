package agents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DataSourcesClient calls the data-source aggregation agent. Its /chat
// endpoint streams the reply as plain-text chunks over one GET request.
type DataSourcesClient struct {
	url        string
	httpClient *http.Client
}

// NewDataSourcesClient creates a client for the given /chat endpoint URL.
func NewDataSourcesClient(url string) *DataSourcesClient {
	return &DataSourcesClient{url: url, httpClient: &http.Client{}}
}

// Ask streams the agent's reply. After each received chunk, onChunk is
// called with the full text accumulated so far, so the caller can
// re-render a growing partial message. onChunk may be nil. The complete
// reply is returned once the stream ends.
func (c *DataSourcesClient) Ask(ctx context.Context, query string, onChunk func(accumulated string)) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?query="+url.QueryEscape(query), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server error: %d", resp.StatusCode)
	}

	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
			if onChunk != nil {
				onChunk(b.String())
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return b.String(), fmt.Errorf("stream interrupted: %w", err)
		}
	}
	return b.String(), nil
}
