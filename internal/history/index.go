// Package history provides keyword search across the full message
// history of every session. The index lives in memory and is rebuilt
// from the repository on demand.
package history

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"marlin/internal/session"
)

// Hit is one matching message.
type Hit struct {
	SessionID   string
	SessionName string
	Mode        session.Mode
	Sender      session.Sender
	Text        string
	Score       float64
}

// Index is a BM25 keyword index over session messages.
type Index struct {
	index bleve.Index
}

// New creates an empty in-memory index.
func New() (*Index, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	return &Index{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	msgMapping := bleve.NewDocumentMapping()

	// Exact-match fields
	for _, field := range []string{"session_id", "session_name", "mode", "sender"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		fm.Index = true
		msgMapping.AddFieldMappingsAt(field, fm)
	}

	// The searchable message body
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = true
	textField.Index = true
	msgMapping.AddFieldMappingsAt("text", textField)

	indexMapping.DefaultMapping = msgMapping
	return indexMapping
}

// Rebuild replaces the index contents with the messages of the given
// sessions. Partial messages are skipped.
func (ix *Index) Rebuild(sessions []session.Session) error {
	old := ix.index
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}

	batch := fresh.NewBatch()
	for _, s := range sessions {
		for _, mode := range session.Modes {
			for i, msg := range s.ModeMessages(mode) {
				if msg.Partial {
					continue
				}
				docID := fmt.Sprintf("%s/%s/%d", s.ID, mode, i)
				doc := map[string]interface{}{
					"session_id":   s.ID,
					"session_name": s.Name,
					"mode":         string(mode),
					"sender":       string(msg.Sender),
					"text":         msg.Text,
				}
				if err := batch.Index(docID, doc); err != nil {
					return fmt.Errorf("failed to index message: %w", err)
				}
			}
		}
	}
	if err := fresh.Batch(batch); err != nil {
		return fmt.Errorf("failed to apply index batch: %w", err)
	}

	ix.index = fresh
	if old != nil {
		old.Close()
	}
	return nil
}

// Search returns up to limit messages matching the query, best first.
func (ix *Index) Search(query string, limit int) ([]Hit, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	req.Fields = []string{"session_id", "session_name", "mode", "sender", "text"}

	result, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hit := Hit{Score: h.Score}
		if v, ok := h.Fields["session_id"].(string); ok {
			hit.SessionID = v
		}
		if v, ok := h.Fields["session_name"].(string); ok {
			hit.SessionName = v
		}
		if v, ok := h.Fields["mode"].(string); ok {
			hit.Mode = session.Mode(v)
		}
		if v, ok := h.Fields["sender"].(string); ok {
			hit.Sender = session.Sender(v)
		}
		if v, ok := h.Fields["text"].(string); ok {
			hit.Text = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close releases the index.
func (ix *Index) Close() error {
	return ix.index.Close()
}
