// Package archive exports sessions to standalone JSON files and
// imports them back, validating imported files against a schema before
// touching the repository.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"marlin/internal/session"
)

const envelopeVersion = 1

// envelopeSchema validates the structural shape of an archive file. It
// is deliberately strict about the envelope and loose about message
// contents so older exports keep importing.
const envelopeSchema = `{
	"type": "object",
	"required": ["version", "exportedAt", "session"],
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"exportedAt": {"type": "string"},
		"session": {
			"type": "object",
			"required": ["id", "name"],
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"name": {"type": "string"},
				"ragMessages": {"$ref": "#/definitions/messages"},
				"dataSourcesMessages": {"$ref": "#/definitions/messages"},
				"quantMessages": {"$ref": "#/definitions/messages"},
				"createdAt": {"type": "integer"},
				"lastUpdated": {"type": "integer"}
			}
		}
	},
	"definitions": {
		"messages": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["sender", "text", "timestamp"],
				"properties": {
					"sender": {"type": "string", "enum": ["user", "assistant"]},
					"text": {"type": "string"},
					"timestamp": {"type": "integer"}
				}
			}
		}
	}
}`

// Envelope wraps an exported session with format metadata.
type Envelope struct {
	Version    int             `json:"version"`
	ExportedAt string          `json:"exportedAt"`
	Session    session.Session `json:"session"`
}

// Export writes the session to marlin_session_{timestamp}.json under
// dir and returns the file path.
func Export(dir string, s session.Session) (string, error) {
	env := Envelope{
		Version:    envelopeVersion,
		ExportedAt: time.Now().Format(time.RFC3339),
		Session:    s,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal archive: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	name := fmt.Sprintf("marlin_session_%s.json", time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	return path, nil
}

// Import reads and validates an archive file, returning the contained
// session. The caller adopts it into the repository, which assigns a
// fresh id.
func Import(path string) (session.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to read archive: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(envelopeSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return session.Session{}, fmt.Errorf("archive validation failed: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return session.Session{}, fmt.Errorf("invalid archive file: %s", strings.Join(msgs, "; "))
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return session.Session{}, fmt.Errorf("failed to decode archive: %w", err)
	}
	return env.Session, nil
}
