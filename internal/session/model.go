// Package session owns the persisted conversation threads: the session
// repository, the current-session selector, and the one-shot migration
// from the pre-session storage layout.
package session

import (
	"sort"
	"time"
)

// Mode identifies which backend agent a message list belongs to.
// The set is closed; every Mode passed to the repository must be one of
// the constants below.
type Mode string

const (
	ModeRAG         Mode = "rag"
	ModeDataSources Mode = "dataSources"
	ModeQuant       Mode = "quantAgent"
)

// Modes lists all supported modes in merge order.
var Modes = []Mode{ModeRAG, ModeDataSources, ModeQuant}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeRAG, ModeDataSources, ModeQuant:
		return true
	}
	return false
}

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one turn in a conversation. Timestamp is Unix milliseconds
// and is the sole ordering key. Partial marks an in-progress streaming
// placeholder; the repository never persists partial messages.
type Message struct {
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Partial   bool   `json:"partial,omitempty"`
}

// Session is one persisted conversation thread. Each mode has its own
// message list; Messages is the derived union of all of them, sorted by
// timestamp, recomputed on every mutation.
type Session struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	RAGMessages         []Message `json:"ragMessages"`
	DataSourcesMessages []Message `json:"dataSourcesMessages"`
	QuantMessages       []Message `json:"quantMessages"`
	Messages            []Message `json:"messages"`
	CreatedAt           int64     `json:"createdAt"`
	LastUpdated         int64     `json:"lastUpdated"`
}

// modeList returns a pointer to the message list backing the given mode.
// The switch is exhaustive over Modes; an unknown mode returns nil and
// callers must check Valid first.
func (s *Session) modeList(m Mode) *[]Message {
	switch m {
	case ModeRAG:
		return &s.RAGMessages
	case ModeDataSources:
		return &s.DataSourcesMessages
	case ModeQuant:
		return &s.QuantMessages
	}
	return nil
}

// ModeMessages returns a copy of the message list for the given mode.
func (s *Session) ModeMessages(m Mode) []Message {
	list := s.modeList(m)
	if list == nil {
		return nil
	}
	return copyMessages(*list)
}

// recompute rebuilds the derived all-messages view: the union of every
// mode's list sorted by timestamp ascending, ties keeping their original
// relative order (mode order, then list order).
func (s *Session) recompute() {
	merged := make([]Message, 0, len(s.RAGMessages)+len(s.DataSourcesMessages)+len(s.QuantMessages))
	for _, m := range Modes {
		merged = append(merged, *s.modeList(m)...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	s.Messages = merged
}

// clone deep-copies the session so callers can treat the result as an
// immutable snapshot.
func (s *Session) clone() Session {
	out := *s
	out.RAGMessages = copyMessages(s.RAGMessages)
	out.DataSourcesMessages = copyMessages(s.DataSourcesMessages)
	out.QuantMessages = copyMessages(s.QuantMessages)
	out.Messages = copyMessages(s.Messages)
	return out
}

func copyMessages(in []Message) []Message {
	out := make([]Message, len(in))
	copy(out, in)
	return out
}

func nowMillis(now func() time.Time) int64 {
	return now().UnixMilli()
}
