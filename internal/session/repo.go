package session

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"marlin/internal/storage"
)

// Storage keys. The legacy keys are consumed only by the migration
// routine and never written after it has run.
const (
	sessionsKey = "chatSessions"
	currentKey  = "currentSessionId"

	legacyRAGKey       = "ragMessages"
	legacyIngestionKey = "ingestionMessages"
)

// ErrNotFound is returned by operations whose target session id does not
// resolve to an existing session.
var ErrNotFound = errors.New("session: not found")

// Repository owns the canonical in-memory session list and synchronizes
// every mutation to the backing store. The store is read once at
// construction and written after every mutation; it is never treated as
// a second source of truth while the repository is live.
//
// Persistence is best-effort: a failed write is logged and the in-memory
// state stays authoritative. Invalid operation targets are reported as
// ErrNotFound, never as a panic.
//
// Safe for concurrent use from the streaming goroutine and the REPL loop.
type Repository struct {
	mu       sync.Mutex
	store    storage.Store
	sessions []*Session
	now      func() time.Time
}

// NewRepository loads the persisted session list from store. A corrupt
// or absent list yields an empty repository rather than an error.
func NewRepository(store storage.Store) *Repository {
	r := &Repository{store: store, now: time.Now}

	var sessions []*Session
	if _, err := store.Read(sessionsKey, &sessions); err != nil {
		log.Printf("⚠️  Failed to decode persisted sessions, starting empty: %v", err)
		sessions = nil
	}
	r.sessions = sessions
	return r
}

// List returns a snapshot of all sessions in stored order (newest
// created first). Callers needing recency order should sort on
// LastUpdated.
func (r *Repository) List() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.clone())
	}
	return out
}

// Len returns the number of sessions.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Create inserts a new empty session at the head of the list, persists,
// and returns it.
func (r *Repository) Create() Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := nowMillis(r.now)
	s := &Session{
		ID:                  uuid.NewString(),
		Name:                PlaceholderName,
		RAGMessages:         []Message{},
		DataSourcesMessages: []Message{},
		QuantMessages:       []Message{},
		Messages:            []Message{},
		CreatedAt:           now,
		LastUpdated:         now,
	}
	r.sessions = append([]*Session{s}, r.sessions...)
	r.persistLocked()
	return s.clone()
}

// Get returns the session with the given id.
func (r *Repository) Get(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.findLocked(id)
	if s == nil {
		return Session{}, ErrNotFound
	}
	return s.clone(), nil
}

// UpdateMessages replaces the named mode's message list wholesale with
// messages (the caller passes the full desired list, not a delta). A nil
// list is normalized to empty, and partial-flagged streaming
// placeholders are dropped: only finalized turns are persisted. The
// derived view is remerged, the name auto-derived if still the
// placeholder, and LastUpdated bumped.
func (r *Repository) UpdateMessages(id string, messages []Message, mode Mode) (Session, error) {
	if !mode.Valid() {
		return Session{}, fmt.Errorf("session: unknown mode %q", mode)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.findLocked(id)
	if s == nil {
		return Session{}, ErrNotFound
	}

	*s.modeList(mode) = normalizeMessages(messages)
	s.recompute()

	if s.Name == PlaceholderName && len(s.Messages) > 0 {
		s.Name = deriveName(s.Messages)
	}
	s.LastUpdated = nowMillis(r.now)

	r.persistLocked()
	return s.clone(), nil
}

// Rename sets the session's display name. A name that is empty after
// trimming surrounding whitespace makes the call a no-op.
func (r *Repository) Rename(id, newName string) error {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.findLocked(id)
	if s == nil {
		return ErrNotFound
	}

	s.Name = trimmed
	s.LastUpdated = nowMillis(r.now)
	r.persistLocked()
	return nil
}

// Delete removes the session with the given id. Reassignment of the
// current-session pointer is the Selector's job; see Selector.Delete.
func (r *Repository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.sessions {
		if s.ID == id {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			r.persistLocked()
			return nil
		}
	}
	return ErrNotFound
}

// Duplicate deep-copies a session under a new id and a " (Copy)" name
// suffix, inserted as the new head. The copy is not made current.
func (r *Repository) Duplicate(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	src := r.findLocked(id)
	if src == nil {
		return Session{}, ErrNotFound
	}

	now := nowMillis(r.now)
	dup := src.clone()
	dup.ID = uuid.NewString()
	dup.Name = src.Name + " (Copy)"
	dup.CreatedAt = now
	dup.LastUpdated = now

	r.sessions = append([]*Session{&dup}, r.sessions...)
	r.persistLocked()
	return dup.clone(), nil
}

// Adopt inserts an externally sourced session (an imported archive)
// under a fresh id as the new head. Message lists are normalized and the
// derived view rebuilt, so a hand-edited archive cannot smuggle partial
// messages or a stale merge order into the repository.
func (r *Repository) Adopt(s Session) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	adopted := s.clone()
	adopted.ID = uuid.NewString()
	for _, m := range Modes {
		*adopted.modeList(m) = normalizeMessages(*adopted.modeList(m))
	}
	adopted.recompute()
	if adopted.Name == "" {
		adopted.Name = deriveName(adopted.Messages)
	}
	adopted.LastUpdated = nowMillis(r.now)

	r.sessions = append([]*Session{&adopted}, r.sessions...)
	r.persistLocked()
	return adopted.clone()
}

// Clear removes every session and the persisted list.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = nil
	if err := r.store.Delete(sessionsKey); err != nil {
		log.Printf("⚠️  Failed to clear persisted sessions: %v", err)
	}
}

// mostRecentlyUpdated returns the session with the highest LastUpdated,
// or false when the repository is empty.
func (r *Repository) mostRecentlyUpdated() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *Session
	for _, s := range r.sessions {
		if best == nil || s.LastUpdated > best.LastUpdated {
			best = s
		}
	}
	if best == nil {
		return Session{}, false
	}
	return best.clone(), true
}

func (r *Repository) findLocked(id string) *Session {
	for _, s := range r.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (r *Repository) persistLocked() {
	if err := r.store.Write(sessionsKey, r.sessions); err != nil {
		log.Printf("⚠️  Failed to persist sessions: %v", err)
	}
}

// normalizeMessages defensively copies the caller's list, treating nil
// as empty and dropping partial streaming placeholders.
func normalizeMessages(in []Message) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		if m.Partial {
			continue
		}
		out = append(out, m)
	}
	return out
}
