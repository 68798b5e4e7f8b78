package session

import (
	"log"
	"sync"

	"marlin/internal/storage"
)

// Selector tracks which session is current. The choice is persisted
// under its own key so it survives restarts, as long as the referenced
// session still exists. At most one session is current at a time.
type Selector struct {
	mu        sync.Mutex
	store     storage.Store
	repo      *Repository
	currentID string
}

// NewSelector loads the persisted current-session id. A corrupt value
// falls back to no selection.
func NewSelector(repo *Repository) *Selector {
	s := &Selector{store: repo.store, repo: repo}

	var id string
	if _, err := repo.store.Read(currentKey, &id); err != nil {
		log.Printf("⚠️  Failed to decode current session id, clearing selection: %v", err)
		id = ""
	}
	s.currentID = id
	return s
}

// SwitchTo makes the given session current. Returns ErrNotFound (and
// leaves the selection untouched) when id does not resolve.
func (s *Selector) SwitchTo(id string) (Session, error) {
	sess, err := s.repo.Get(id)
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	s.currentID = id
	s.persistLocked()
	s.mu.Unlock()
	return sess, nil
}

// CreateAndSwitch creates a fresh session and makes it current.
func (s *Selector) CreateAndSwitch() Session {
	sess := s.repo.Create()

	s.mu.Lock()
	s.currentID = sess.ID
	s.persistLocked()
	s.mu.Unlock()
	return sess
}

// Current resolves the current session against the live repository on
// every call, so repository mutations are immediately visible. A
// persisted id pointing at a since-deleted session resolves to absent;
// the caller decides whether to prompt for a new session.
func (s *Selector) Current() (Session, bool) {
	s.mu.Lock()
	id := s.currentID
	s.mu.Unlock()

	if id == "" {
		return Session{}, false
	}
	sess, err := s.repo.Get(id)
	if err != nil {
		return Session{}, false
	}
	return sess, true
}

// CurrentID returns the raw current-session id, which may be stale.
func (s *Selector) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Delete removes the session. When the deleted session was current, the
// most-recently-updated remaining session becomes current; when none
// remain, the selection (and its persisted record) is cleared.
func (s *Selector) Delete(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentID != id {
		return nil
	}
	if next, ok := s.repo.mostRecentlyUpdated(); ok {
		s.currentID = next.ID
		s.persistLocked()
		return nil
	}
	s.clearLocked()
	return nil
}

// Reset removes every session and clears the selection.
func (s *Selector) Reset() {
	s.repo.Clear()

	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
}

func (s *Selector) persistLocked() {
	if err := s.store.Write(currentKey, s.currentID); err != nil {
		log.Printf("⚠️  Failed to persist current session id: %v", err)
	}
}

func (s *Selector) clearLocked() {
	s.currentID = ""
	if err := s.store.Delete(currentKey); err != nil {
		log.Printf("⚠️  Failed to clear current session id: %v", err)
	}
}
