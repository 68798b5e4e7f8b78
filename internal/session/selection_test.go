package session

import (
	"errors"
	"testing"

	"marlin/internal/storage"
)

func newTestSelector(t *testing.T) (*Selector, *Repository, *storage.MemoryStore) {
	t.Helper()
	repo, store := newTestRepo(t)
	return NewSelector(repo), repo, store
}

func TestCreateAndSwitch(t *testing.T) {
	sel, _, _ := newTestSelector(t)

	if _, ok := sel.Current(); ok {
		t.Fatal("expected no current session initially")
	}

	s := sel.CreateAndSwitch()
	cur, ok := sel.Current()
	if !ok {
		t.Fatal("expected a current session after CreateAndSwitch")
	}
	if cur.ID != s.ID {
		t.Errorf("expected current %s, got %s", s.ID, cur.ID)
	}
}

func TestSwitchToUnknownIsNoOp(t *testing.T) {
	sel, _, _ := newTestSelector(t)
	s := sel.CreateAndSwitch()

	if _, err := sel.SwitchTo("does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	cur, ok := sel.Current()
	if !ok || cur.ID != s.ID {
		t.Error("failed switch must leave the selection untouched")
	}
}

func TestCurrentSeesLiveRepositoryState(t *testing.T) {
	sel, repo, _ := newTestSelector(t)
	s := sel.CreateAndSwitch()

	if err := repo.Rename(s.ID, "renamed elsewhere"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	cur, ok := sel.Current()
	if !ok {
		t.Fatal("expected current session")
	}
	if cur.Name != "renamed elsewhere" {
		t.Errorf("Current returned a stale snapshot: %q", cur.Name)
	}
}

func TestDeleteReassignsCurrent(t *testing.T) {
	sel, repo, _ := newTestSelector(t)

	older := sel.CreateAndSwitch()
	newer := sel.CreateAndSwitch()

	// Touch the older session so it is the most recently updated
	if _, err := repo.UpdateMessages(older.ID, []Message{
		{Sender: SenderUser, Text: "keep me", Timestamp: 1},
	}, ModeRAG); err != nil {
		t.Fatalf("UpdateMessages failed: %v", err)
	}

	if err := sel.Delete(newer.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	cur, ok := sel.Current()
	if !ok {
		t.Fatal("expected a replacement current session")
	}
	if cur.ID != older.ID {
		t.Errorf("expected most-recently-updated session %s, got %s", older.ID, cur.ID)
	}

	// Deleting the last session clears the selection entirely
	if err := sel.Delete(older.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := sel.Current(); ok {
		t.Error("expected no current session after deleting the last one")
	}

	if err := sel.Delete("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteNonCurrentKeepsSelection(t *testing.T) {
	sel, _, _ := newTestSelector(t)

	other := sel.CreateAndSwitch()
	current := sel.CreateAndSwitch()

	if err := sel.Delete(other.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	cur, ok := sel.Current()
	if !ok || cur.ID != current.ID {
		t.Error("deleting a non-current session must not move the selection")
	}
}

func TestSelectionSurvivesReload(t *testing.T) {
	sel, repo, store := newTestSelector(t)
	s := sel.CreateAndSwitch()

	reloadedRepo := NewRepository(store)
	reloaded := NewSelector(reloadedRepo)
	cur, ok := reloaded.Current()
	if !ok || cur.ID != s.ID {
		t.Errorf("expected persisted selection %s to survive reload", s.ID)
	}

	// A persisted id pointing at a since-deleted session resolves to absent
	if err := repo.Delete(s.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	staleRepo := NewRepository(store)
	stale := NewSelector(staleRepo)
	if _, ok := stale.Current(); ok {
		t.Error("stale persisted id must resolve to absent")
	}
}

func TestReset(t *testing.T) {
	sel, repo, _ := newTestSelector(t)
	sel.CreateAndSwitch()
	sel.CreateAndSwitch()

	sel.Reset()
	if repo.Len() != 0 {
		t.Errorf("expected empty repository after Reset, got %d", repo.Len())
	}
	if _, ok := sel.Current(); ok {
		t.Error("expected no current session after Reset")
	}
}
