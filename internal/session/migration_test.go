package session

import (
	"testing"

	"marlin/internal/storage"
)

func TestMigrateLegacyFoldsBothModes(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.Write(legacyRAGKey, []Message{
		{Sender: SenderUser, Text: "hi", Timestamp: 1},
	}); err != nil {
		t.Fatalf("seeding legacy rag messages failed: %v", err)
	}
	if err := store.Write(legacyIngestionKey, []Message{}); err != nil {
		t.Fatalf("seeding legacy ingestion messages failed: %v", err)
	}

	migrated, err := MigrateLegacy(store)
	if err != nil {
		t.Fatalf("MigrateLegacy failed: %v", err)
	}
	if !migrated {
		t.Fatal("expected migration to run")
	}

	repo := NewRepository(store)
	list := repo.List()
	if len(list) != 1 {
		t.Fatalf("expected exactly one migrated session, got %d", len(list))
	}

	s := list[0]
	if len(s.RAGMessages) != 1 {
		t.Errorf("expected 1 rag message, got %d", len(s.RAGMessages))
	}
	if len(s.DataSourcesMessages) != 0 {
		t.Errorf("expected 0 dataSources messages, got %d", len(s.DataSourcesMessages))
	}
	if s.Name != "hi" {
		t.Errorf("expected derived name %q, got %q", "hi", s.Name)
	}
	if s.CreatedAt >= s.LastUpdated {
		t.Error("migrated session must be backdated below lastUpdated")
	}

	// The migrated session is marked current
	sel := NewSelector(repo)
	cur, ok := sel.Current()
	if !ok || cur.ID != s.ID {
		t.Error("expected the migrated session to be current")
	}
}

func TestMigrateLegacyIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.Write(legacyRAGKey, []Message{
		{Sender: SenderUser, Text: "only once", Timestamp: 5},
	}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	if _, err := MigrateLegacy(store); err != nil {
		t.Fatalf("first migration failed: %v", err)
	}
	first := NewRepository(store).List()

	migrated, err := MigrateLegacy(store)
	if err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
	if migrated {
		t.Error("second migration must be a no-op")
	}

	second := NewRepository(store).List()
	if len(first) != 1 || len(second) != 1 || first[0].ID != second[0].ID {
		t.Error("repeated migration changed the persisted session list")
	}
}

func TestMigrateLegacyNothingToMigrate(t *testing.T) {
	store := storage.NewMemoryStore()

	migrated, err := MigrateLegacy(store)
	if err != nil {
		t.Fatalf("MigrateLegacy failed: %v", err)
	}
	if migrated {
		t.Error("expected no migration with no legacy keys")
	}

	var sessions []Session
	found, _ := store.Read(sessionsKey, &sessions)
	if found {
		t.Error("migration must not write when there is nothing to migrate")
	}

	// Empty legacy lists also produce no writes
	if err := store.Write(legacyRAGKey, []Message{}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}
	if err := store.Write(legacyIngestionKey, []Message{}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}
	migrated, err = MigrateLegacy(store)
	if err != nil {
		t.Fatalf("MigrateLegacy failed: %v", err)
	}
	if migrated {
		t.Error("expected no migration for empty legacy lists")
	}
}

func TestMigrateLegacySkipsWhenNewFormatExists(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.Write(legacyRAGKey, []Message{
		{Sender: SenderUser, Text: "old", Timestamp: 1},
	}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	repo := NewRepository(store)
	existing := repo.Create()

	migrated, err := MigrateLegacy(store)
	if err != nil {
		t.Fatalf("MigrateLegacy failed: %v", err)
	}
	if migrated {
		t.Error("migration must short-circuit when the session list exists")
	}

	list := NewRepository(store).List()
	if len(list) != 1 || list[0].ID != existing.ID {
		t.Error("migration disturbed the existing session list")
	}
}

func TestMigrateLegacyIsolatesCorruptKey(t *testing.T) {
	store := storage.NewMemoryStore()
	store.SetRaw(legacyRAGKey, "{broken")
	if err := store.Write(legacyIngestionKey, []Message{
		{Sender: SenderUser, Text: "survivor", Timestamp: 2},
	}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	migrated, err := MigrateLegacy(store)
	if err != nil {
		t.Fatalf("corrupt legacy key must not abort migration: %v", err)
	}
	if !migrated {
		t.Fatal("expected migration of the intact key")
	}

	list := NewRepository(store).List()
	if len(list) != 1 {
		t.Fatalf("expected one session, got %d", len(list))
	}
	s := list[0]
	if len(s.RAGMessages) != 0 {
		t.Errorf("corrupt rag list should migrate as empty, got %d", len(s.RAGMessages))
	}
	if len(s.DataSourcesMessages) != 1 || s.DataSourcesMessages[0].Text != "survivor" {
		t.Errorf("intact ingestion list lost: %+v", s.DataSourcesMessages)
	}
	if s.Name != "survivor" {
		t.Errorf("expected name from surviving messages, got %q", s.Name)
	}
}

func TestMigrateLegacyNameFallback(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.Write(legacyRAGKey, []Message{
		{Sender: SenderAssistant, Text: "assistant only", Timestamp: 1},
	}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	if _, err := MigrateLegacy(store); err != nil {
		t.Fatalf("MigrateLegacy failed: %v", err)
	}
	list := NewRepository(store).List()
	if len(list) != 1 {
		t.Fatalf("expected one session, got %d", len(list))
	}
	if list[0].Name != MigratedPlaceholder {
		t.Errorf("expected %q, got %q", MigratedPlaceholder, list[0].Name)
	}
}
