package session

import (
	"log"
	"time"

	"github.com/google/uuid"

	"marlin/internal/storage"
)

// migratedBackdate is subtracted from the synthesized session's
// CreatedAt so a migrated session visually ranks below sessions created
// organically the same day.
const migratedBackdate = 24 * time.Hour

// MigrateLegacy folds the pre-session flat message lists (one per
// historical mode) into a single synthesized session and commits it as
// the entire session list, marked current.
//
// It runs before the repository is constructed and is safe to call on
// every start: once the session-list key exists it short-circuits, so
// the legacy keys may be left in storage indefinitely without risk of
// double-migration. A decode failure on one legacy key is isolated and
// does not abort migration of the other.
//
// Returns true when a session was written.
func MigrateLegacy(store storage.Store) (bool, error) {
	var existing []Session
	found, err := store.Read(sessionsKey, &existing)
	if found || err != nil {
		// New format already present (even if corrupt the repository
		// owns recovery) - nothing to do.
		return false, nil
	}

	ragMessages := readLegacyList(store, legacyRAGKey)
	ingestionMessages := readLegacyList(store, legacyIngestionKey)

	if len(ragMessages) == 0 && len(ingestionMessages) == 0 {
		return false, nil
	}
	if ragMessages == nil {
		ragMessages = []Message{}
	}
	if ingestionMessages == nil {
		ingestionMessages = []Message{}
	}

	now := time.Now()
	s := &Session{
		ID:                  uuid.NewString(),
		RAGMessages:         ragMessages,
		DataSourcesMessages: ingestionMessages,
		QuantMessages:       []Message{},
		CreatedAt:           now.Add(-migratedBackdate).UnixMilli(),
		LastUpdated:         now.UnixMilli(),
	}
	s.recompute()

	s.Name = deriveName(s.Messages)
	if s.Name == PlaceholderName {
		s.Name = MigratedPlaceholder
	}

	if err := store.Write(sessionsKey, []*Session{s}); err != nil {
		return false, err
	}
	if err := store.Write(currentKey, s.ID); err != nil {
		return false, err
	}

	log.Printf("Migrated legacy chat history into session %s (%d messages)", s.ID, len(s.Messages))
	return true, nil
}

// readLegacyList decodes one legacy flat message list. Absent or corrupt
// payloads yield an empty list; corruption is logged, not fatal.
func readLegacyList(store storage.Store, key string) []Message {
	var messages []Message
	if _, err := store.Read(key, &messages); err != nil {
		log.Printf("⚠️  Failed to migrate %s: %v", key, err)
		return nil
	}
	return messages
}
