package session

// PlaceholderName is the name every session carries until its first user
// message arrives. Name auto-derivation only ever fires while the name
// still equals this placeholder, so a user-assigned name is never
// overwritten.
const PlaceholderName = "New Chat Session"

// MigratedPlaceholder names a migrated session whose legacy messages
// contain no user turn to derive a name from.
const MigratedPlaceholder = "Migrated Chat Session"

// nameMaxRunes bounds the derived-name prefix length.
const nameMaxRunes = 30

// deriveName builds a display name from the first user message in the
// given (already merged and ordered) message list. Falls back to the
// placeholder when no user message exists yet.
func deriveName(messages []Message) string {
	for _, m := range messages {
		if m.Sender == SenderUser && m.Text != "" {
			return truncateName(m.Text)
		}
	}
	return PlaceholderName
}

func truncateName(text string) string {
	runes := []rune(text)
	if len(runes) <= nameMaxRunes {
		return text
	}
	return string(runes[:nameMaxRunes]) + "..."
}
