package store

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Message roles. Anything else is rejected at the facade.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ChatMessage is a single turn within a session. Messages are never mutated
// after creation; they disappear only through cascading session deletion.
type ChatMessage struct {
	ID        int32
	UID       string
	SessionID int32
	// CreatorID duplicates the session owner so message-level reads can be
	// authorized without a join.
	CreatorID string

	Role    string
	Content string
	// Model is the generating model for assistant turns; empty for user turns.
	Model      string
	TokensUsed int32
	ToolCalls  json.RawMessage
	Metadata   map[string]any

	CreatedTs int64
	UpdatedTs int64
}

// FindChatMessage filters for ListChatMessages. Results are ordered by
// created_ts ascending with the insertion id as tiebreaker.
type FindChatMessage struct {
	SessionID int32

	// Descending flips the ordering to newest-first; used by the summarizer
	// to grab the tail of the conversation.
	Descending bool

	Limit  *int
	Offset *int
}

// NormalizeRole lowercases and validates a message role.
func NormalizeRole(role string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return role, nil
	default:
		return "", errors.Errorf("invalid role %q", role)
	}
}
