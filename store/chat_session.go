package store

// ChatSession represents a single conversation thread owned by one user.
// Sessions carry a small internal integer ID used for foreign keys and an
// external UID used by every API surface.
type ChatSession struct {
	ID        int32
	UID       string
	CreatorID string
	Title     *string
	Model     string
	Metadata  map[string]any

	IsArchived   bool
	MessageCount int32
	TotalTokens  int64

	// Summary is the rolling compaction of older history; empty until the
	// first summarization round completes.
	Summary              string
	SummaryUpdatedTs     *int64
	MessagesSinceSummary int32

	LastMessageTs *int64
	CreatedTs     int64
	UpdatedTs     int64
}

// FindChatSession filters for ListChatSessions / GetChatSession.
type FindChatSession struct {
	UID       *string
	CreatorID *string

	// IncludeArchived also returns archived sessions; by default they are
	// filtered out.
	IncludeArchived bool

	// SummaryDueThreshold, when set, restricts results to sessions whose
	// messages_since_summary counter has reached the given value. Used by
	// the background summarization sweep.
	SummaryDueThreshold *int32

	Limit  *int
	Offset *int
}

// UpdateChatSession carries fields accepted by UpdateChatSession. Only
// non-nil fields are changed; updated_ts is always refreshed.
type UpdateChatSession struct {
	UID       string
	CreatorID string

	Title      *string
	IsArchived *bool
	Metadata   map[string]any
}

// DeleteChatSession deletes a session and all of its messages. The delete is
// owner-scoped: a UID belonging to another creator matches nothing.
type DeleteChatSession struct {
	UID       string
	CreatorID string
}

// ApplyChatSessionSummary atomically installs a new rolling summary: the
// summary text and its timestamp are written and messages_since_summary is
// reset to zero in a single statement, so a failed generation never leaves a
// half-updated session behind.
type ApplyChatSessionSummary struct {
	SessionID        int32
	Summary          string
	SummaryUpdatedTs int64
}
