package store

import (
	"context"
	"time"
)

// CreateChatSession creates a new session with counters zeroed.
func (s *Store) CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error) {
	return s.driver.CreateChatSession(ctx, create)
}

// ListChatSessions lists sessions matching the given filter, ordered by
// updated_ts descending.
func (s *Store) ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error) {
	return s.driver.ListChatSessions(ctx, find)
}

// GetChatSession returns the first session matching the given filter, or
// ErrNotFound.
func (s *Store) GetChatSession(ctx context.Context, find *FindChatSession) (*ChatSession, error) {
	find.IncludeArchived = true
	list, err := s.driver.ListChatSessions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

// UpdateChatSession applies a partial update. It returns ErrNotFound when the
// UID does not resolve for the given creator.
func (s *Store) UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error) {
	if _, err := s.GetChatSession(ctx, &FindChatSession{UID: &update.UID, CreatorID: &update.CreatorID}); err != nil {
		return nil, err
	}
	return s.driver.UpdateChatSession(ctx, update)
}

// DeleteChatSession removes a session and cascades to its messages.
func (s *Store) DeleteChatSession(ctx context.Context, delete *DeleteChatSession) error {
	n, err := s.driver.DeleteChatSession(ctx, delete)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementChatSessionOnMessage bumps message_count, messages_since_summary,
// and (when tokensAdded > 0) total_tokens, and stamps last_message_ts. The
// bump is a relative SQL update so concurrent appends never lose increments.
func (s *Store) IncrementChatSessionOnMessage(ctx context.Context, sessionID int32, tokensAdded int32) error {
	return s.driver.IncrementChatSessionOnMessage(ctx, sessionID, tokensAdded, time.Now().Unix())
}

// ApplyChatSessionSummary installs a freshly generated summary and resets the
// messages_since_summary counter in one statement.
func (s *Store) ApplyChatSessionSummary(ctx context.Context, apply *ApplyChatSessionSummary) error {
	return s.driver.ApplyChatSessionSummary(ctx, apply)
}
