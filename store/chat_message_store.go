package store

import "context"

// CreateChatMessage persists a new message. The parent session's counters are
// bumped separately via IncrementChatSessionOnMessage so that bulk-import
// paths can skip them.
func (s *Store) CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error) {
	role, err := NormalizeRole(create.Role)
	if err != nil {
		return nil, err
	}
	create.Role = role
	return s.driver.CreateChatMessage(ctx, create)
}

// CreateChatMessages inserts multiple messages preserving caller order. Used
// for bulk import/restore; counters are untouched.
func (s *Store) CreateChatMessages(ctx context.Context, creates []*ChatMessage) ([]*ChatMessage, error) {
	for _, create := range creates {
		role, err := NormalizeRole(create.Role)
		if err != nil {
			return nil, err
		}
		create.Role = role
	}
	return s.driver.CreateChatMessages(ctx, creates)
}

// ListChatMessages returns messages for a session in chronological order.
func (s *Store) ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error) {
	return s.driver.ListChatMessages(ctx, find)
}
