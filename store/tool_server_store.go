package store

import "context"

// CreateToolServer registers a new tool server connection for a user.
func (s *Store) CreateToolServer(ctx context.Context, create *ToolServer) (*ToolServer, error) {
	return s.driver.CreateToolServer(ctx, create)
}

// ListToolServers lists tool servers matching the given filter.
func (s *Store) ListToolServers(ctx context.Context, find *FindToolServer) ([]*ToolServer, error) {
	return s.driver.ListToolServers(ctx, find)
}

// GetToolServer returns the first tool server matching the filter, or
// ErrNotFound.
func (s *Store) GetToolServer(ctx context.Context, find *FindToolServer) (*ToolServer, error) {
	list, err := s.driver.ListToolServers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

// UpdateToolServer applies a partial update, ErrNotFound when the UID does
// not resolve for the given creator.
func (s *Store) UpdateToolServer(ctx context.Context, update *UpdateToolServer) (*ToolServer, error) {
	if _, err := s.GetToolServer(ctx, &FindToolServer{UID: &update.UID, CreatorID: &update.CreatorID}); err != nil {
		return nil, err
	}
	return s.driver.UpdateToolServer(ctx, update)
}

// DeleteToolServer removes a registered tool server.
func (s *Store) DeleteToolServer(ctx context.Context, uid string, creatorID string) error {
	n, err := s.driver.DeleteToolServer(ctx, uid, creatorID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
