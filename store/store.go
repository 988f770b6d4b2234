// Package store provides data access to the chat domain. The Store is a thin
// facade over a database Driver so the same contract runs against SQLite,
// Postgres, or MySQL.
package store

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a lookup matches nothing the caller may see.
// Cross-owner access intentionally collapses into this error.
var ErrNotFound = errors.New("record not found")

// Driver is the contract every database backend implements.
type Driver interface {
	GetDB() *sql.DB
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error

	CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error)
	ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error)
	UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error)
	DeleteChatSession(ctx context.Context, delete *DeleteChatSession) (int64, error)
	IncrementChatSessionOnMessage(ctx context.Context, sessionID int32, tokensAdded int32, nowTs int64) error
	ApplyChatSessionSummary(ctx context.Context, apply *ApplyChatSessionSummary) error

	CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error)
	CreateChatMessages(ctx context.Context, creates []*ChatMessage) ([]*ChatMessage, error)
	ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error)

	CreateToolServer(ctx context.Context, create *ToolServer) (*ToolServer, error)
	ListToolServers(ctx context.Context, find *FindToolServer) ([]*ToolServer, error)
	UpdateToolServer(ctx context.Context, update *UpdateToolServer) (*ToolServer, error)
	DeleteToolServer(ctx context.Context, uid string, creatorID string) (int64, error)
}

// Store is the application-facing handle. It owns no state beyond the driver
// and is safe for concurrent use.
type Store struct {
	driver Driver
}

// New creates a Store backed by the given driver.
func New(driver Driver) *Store {
	return &Store{driver: driver}
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.Ping(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.driver.Close()
}
