// Package postgres implements the store driver on lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/toolhub/toolhub/server/profile"
	"github.com/toolhub/toolhub/store"

	_ "github.com/lib/pq"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection from the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}
	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres db")
	}
	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_session (
			id                     SERIAL PRIMARY KEY,
			uid                    TEXT NOT NULL UNIQUE,
			creator_id             TEXT NOT NULL,
			title                  TEXT,
			model                  TEXT NOT NULL DEFAULT '',
			metadata               TEXT NOT NULL DEFAULT '{}',
			is_archived            BOOLEAN NOT NULL DEFAULT FALSE,
			message_count          INTEGER NOT NULL DEFAULT 0,
			total_tokens           BIGINT NOT NULL DEFAULT 0,
			summary                TEXT NOT NULL DEFAULT '',
			summary_updated_ts     BIGINT,
			messages_since_summary INTEGER NOT NULL DEFAULT 0,
			last_message_ts        BIGINT,
			created_ts             BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
			updated_ts             BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_session_creator ON chat_session(creator_id, updated_ts)`,
		`CREATE TABLE IF NOT EXISTS chat_message (
			id          SERIAL PRIMARY KEY,
			uid         TEXT NOT NULL UNIQUE,
			session_id  INTEGER NOT NULL REFERENCES chat_session(id) ON DELETE CASCADE,
			creator_id  TEXT NOT NULL,
			role        TEXT NOT NULL,
			content     TEXT NOT NULL,
			model       TEXT NOT NULL DEFAULT '',
			tokens_used INTEGER NOT NULL DEFAULT 0,
			tool_calls  TEXT,
			metadata    TEXT NOT NULL DEFAULT '{}',
			created_ts  BIGINT NOT NULL,
			updated_ts  BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_message_session ON chat_message(session_id, created_ts)`,
		`CREATE TABLE IF NOT EXISTS tool_server (
			id             SERIAL PRIMARY KEY,
			uid            TEXT NOT NULL UNIQUE,
			creator_id     TEXT NOT NULL,
			name           TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			transport_type TEXT NOT NULL,
			config         TEXT NOT NULL DEFAULT '{}',
			status         TEXT NOT NULL DEFAULT 'pending',
			last_ping_ts   BIGINT,
			error_message  TEXT NOT NULL DEFAULT '',
			created_ts     BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
			updated_ts     BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_server_creator ON tool_server(creator_id)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
