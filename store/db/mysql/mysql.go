// Package mysql implements the store driver on go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/toolhub/toolhub/server/profile"
	"github.com/toolhub/toolhub/store"

	_ "github.com/go-sql-driver/mysql"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a MySQL connection from the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}
	db, err := sql.Open("mysql", profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql db")
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
			id                     INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			uid                    VARCHAR(256) NOT NULL UNIQUE,
			creator_id             VARCHAR(256) NOT NULL,
			title                  TEXT,
			model                  VARCHAR(256) NOT NULL DEFAULT '',
			metadata               TEXT NOT NULL,
			is_archived            TINYINT(1) NOT NULL DEFAULT 0,
			message_count          INT NOT NULL DEFAULT 0,
			total_tokens           BIGINT NOT NULL DEFAULT 0,
			summary                TEXT NOT NULL,
			summary_updated_ts     BIGINT,
			messages_since_summary INT NOT NULL DEFAULT 0,
			last_message_ts        BIGINT,
			created_ts             BIGINT NOT NULL,
			updated_ts             BIGINT NOT NULL,
			INDEX idx_chat_session_creator (creator_id, updated_ts)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_message (
			id          INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			uid         VARCHAR(256) NOT NULL UNIQUE,
			session_id  INT NOT NULL,
			creator_id  VARCHAR(256) NOT NULL,
			role        VARCHAR(64) NOT NULL,
			content     TEXT NOT NULL,
			model       VARCHAR(256) NOT NULL DEFAULT '',
			tokens_used INT NOT NULL DEFAULT 0,
			tool_calls  TEXT,
			metadata    TEXT NOT NULL,
			created_ts  BIGINT NOT NULL,
			updated_ts  BIGINT NOT NULL,
			INDEX idx_chat_message_session (session_id, created_ts),
			CONSTRAINT fk_chat_message_session FOREIGN KEY (session_id) REFERENCES chat_session(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS tool_server (
			id             INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			uid            VARCHAR(256) NOT NULL UNIQUE,
			creator_id     VARCHAR(256) NOT NULL,
			name           VARCHAR(256) NOT NULL,
			description    TEXT NOT NULL,
			transport_type VARCHAR(64) NOT NULL,
			config         TEXT NOT NULL,
			status         VARCHAR(64) NOT NULL DEFAULT 'pending',
			last_ping_ts   BIGINT,
			error_message  TEXT NOT NULL,
			created_ts     BIGINT NOT NULL,
			updated_ts     BIGINT NOT NULL,
			INDEX idx_tool_server_creator (creator_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}
