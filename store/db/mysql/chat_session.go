package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/toolhub/toolhub/store"
)

const chatSessionFields = "`id`, `uid`, `creator_id`, `title`, `model`, `metadata`, `is_archived`, " +
	"`message_count`, `total_tokens`, `summary`, `summary_updated_ts`, `messages_since_summary`, " +
	"`last_message_ts`, `created_ts`, `updated_ts`"

func (d *DB) CreateChatSession(ctx context.Context, create *store.ChatSession) (*store.ChatSession, error) {
	metadata, err := marshalMetadata(create.Metadata)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	stmt := "INSERT INTO `chat_session` (`uid`, `creator_id`, `title`, `model`, `metadata`, `summary`, `created_ts`, `updated_ts`)" +
		" VALUES (?, ?, ?, ?, ?, '', ?, ?)"
	if _, err := d.db.ExecContext(ctx, stmt,
		create.UID, create.CreatorID, create.Title, create.Model, metadata, now, now); err != nil {
		return nil, err
	}
	return d.getChatSessionByUID(ctx, create.UID)
}

func (d *DB) ListChatSessions(ctx context.Context, find *store.FindChatSession) ([]*store.ChatSession, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "`creator_id` = ?"), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "`uid` = ?"), append(args, *v)
	}
	if !find.IncludeArchived {
		where = append(where, "`is_archived` = 0")
	}
	if v := find.SummaryDueThreshold; v != nil {
		where, args = append(where, "`messages_since_summary` >= ?"), append(args, *v)
	}
	query := fmt.Sprintf("SELECT %s FROM `chat_session` WHERE %s ORDER BY `updated_ts` DESC, `id` DESC",
		chatSessionFields, strings.Join(where, " AND "))
	if v := find.Limit; v != nil {
		query += fmt.Sprintf(" LIMIT %d", *v)
		if v := find.Offset; v != nil {
			query += fmt.Sprintf(" OFFSET %d", *v)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.ChatSession
	for rows.Next() {
		session, err := scanChatSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, session)
	}
	return list, rows.Err()
}

func (d *DB) UpdateChatSession(ctx context.Context, update *store.UpdateChatSession) (*store.ChatSession, error) {
	set, args := []string{}, []any{}
	if v := update.Title; v != nil {
		set, args = append(set, "`title` = ?"), append(args, *v)
	}
	if v := update.IsArchived; v != nil {
		set, args = append(set, "`is_archived` = ?"), append(args, *v)
	}
	if update.Metadata != nil {
		metadata, err := marshalMetadata(update.Metadata)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "`metadata` = ?"), append(args, metadata)
	}
	set, args = append(set, "`updated_ts` = ?"), append(args, time.Now().Unix())
	args = append(args, update.UID, update.CreatorID)
	stmt := fmt.Sprintf("UPDATE `chat_session` SET %s WHERE `uid` = ? AND `creator_id` = ?",
		strings.Join(set, ", "))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, err
	}
	return d.getChatSessionByUID(ctx, update.UID)
}

func (d *DB) DeleteChatSession(ctx context.Context, delete *store.DeleteChatSession) (int64, error) {
	result, err := d.db.ExecContext(ctx,
		"DELETE FROM `chat_session` WHERE `uid` = ? AND `creator_id` = ?",
		delete.UID, delete.CreatorID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *DB) IncrementChatSessionOnMessage(ctx context.Context, sessionID int32, tokensAdded int32, nowTs int64) error {
	_, err := d.db.ExecContext(ctx, "UPDATE `chat_session` SET"+
		" `message_count` = `message_count` + 1,"+
		" `messages_since_summary` = `messages_since_summary` + 1,"+
		" `total_tokens` = `total_tokens` + ?,"+
		" `last_message_ts` = ?, `updated_ts` = ?"+
		" WHERE `id` = ?",
		tokensAdded, nowTs, nowTs, sessionID)
	return err
}

func (d *DB) ApplyChatSessionSummary(ctx context.Context, apply *store.ApplyChatSessionSummary) error {
	_, err := d.db.ExecContext(ctx, "UPDATE `chat_session` SET"+
		" `summary` = ?, `summary_updated_ts` = ?, `messages_since_summary` = 0, `updated_ts` = ?"+
		" WHERE `id` = ?",
		apply.Summary, apply.SummaryUpdatedTs, apply.SummaryUpdatedTs, apply.SessionID)
	return err
}

func (d *DB) getChatSessionByUID(ctx context.Context, uid string) (*store.ChatSession, error) {
	query := fmt.Sprintf("SELECT %s FROM `chat_session` WHERE `uid` = ?", chatSessionFields)
	return scanChatSession(d.db.QueryRowContext(ctx, query, uid))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChatSession(row rowScanner) (*store.ChatSession, error) {
	session := &store.ChatSession{}
	var title sql.NullString
	var metadata string
	var summaryUpdatedTs, lastMessageTs sql.NullInt64
	if err := row.Scan(
		&session.ID, &session.UID, &session.CreatorID, &title, &session.Model, &metadata,
		&session.IsArchived, &session.MessageCount, &session.TotalTokens, &session.Summary,
		&summaryUpdatedTs, &session.MessagesSinceSummary, &lastMessageTs,
		&session.CreatedTs, &session.UpdatedTs,
	); err != nil {
		return nil, err
	}
	if title.Valid {
		session.Title = &title.String
	}
	if summaryUpdatedTs.Valid {
		session.SummaryUpdatedTs = &summaryUpdatedTs.Int64
	}
	if lastMessageTs.Valid {
		session.LastMessageTs = &lastMessageTs.Int64
	}
	if err := json.Unmarshal([]byte(metadata), &session.Metadata); err != nil {
		session.Metadata = map[string]any{}
	}
	return session, nil
}

func marshalMetadata(metadata map[string]any) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
