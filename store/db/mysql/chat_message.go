package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/toolhub/toolhub/store"
)

const chatMessageFields = "`id`, `uid`, `session_id`, `creator_id`, `role`, `content`, `model`, " +
	"`tokens_used`, `tool_calls`, `metadata`, `created_ts`, `updated_ts`"

func (d *DB) CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	args, err := chatMessageArgs(create)
	if err != nil {
		return nil, err
	}
	stmt := "INSERT INTO `chat_message`" +
		" (`uid`, `session_id`, `creator_id`, `role`, `content`, `model`, `tokens_used`, `tool_calls`, `metadata`, `created_ts`, `updated_ts`)" +
		" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, err
	}
	return d.getChatMessageByUID(ctx, create.UID)
}

func (d *DB) CreateChatMessages(ctx context.Context, creates []*store.ChatMessage) ([]*store.ChatMessage, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt := "INSERT INTO `chat_message`" +
		" (`uid`, `session_id`, `creator_id`, `role`, `content`, `model`, `tokens_used`, `tool_calls`, `metadata`, `created_ts`, `updated_ts`)" +
		" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for _, create := range creates {
		args, err := chatMessageArgs(create)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	list := make([]*store.ChatMessage, 0, len(creates))
	for _, create := range creates {
		message, err := d.getChatMessageByUID(ctx, create.UID)
		if err != nil {
			return nil, err
		}
		list = append(list, message)
	}
	return list, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	order := "ASC"
	if find.Descending {
		order = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM `chat_message` WHERE `session_id` = ? ORDER BY `created_ts` %s, `id` %s",
		chatMessageFields, order, order)
	if v := find.Limit; v != nil {
		query += fmt.Sprintf(" LIMIT %d", *v)
		if v := find.Offset; v != nil {
			query += fmt.Sprintf(" OFFSET %d", *v)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, find.SessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.ChatMessage
	for rows.Next() {
		message, err := scanChatMessage(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, message)
	}
	return list, rows.Err()
}

func (d *DB) getChatMessageByUID(ctx context.Context, uid string) (*store.ChatMessage, error) {
	query := fmt.Sprintf("SELECT %s FROM `chat_message` WHERE `uid` = ?", chatMessageFields)
	return scanChatMessage(d.db.QueryRowContext(ctx, query, uid))
}

func chatMessageArgs(create *store.ChatMessage) ([]any, error) {
	metadata, err := marshalMetadata(create.Metadata)
	if err != nil {
		return nil, err
	}
	var toolCalls any
	if len(create.ToolCalls) > 0 {
		toolCalls = string(create.ToolCalls)
	}
	createdTs := create.CreatedTs
	if createdTs == 0 {
		createdTs = time.Now().Unix()
	}
	updatedTs := create.UpdatedTs
	if updatedTs == 0 {
		updatedTs = createdTs
	}
	return []any{
		create.UID, create.SessionID, create.CreatorID, create.Role, create.Content,
		create.Model, create.TokensUsed, toolCalls, metadata, createdTs, updatedTs,
	}, nil
}

func scanChatMessage(row rowScanner) (*store.ChatMessage, error) {
	message := &store.ChatMessage{}
	var toolCalls sql.NullString
	var metadata string
	if err := row.Scan(
		&message.ID, &message.UID, &message.SessionID, &message.CreatorID, &message.Role,
		&message.Content, &message.Model, &message.TokensUsed, &toolCalls, &metadata,
		&message.CreatedTs, &message.UpdatedTs,
	); err != nil {
		return nil, err
	}
	if toolCalls.Valid {
		message.ToolCalls = json.RawMessage(toolCalls.String)
	}
	if err := json.Unmarshal([]byte(metadata), &message.Metadata); err != nil {
		message.Metadata = map[string]any{}
	}
	return message, nil
}
