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

const toolServerFields = "`id`, `uid`, `creator_id`, `name`, `description`, `transport_type`, " +
	"`config`, `status`, `last_ping_ts`, `error_message`, `created_ts`, `updated_ts`"

func (d *DB) CreateToolServer(ctx context.Context, create *store.ToolServer) (*store.ToolServer, error) {
	config := "{}"
	if len(create.Config) > 0 {
		config = string(create.Config)
	}
	now := time.Now().Unix()
	stmt := "INSERT INTO `tool_server`" +
		" (`uid`, `creator_id`, `name`, `description`, `transport_type`, `config`, `error_message`, `created_ts`, `updated_ts`)" +
		" VALUES (?, ?, ?, ?, ?, ?, '', ?, ?)"
	if _, err := d.db.ExecContext(ctx, stmt,
		create.UID, create.CreatorID, create.Name, create.Description, create.TransportType, config, now, now); err != nil {
		return nil, err
	}
	return d.getToolServerByUID(ctx, create.UID)
}

func (d *DB) ListToolServers(ctx context.Context, find *store.FindToolServer) ([]*store.ToolServer, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "`creator_id` = ?"), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "`uid` = ?"), append(args, *v)
	}
	query := fmt.Sprintf("SELECT %s FROM `tool_server` WHERE %s ORDER BY `created_ts` DESC, `id` DESC",
		toolServerFields, strings.Join(where, " AND "))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.ToolServer
	for rows.Next() {
		server, err := scanToolServer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, server)
	}
	return list, rows.Err()
}

func (d *DB) UpdateToolServer(ctx context.Context, update *store.UpdateToolServer) (*store.ToolServer, error) {
	set, args := []string{}, []any{}
	if v := update.Name; v != nil {
		set, args = append(set, "`name` = ?"), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "`description` = ?"), append(args, *v)
	}
	if len(update.Config) > 0 {
		set, args = append(set, "`config` = ?"), append(args, string(update.Config))
	}
	if v := update.Status; v != nil {
		set, args = append(set, "`status` = ?"), append(args, *v)
	}
	if v := update.LastPingTs; v != nil {
		set, args = append(set, "`last_ping_ts` = ?"), append(args, *v)
	}
	if v := update.ErrorMessage; v != nil {
		set, args = append(set, "`error_message` = ?"), append(args, *v)
	}
	set, args = append(set, "`updated_ts` = ?"), append(args, time.Now().Unix())
	args = append(args, update.UID, update.CreatorID)
	stmt := fmt.Sprintf("UPDATE `tool_server` SET %s WHERE `uid` = ? AND `creator_id` = ?",
		strings.Join(set, ", "))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, err
	}
	return d.getToolServerByUID(ctx, update.UID)
}

func (d *DB) DeleteToolServer(ctx context.Context, uid string, creatorID string) (int64, error) {
	result, err := d.db.ExecContext(ctx,
		"DELETE FROM `tool_server` WHERE `uid` = ? AND `creator_id` = ?", uid, creatorID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *DB) getToolServerByUID(ctx context.Context, uid string) (*store.ToolServer, error) {
	query := fmt.Sprintf("SELECT %s FROM `tool_server` WHERE `uid` = ?", toolServerFields)
	return scanToolServer(d.db.QueryRowContext(ctx, query, uid))
}

func scanToolServer(row rowScanner) (*store.ToolServer, error) {
	server := &store.ToolServer{}
	var config string
	var lastPingTs sql.NullInt64
	if err := row.Scan(
		&server.ID, &server.UID, &server.CreatorID, &server.Name, &server.Description,
		&server.TransportType, &config, &server.Status, &lastPingTs, &server.ErrorMessage,
		&server.CreatedTs, &server.UpdatedTs,
	); err != nil {
		return nil, err
	}
	server.Config = json.RawMessage(config)
	if lastPingTs.Valid {
		server.LastPingTs = &lastPingTs.Int64
	}
	return server, nil
}
