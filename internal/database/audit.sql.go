package database

import (
	"context"
	"net/netip"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertAuditLog = `-- name: InsertAuditLog :one
INSERT INTO audit_log (
    action, severity, session_id, file_id, file_name, detail, rows_affected, ip_address, user_agent
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9
)
RETURNING id, action, severity, session_id, file_id, file_name, detail, rows_affected, ip_address, user_agent, created_at
`

type InsertAuditLogParams struct {
	Action       string
	Severity     string
	SessionID    string
	FileID       pgtype.UUID
	FileName     pgtype.Text
	Detail       pgtype.Text
	RowsAffected pgtype.Int4
	IpAddress    *netip.Addr
	UserAgent    pgtype.Text
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) (AuditLog, error) {
	row := q.db.QueryRow(ctx, insertAuditLog,
		arg.Action,
		arg.Severity,
		arg.SessionID,
		arg.FileID,
		arg.FileName,
		arg.Detail,
		arg.RowsAffected,
		arg.IpAddress,
		arg.UserAgent,
	)
	var i AuditLog
	err := row.Scan(
		&i.ID,
		&i.Action,
		&i.Severity,
		&i.SessionID,
		&i.FileID,
		&i.FileName,
		&i.Detail,
		&i.RowsAffected,
		&i.IpAddress,
		&i.UserAgent,
		&i.CreatedAt,
	)
	return i, err
}

const listAuditLog = `-- name: ListAuditLog :many
SELECT id, action, severity, session_id, file_id, file_name, detail, rows_affected, ip_address, user_agent, created_at
FROM audit_log
WHERE ($1::text = '' OR session_id = $1)
  AND ($2::text = '' OR action = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

type ListAuditLogParams struct {
	SessionID string
	Action    string
	Limit     int32
	Offset    int32
}

func (q *Queries) ListAuditLog(ctx context.Context, arg ListAuditLogParams) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLog,
		arg.SessionID,
		arg.Action,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		var i AuditLog
		if err := rows.Scan(
			&i.ID,
			&i.Action,
			&i.Severity,
			&i.SessionID,
			&i.FileID,
			&i.FileName,
			&i.Detail,
			&i.RowsAffected,
			&i.IpAddress,
			&i.UserAgent,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countAuditLog = `-- name: CountAuditLog :one
SELECT count(*) FROM audit_log
WHERE ($1::text = '' OR session_id = $1)
  AND ($2::text = '' OR action = $2)
`

type CountAuditLogParams struct {
	SessionID string
	Action    string
}

func (q *Queries) CountAuditLog(ctx context.Context, arg CountAuditLogParams) (int64, error) {
	row := q.db.QueryRow(ctx, countAuditLog, arg.SessionID, arg.Action)
	var count int64
	err := row.Scan(&count)
	return count, err
}
