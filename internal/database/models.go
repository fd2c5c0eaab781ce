package database

import (
	"net/netip"

	"github.com/jackc/pgx/v5/pgtype"
)

type AuditLog struct {
	ID           pgtype.UUID
	Action       string
	Severity     string
	SessionID    string
	FileID       pgtype.UUID
	FileName     pgtype.Text
	Detail       pgtype.Text
	RowsAffected pgtype.Int4
	IpAddress    *netip.Addr
	UserAgent    pgtype.Text
	CreatedAt    pgtype.Timestamptz
}
