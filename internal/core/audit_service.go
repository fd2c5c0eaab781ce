package core

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	db "github.com/JonMunkholm/transformer/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditService persists audit entries to PostgreSQL.
type AuditService struct {
	pool *pgxpool.Pool
}

// NewAuditService creates a new audit service.
func NewAuditService(pool *pgxpool.Pool) *AuditService {
	return &AuditService{pool: pool}
}

// Log inserts an entry and returns the stored row.
func (a *AuditService) Log(ctx context.Context, params AuditLogParams) (*AuditEntry, error) {
	entry := newAuditEntry(ctx, params)

	insertParams := db.InsertAuditLogParams{
		Action:       string(entry.Action),
		Severity:     string(entry.Severity),
		SessionID:    entry.SessionID,
		FileID:       toPgUUID(entry.FileID),
		FileName:     toPgText(entry.FileName),
		Detail:       toPgText(entry.Detail),
		RowsAffected: toPgInt4(entry.RowsAffected),
		IpAddress:    parseIPAddress(entry.IPAddress),
		UserAgent:    toPgText(entry.UserAgent),
	}

	row, err := db.New(a.pool).InsertAuditLog(ctx, insertParams)
	if err != nil {
		return nil, fmt.Errorf("insert audit log: %w", err)
	}
	return auditRowToEntry(row), nil
}

// List retrieves audit entries newest first.
func (a *AuditService) List(ctx context.Context, opts AuditLogOptions) (*AuditLogResult, error) {
	opts = opts.normalized()
	q := db.New(a.pool)

	total, err := q.CountAuditLog(ctx, db.CountAuditLogParams{
		SessionID: opts.SessionID,
		Action:    string(opts.Action),
	})
	if err != nil {
		return nil, fmt.Errorf("count audit log: %w", err)
	}

	rows, err := q.ListAuditLog(ctx, db.ListAuditLogParams{
		SessionID: opts.SessionID,
		Action:    string(opts.Action),
		Limit:     int32(opts.Limit),
		Offset:    int32(opts.Offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}

	entries := make([]AuditEntry, len(rows))
	for i, row := range rows {
		entries[i] = *auditRowToEntry(row)
	}
	return pageResult(entries, total, opts), nil
}

// auditRowToEntry converts a db.AuditLog to an AuditEntry.
func auditRowToEntry(row db.AuditLog) *AuditEntry {
	entry := &AuditEntry{
		ID:        pgUUIDToString(row.ID),
		Action:    AuditAction(row.Action),
		Severity:  AuditSeverity(row.Severity),
		SessionID: row.SessionID,
		FileID:    pgUUIDToString(row.FileID),
		CreatedAt: row.CreatedAt.Time,
	}
	if row.FileName.Valid {
		entry.FileName = row.FileName.String
	}
	if row.Detail.Valid {
		entry.Detail = row.Detail.String
	}
	if row.RowsAffected.Valid {
		entry.RowsAffected = int(row.RowsAffected.Int32)
	}
	if row.IpAddress != nil {
		entry.IPAddress = row.IpAddress.String()
	}
	if row.UserAgent.Valid {
		entry.UserAgent = row.UserAgent.String
	}
	return entry
}

// parseIPAddress strips a port if present. Unparseable input yields nil.
func parseIPAddress(s string) *netip.Addr {
	if s == "" {
		return nil
	}
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	return &addr
}

// toPgText returns invalid for empty or whitespace-only input.
func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgInt4(i int) pgtype.Int4 {
	if i == 0 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// toPgUUID returns invalid if s is empty or not a UUID.
func toPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func pgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
