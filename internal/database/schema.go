package database

import (
	"context"
	"fmt"
)

// Schema creates the audit table. Only metadata is stored, never cell values.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_log (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    action        TEXT NOT NULL,
    severity      TEXT NOT NULL,
    session_id    TEXT NOT NULL,
    file_id       UUID,
    file_name     TEXT,
    detail        TEXT,
    rows_affected INTEGER,
    ip_address    INET,
    user_agent    TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS audit_log_created_at_idx ON audit_log (created_at DESC);
CREATE INDEX IF NOT EXISTS audit_log_session_idx ON audit_log (session_id, created_at DESC);
`

// Migrate applies Schema. It is safe to run on every start.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply audit schema: %w", err)
	}
	return nil
}
