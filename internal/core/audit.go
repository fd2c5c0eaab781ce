package core

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionUpload           AuditAction = "upload"
	ActionUploadFailed     AuditAction = "upload_failed"
	ActionRemoveDuplicates AuditAction = "remove_duplicates"
	ActionFillMissing      AuditAction = "fill_missing"
	ActionSelectColumns    AuditAction = "select_columns"
	ActionSelectStats      AuditAction = "select_stats_column"
	ActionSetVisualize     AuditAction = "set_visualize"
	ActionSetTarget        AuditAction = "set_target_format"
	ActionReset            AuditAction = "reset"
	ActionConvert          AuditAction = "convert"
	ActionRemove           AuditAction = "remove"
	ActionThemeToggle      AuditAction = "theme_toggle"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEntry is one recorded action. It carries metadata only; cell values
// never leave the session.
type AuditEntry struct {
	ID           string        `json:"id"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	SessionID    string        `json:"sessionId"`
	FileID       string        `json:"fileId,omitempty"`
	FileName     string        `json:"fileName,omitempty"`
	Detail       string        `json:"detail,omitempty"`
	RowsAffected int           `json:"rowsAffected,omitempty"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
// IP address and user agent are taken from the context.
type AuditLogParams struct {
	Action       AuditAction
	SessionID    string
	FileID       string
	FileName     string
	Detail       string
	RowsAffected int
}

// AuditLogOptions filters audit queries.
type AuditLogOptions struct {
	SessionID string
	Action    AuditAction
	Limit     int
	Offset    int
}

// DefaultAuditLimit is the page size when none is given.
const DefaultAuditLimit = 50

// AuditLogResult is one page of audit entries.
type AuditLogResult struct {
	Entries    []AuditEntry `json:"entries"`
	TotalCount int64        `json:"totalCount"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
}

// AuditLogger records session actions. Implementations must be safe for
// concurrent use.
type AuditLogger interface {
	Log(ctx context.Context, params AuditLogParams) (*AuditEntry, error)
	List(ctx context.Context, opts AuditLogOptions) (*AuditLogResult, error)
}

// auditSeverity returns the appropriate severity for an action.
func auditSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionUpload, ActionUploadFailed, ActionRemove, ActionReset:
		return SeverityHigh
	case ActionThemeToggle, ActionSetVisualize, ActionSelectStats:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

func newAuditEntry(ctx context.Context, params AuditLogParams) AuditEntry {
	meta := RequestMetaFromContext(ctx)
	return AuditEntry{
		ID:           uuid.NewString(),
		Action:       params.Action,
		Severity:     auditSeverity(params.Action),
		SessionID:    params.SessionID,
		FileID:       params.FileID,
		FileName:     params.FileName,
		Detail:       params.Detail,
		RowsAffected: params.RowsAffected,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		CreatedAt:    time.Now().UTC(),
	}
}

func (o AuditLogOptions) normalized() AuditLogOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultAuditLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

func pageResult(entries []AuditEntry, total int64, opts AuditLogOptions) *AuditLogResult {
	totalPages := int((total + int64(opts.Limit) - 1) / int64(opts.Limit))
	if totalPages < 1 {
		totalPages = 1
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return &AuditLogResult{
		Entries:    entries,
		TotalCount: total,
		Page:       opts.Offset/opts.Limit + 1,
		PageSize:   opts.Limit,
		TotalPages: totalPages,
	}
}

// DefaultMemoryAuditCapacity bounds the in-memory audit log.
const DefaultMemoryAuditCapacity = 1000

// MemoryAuditLog keeps the most recent entries in memory. It is used when
// no database is configured.
type MemoryAuditLog struct {
	mu       sync.RWMutex
	entries  []AuditEntry
	capacity int
}

// NewMemoryAuditLog creates a log that retains at most capacity entries.
func NewMemoryAuditLog(capacity int) *MemoryAuditLog {
	if capacity <= 0 {
		capacity = DefaultMemoryAuditCapacity
	}
	return &MemoryAuditLog{capacity: capacity}
}

func (m *MemoryAuditLog) Log(ctx context.Context, params AuditLogParams) (*AuditEntry, error) {
	entry := newAuditEntry(ctx, params)

	m.mu.Lock()
	m.entries = append(m.entries, entry)
	if over := len(m.entries) - m.capacity; over > 0 {
		m.entries = slices.Delete(m.entries, 0, over)
	}
	m.mu.Unlock()

	return &entry, nil
}

// List returns matching entries newest first.
func (m *MemoryAuditLog) List(_ context.Context, opts AuditLogOptions) (*AuditLogResult, error) {
	opts = opts.normalized()

	m.mu.RLock()
	var matched []AuditEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if opts.SessionID != "" && e.SessionID != opts.SessionID {
			continue
		}
		if opts.Action != "" && e.Action != opts.Action {
			continue
		}
		matched = append(matched, e)
	}
	m.mu.RUnlock()

	total := int64(len(matched))
	start := min(opts.Offset, len(matched))
	end := min(start+opts.Limit, len(matched))
	return pageResult(matched[start:end], total, opts), nil
}
