package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 2 * time.Hour

// ServiceConfig bounds what a session may hold.
type ServiceConfig struct {
	MaxFileSize        int64         // bytes per file; <= 0 disables the check
	MaxFilesPerSession int           // <= 0 is unlimited
	SessionTTL         time.Duration // idle time before a session is swept
}

// Service is the session registry. It loads uploads into sessions and
// expires idle ones.
type Service struct {
	cfg     ServiceConfig
	audit   AuditLogger
	limiter *UploadLimiter

	mu       sync.RWMutex
	sessions map[string]*Session

	now func() time.Time
}

// NewService creates a registry. A nil audit logger keeps entries in memory;
// a nil limiter uses the default limits.
func NewService(cfg ServiceConfig, audit AuditLogger, limiter *UploadLimiter) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if audit == nil {
		audit = NewMemoryAuditLog(0)
	}
	if limiter == nil {
		limiter = NewUploadLimiter(0, 0)
	}
	return &Service{
		cfg:      cfg,
		audit:    audit,
		limiter:  limiter,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Audit returns the audit logger.
func (s *Service) Audit() AuditLogger { return s.audit }

// Limiter returns the upload limiter.
func (s *Service) Limiter() *UploadLimiter { return s.limiter }

// Config returns the limits the service was created with.
func (s *Service) Config() ServiceConfig { return s.cfg }

// NewSession registers an empty session under a fresh ID.
func (s *Service) NewSession() *Session {
	sess := newSession(uuid.NewString(), s.audit)
	sess.touch(s.now())

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Session returns a live session and marks it active.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	now := s.now()
	if now.Sub(sess.idleSince()) > s.cfg.SessionTTL {
		s.DeleteSession(id)
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.touch(now)
	return sess, nil
}

// SessionOrNew returns the session for id, or a new one if it is unknown
// or expired. created reports whether a new session was made.
func (s *Service) SessionOrNew(id string) (sess *Session, created bool) {
	if id != "" {
		if sess, err := s.Session(id); err == nil {
			return sess, false
		}
	}
	return s.NewSession(), true
}

// DeleteSession drops a session and its files.
func (s *Service) DeleteSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// SessionCount returns the number of registered sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ExpireIdle removes sessions idle longer than the TTL and returns how many.
func (s *Service) ExpireIdle() int {
	cutoff := s.now().Add(-s.cfg.SessionTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			expired++
		}
	}
	return expired
}

// UploadedFile is one file of an upload batch, fully read into memory.
type UploadedFile struct {
	Name string
	Data []byte
}

// FileOutcome is the result of loading one file of a batch.
type FileOutcome struct {
	FileID string `json:"fileId,omitempty"`
	Name   string `json:"name"`
	Rows   int    `json:"rows,omitempty"`
	Cols   int    `json:"cols,omitempty"`
	Error  string `json:"error,omitempty"`
	Err    error  `json:"-"`
}

// OK reports whether the file loaded.
func (o FileOutcome) OK() bool { return o.Err == nil }

// BatchResult collects per-file outcomes. A failed file never stops the
// files after it.
type BatchResult struct {
	Files          []FileOutcome `json:"files"`
	Loaded         int           `json:"loaded"`
	Failed         int           `json:"failed"`
	Acknowledgment string        `json:"acknowledgment"`
}

// Upload loads each file into the session. Per-file failures are recorded
// in the result; the returned error is reserved for the batch as a whole
// (no upload slot, unknown session, cancelled context).
func (s *Service) Upload(ctx context.Context, sessionID string, files []UploadedFile) (*BatchResult, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	logger := slog.With("session_id", sessionID, "files", len(files))
	logger.Info("upload batch started")

	res := &BatchResult{Files: make([]FileOutcome, 0, len(files))}
	for _, uf := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out := s.loadOne(sess, uf)
		if out.OK() {
			res.Loaded++
			sess.record(ctx, AuditLogParams{
				Action:       ActionUpload,
				FileID:       out.FileID,
				FileName:     uf.Name,
				Detail:       fmt.Sprintf("%d rows, %d columns", out.Rows, out.Cols),
				RowsAffected: out.Rows,
			})
		} else {
			res.Failed++
			out.Error = FormatFileError(uf.Name, out.Err)
			logger.Warn("file rejected", "file", uf.Name, "error", out.Err)
			sess.record(ctx, AuditLogParams{
				Action:   ActionUploadFailed,
				FileName: uf.Name,
				Detail:   MapError(out.Err).Code,
			})
		}
		res.Files = append(res.Files, out)
	}

	res.Acknowledgment = batchAcknowledgment(res)
	logger.Info("upload batch finished", "loaded", res.Loaded, "failed", res.Failed)
	return res, nil
}

func (s *Service) loadOne(sess *Session, uf UploadedFile) FileOutcome {
	desc := NewFileDescriptor(uf.Name, int64(len(uf.Data)))
	out := FileOutcome{Name: uf.Name}

	if s.cfg.MaxFileSize > 0 && desc.Size > s.cfg.MaxFileSize {
		out.Err = NewFileError(uf.Name, StageLoad,
			fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, desc.Size, s.cfg.MaxFileSize))
		return out
	}

	t, err := Load(desc, uf.Data)
	if err != nil {
		out.Err = NewFileError(uf.Name, StageLoad, err)
		return out
	}

	id := uuid.NewString()
	if err := sess.add(id, desc, t, s.cfg.MaxFilesPerSession); err != nil {
		out.Err = NewFileError(uf.Name, StageLoad, err)
		return out
	}

	out.FileID = id
	out.Rows = t.NumRows()
	out.Cols = t.NumCols()
	return out
}

func batchAcknowledgment(res *BatchResult) string {
	switch {
	case len(res.Files) == 0:
		return "No files uploaded."
	case res.Failed == 0:
		return "All files processed successfully!"
	default:
		return fmt.Sprintf("All files processed: %d loaded, %d failed.", res.Loaded, res.Failed)
	}
}
