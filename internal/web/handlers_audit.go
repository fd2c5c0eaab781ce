package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/transformer/internal/core"
	"github.com/JonMunkholm/transformer/internal/logging"
	"github.com/JonMunkholm/transformer/internal/web/templates"
)

// exportPageSize is how many entries are fetched per step of a CSV export.
const exportPageSize = 500

// auditOptions reads ?action=, ?page= and ?pageSize= for the caller's session.
func auditOptions(r *http.Request) core.AuditLogOptions {
	pageSize := min(parseIntParam(r, "pageSize", core.DefaultAuditLimit), 200)
	page := parseIntParam(r, "page", 1)
	return core.AuditLogOptions{
		SessionID: sessionFrom(r).ID,
		Action:    core.AuditAction(r.URL.Query().Get("action")),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	}
}

// handleAuditLogPage renders this session's activity.
func (s *Server) handleAuditLogPage(w http.ResponseWriter, r *http.Request) {
	opts := auditOptions(r)
	res, err := s.service.Audit().List(r.Context(), opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = templates.AuditLogPage(templates.AuditLogParams{
		DarkMode: sessionFrom(r).DarkMode(),
		Action:   string(opts.Action),
		Result:   res,
	}).Render(r.Context(), w)
	if err != nil {
		logging.FromContext(r.Context()).Warn("render audit log", "error", err)
	}
}

func (s *Server) handleAPIAuditLog(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Audit().List(r.Context(), auditOptions(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAuditLogExport streams this session's audit entries as CSV.
func (s *Server) handleAuditLogExport(w http.ResponseWriter, r *http.Request) {
	opts := auditOptions(r)
	opts.Limit = exportPageSize
	opts.Offset = 0

	first, err := s.service.Audit().List(r.Context(), opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("audit_log_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	cw.Write([]string{"created_at", "action", "severity", "file_id", "file_name", "detail", "rows_affected", "ip_address", "user_agent"})

	res := first
	for {
		for _, e := range res.Entries {
			cw.Write([]string{
				e.CreatedAt.Format(time.RFC3339),
				string(e.Action),
				string(e.Severity),
				e.FileID,
				e.FileName,
				e.Detail,
				strconv.Itoa(e.RowsAffected),
				e.IPAddress,
				e.UserAgent,
			})
		}
		opts.Offset += len(res.Entries)
		if len(res.Entries) < exportPageSize || int64(opts.Offset) >= res.TotalCount {
			break
		}
		if res, err = s.service.Audit().List(r.Context(), opts); err != nil {
			logging.FromContext(r.Context()).Error("audit export aborted", "error", err, "offset", opts.Offset)
			break
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		logging.FromContext(r.Context()).Warn("audit export write", "error", err)
	}
}
