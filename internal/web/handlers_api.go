package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/JonMunkholm/transformer/internal/core"
	"github.com/JonMunkholm/transformer/internal/logging"
)

// maxCommandBody bounds JSON command bodies.
const maxCommandBody = 1 << 20

// FileListResponse is the body of GET /api/files.
type FileListResponse struct {
	SessionID string          `json:"sessionId"`
	DarkMode  bool            `json:"darkMode"`
	Files     []core.FileView `json:"files"`
}

// CommandResponse is the body of POST /api/files/{fileID}/commands.
type CommandResponse struct {
	Result *core.CommandResult `json:"result"`
	File   *core.FileView      `json:"file"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status   string                   `json:"status"`
	Sessions int                      `json:"sessions"`
	Uploads  core.UploadLimiterStatus `json:"uploads"`
	Audit    string                   `json:"audit"`
	Time     time.Time                `json:"time"`
}

func (s *Server) handleAPIUpload(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.Upload(r.Context(), sessionFrom(r).ID, files)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAPIListFiles(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	rows := parseIntParam(r, "rows", s.cfg.Upload.PreviewRows)

	writeJSON(w, http.StatusOK, FileListResponse{
		SessionID: sess.ID,
		DarkMode:  sess.DarkMode(),
		Files:     sess.Views(rows),
	})
}

func (s *Server) handleAPIGetFile(w http.ResponseWriter, r *http.Request) {
	rows := parseIntParam(r, "rows", s.cfg.Upload.PreviewRows)
	view, err := sessionFrom(r).View(fileIDParam(r), rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAPIRemoveFile(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).Remove(r.Context(), fileIDParam(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAPICommand applies one core.Command and returns the updated view.
func (s *Server) handleAPICommand(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	fileID := fileIDParam(r)

	var cmd core.Command
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		logging.FromContext(r.Context()).Debug("bad command body", "error", err)
		s.respondError(w, r, errBadRequest)
		return
	}

	res, err := sess.Apply(r.Context(), fileID, cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	view, err := sess.View(fileID, s.cfg.Upload.PreviewRows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Result: res, File: view})
}

// handleAPIStats summarizes ?column=, or the file's statistics column.
func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	st, err := sessionFrom(r).Stats(fileIDParam(r), r.URL.Query().Get("column"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.View())
}

// handleAPIChart returns chart series as JSON, or the rendered image with
// ?format=png.
func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	fileID := fileIDParam(r)

	if r.URL.Query().Get("format") == "png" {
		img, err := s.renderChart(sess, fileID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writePNG(w, img)
		return
	}

	data, err := sess.Chart(fileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// handleAPIConvert downloads the working table; ?format= overrides the
// stored target without changing it.
func (s *Server) handleAPIConvert(w http.ResponseWriter, r *http.Request) {
	art, err := sessionFrom(r).Convert(r.Context(), fileIDParam(r), r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeArtifact(w, art)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	audit := "memory"
	if s.cfg.Audit.Persistent() {
		audit = "postgres"
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:   "ok",
		Sessions: s.service.SessionCount(),
		Uploads:  s.service.Limiter().Status(),
		Audit:    audit,
		Time:     time.Now().UTC(),
	})
}
