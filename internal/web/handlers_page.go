package web

// Form handlers for the main page. Every POST redirects back to "/" with a
// flash message so a browser refresh never repeats the action.

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/transformer/internal/core"
	"github.com/JonMunkholm/transformer/internal/logging"
	"github.com/JonMunkholm/transformer/internal/web/templates"
)

// handleIndex renders the upload page and one panel per file.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	flashes := popFlashes(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err := templates.Index(templates.IndexParams{
		DarkMode:    sess.DarkMode(),
		Flashes:     flashes,
		Files:       sess.Views(s.cfg.Upload.PreviewRows),
		MaxFileSize: s.cfg.Upload.MaxFileSize,
		MaxFiles:    s.cfg.Upload.MaxFiles,
	}).Render(r.Context(), w)
	if err != nil {
		logging.FromContext(r.Context()).Warn("render index", "error", err)
	}
}

// handleUploadForm loads a batch of files. Each failed file gets its own
// message; the acknowledgment follows once every file was attempted.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	files, err := s.readUploads(w, r)
	if err != nil {
		redirectHome(w, r, "", errorFlash(err))
		return
	}

	res, err := s.service.Upload(r.Context(), sess.ID, files)
	if err != nil {
		redirectHome(w, r, "", errorFlash(err))
		return
	}

	flashes := make([]templates.Flash, 0, res.Failed+1)
	for _, f := range res.Files {
		if !f.OK() {
			flashes = append(flashes, templates.Flash{Kind: flashKindError, Message: f.Error})
		}
	}
	kind := flashKindSuccess
	if res.Failed > 0 {
		kind = flashKindWarning
	}
	// The acknowledgment goes first so truncation never drops it.
	flashes = append([]templates.Flash{{Kind: kind, Message: res.Acknowledgment}}, flashes...)
	redirectHome(w, r, "", flashes...)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).ToggleTheme(r.Context())
	redirectHome(w, r, "")
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	s.applyForm(w, r, core.Command{Action: core.CommandAction(r.FormValue("op"))}, cleaningOps)
}

var cleaningOps = map[core.CommandAction]bool{
	core.CmdRemoveDuplicates: true,
	core.CmdFillMissing:      true,
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectHome(w, r, "", errorFlash(errBadRequest))
		return
	}
	s.applyForm(w, r, core.Command{Action: core.CmdSelectColumns, Columns: r.PostForm["columns"]}, nil)
}

func (s *Server) handleStatsColumn(w http.ResponseWriter, r *http.Request) {
	s.applyForm(w, r, core.Command{Action: core.CmdSelectStatsColumn, Column: r.FormValue("column")}, nil)
}

func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	enabled, _ := strconv.ParseBool(r.FormValue("enabled"))
	s.applyForm(w, r, core.Command{Action: core.CmdSetVisualize, Enabled: enabled}, nil)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.applyForm(w, r, core.Command{Action: core.CmdReset}, nil)
}

// applyForm runs cmd against the file in the URL and redirects to its panel.
// When allowed is set, actions outside it are rejected.
func (s *Server) applyForm(w http.ResponseWriter, r *http.Request, cmd core.Command, allowed map[core.CommandAction]bool) {
	fileID := fileIDParam(r)
	if allowed != nil && !allowed[cmd.Action] {
		redirectHome(w, r, "file-"+fileID, errorFlash(core.ErrInvalidCommand))
		return
	}

	res, err := sessionFrom(r).Apply(r.Context(), fileID, cmd)
	if err != nil {
		redirectHome(w, r, "file-"+fileID, errorFlash(err))
		return
	}
	redirectHome(w, r, "file-"+fileID, templates.Flash{Kind: flashKindSuccess, Message: res.Message})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r).Remove(r.Context(), fileIDParam(r)); err != nil {
		redirectHome(w, r, "", errorFlash(err))
		return
	}
	redirectHome(w, r, "", templates.Flash{Kind: flashKindInfo, Message: "File removed"})
}

// handleConvertDownload stores the chosen format and sends the converted file.
func (s *Server) handleConvertDownload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	fileID := fileIDParam(r)

	if format := r.FormValue("format"); format != "" {
		if _, err := sess.Apply(r.Context(), fileID, core.Command{Action: core.CmdSetTargetFormat, Format: format}); err != nil {
			redirectHome(w, r, "file-"+fileID, errorFlash(err))
			return
		}
	}

	art, err := sess.Convert(r.Context(), fileID, "")
	if err != nil {
		redirectHome(w, r, "file-"+fileID, errorFlash(err))
		return
	}
	writeArtifact(w, art)
}

func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	img, err := s.renderChart(sessionFrom(r), fileIDParam(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writePNG(w, img)
}
