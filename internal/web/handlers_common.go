package web

// Shared helpers for the page and API handlers.

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/transformer/internal/core"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func fileIDParam(r *http.Request) string {
	return chi.URLParam(r, "fileID")
}

// readUploads reads the multipart "files" field (or "file") into memory.
// Each file is read up to one byte past the size limit so the service can
// reject it by size without buffering the rest.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]core.UploadedFile, error) {
	maxFile := s.cfg.Upload.MaxFileSize
	limit := maxFile*int64(s.cfg.Upload.MaxFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, limit)
		}
		return nil, fmt.Errorf("%w: %v", errNoFiles, err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		return nil, errNoFiles
	}

	files := make([]core.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh, maxFile+1)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, core.UploadedFile{Name: filepath.Base(fh.Filename), Data: data})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}

// writeArtifact sends a converted file as a download.
func writeArtifact(w http.ResponseWriter, art *core.Artifact) {
	w.Header().Set("Content-Type", art.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(art.Data)
}

// renderChart draws the working table of a file as a PNG in the session's theme.
func (s *Server) renderChart(sess *core.Session, fileID string) ([]byte, error) {
	data, err := sess.Chart(fileID)
	if err != nil {
		return nil, err
	}
	return core.RenderBarChart(data, core.ChartOptions{
		Width:   s.cfg.Chart.Width,
		Height:  s.cfg.Chart.Height,
		MaxBars: s.cfg.Chart.MaxBars,
		Dark:    sess.DarkMode(),
	})
}

func writePNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}
