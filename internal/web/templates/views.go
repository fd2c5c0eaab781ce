// Package templates renders the HTML views. The .templ files are the
// sources; the *_templ.go files next to them are generated.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/transformer/internal/core"
)

// Flash is a one-shot message shown after a redirect.
type Flash struct {
	Kind    string `json:"k"` // success, error, info, warning
	Message string `json:"m"`
}

// IndexParams is everything the main page shows.
type IndexParams struct {
	DarkMode    bool
	Flashes     []Flash
	Files       []core.FileView
	MaxFileSize int64
	MaxFiles    int
}

// AuditLogParams drives the activity page.
type AuditLogParams struct {
	DarkMode bool
	Action   string
	Result   *core.AuditLogResult
}

// AuditActions lists the filterable actions in display order.
var AuditActions = []core.AuditAction{
	core.ActionUpload,
	core.ActionUploadFailed,
	core.ActionRemoveDuplicates,
	core.ActionFillMissing,
	core.ActionSelectColumns,
	core.ActionSelectStats,
	core.ActionSetVisualize,
	core.ActionSetTarget,
	core.ActionReset,
	core.ActionConvert,
	core.ActionRemove,
	core.ActionThemeToggle,
}

var targetFormats = []core.Format{core.FormatCSV, core.FormatXLSX}

// FilePath builds a per-file route.
func FilePath(fileID, suffix string) string {
	return "/files/" + url.PathEscape(fileID) + suffix
}

func itoa(n int) string { return strconv.Itoa(n) }

func themeLabel(dark bool) string {
	if dark {
		return "Light mode"
	}
	return "Dark mode"
}

func uploadHint(p IndexParams) string {
	return fmt.Sprintf("CSV or Excel (.xlsx), up to %.1f MiB each, %d files per session.",
		float64(p.MaxFileSize)/(1<<20), p.MaxFiles)
}

func fileSummary(v core.FileView) string {
	return fmt.Sprintf("%s KiB · %d rows × %d columns", v.SizeKiB, v.Rows, v.Cols)
}

func statsRows(s *core.StatsView) [][2]string {
	return [][2]string{
		{"Column", s.Column}, {"Type", s.DType},
		{"Count", itoa(s.Count)}, {"Missing", itoa(s.Missing)},
		{"Min", s.Min}, {"Max", s.Max},
		{"Mean", s.Mean}, {"Std Dev", s.StdDev},
	}
}

// chartToggle returns the value the visualize form posts and its button label.
func chartToggle(v core.FileView) (string, string) {
	if v.Visualize {
		return "false", "Hide chart"
	}
	return "true", "Show chart"
}

func exportHref(action string) string {
	return "/api/audit-log/export?" + url.Values{"action": {action}}.Encode()
}

func pageHref(action string, page int) string {
	q := url.Values{"page": {itoa(page)}}
	if action != "" {
		q.Set("action", action)
	}
	return "/audit-log?" + q.Encode()
}
