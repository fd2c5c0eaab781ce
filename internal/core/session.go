package core

// session.go holds one browser session's uploaded files and applies
// per-file commands to them.
//
// Each file keeps the table it was loaded with and a current table that
// cleaning commands replace. Column selection, the statistics column, the
// chart toggle and the conversion target are stored choices applied on top
// of the current table whenever a view or artifact is produced. Choices
// persist until the file is reset or removed, or the session expires.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// CommandAction names a per-file action.
type CommandAction string

const (
	CmdRemoveDuplicates  CommandAction = "remove_duplicates"
	CmdFillMissing       CommandAction = "fill_missing"
	CmdSelectColumns     CommandAction = "select_columns"
	CmdSelectStatsColumn CommandAction = "select_stats_column"
	CmdSetVisualize      CommandAction = "set_visualize"
	CmdSetTargetFormat   CommandAction = "set_target_format"
	CmdReset             CommandAction = "reset"
)

// Command is one user action on one file. Only the fields the action
// needs are read.
type Command struct {
	Action  CommandAction `json:"action"`
	Columns []string      `json:"columns,omitempty"`
	Column  string        `json:"column,omitempty"`
	Enabled bool          `json:"enabled,omitempty"`
	Format  string        `json:"format,omitempty"`
}

// CommandResult reports the outcome of Apply.
type CommandResult struct {
	FileID  string        `json:"fileId"`
	Action  CommandAction `json:"action"`
	Message string        `json:"message"`
}

// FileState is a loaded file and the choices made for it.
type FileState struct {
	ID         string
	Descriptor FileDescriptor
	UploadedAt time.Time

	original    *Table
	current     *Table
	columns     []string // nil selects every column
	statsColumn string
	visualize   bool
	target      Format
	message     string
}

func newFileState(id string, desc FileDescriptor, t *Table) *FileState {
	return &FileState{
		ID:         id,
		Descriptor: desc,
		UploadedAt: time.Now().UTC(),
		original:   t,
		current:    t,
		target:     FormatCSV,
	}
}

// working is the current table with the column selection applied.
func (f *FileState) working() *Table {
	if f.columns == nil {
		return f.current
	}
	t, err := Project(f.current, f.columns)
	if err != nil {
		// Selections are validated when set, so reaching this is a bug.
		slog.Error("column selection no longer matches the table",
			"file_id", f.ID, "columns", f.columns, "error", err)
		return f.current
	}
	return t
}

// effectiveStatsColumn falls back to the first column when nothing valid is selected.
func (f *FileState) effectiveStatsColumn(t *Table) string {
	if _, ok := t.Column(f.statsColumn); ok {
		return f.statsColumn
	}
	if t.NumCols() > 0 {
		return t.Columns[0].Name
	}
	return ""
}

// Session is one client's set of uploaded files.
type Session struct {
	ID string

	mu       sync.Mutex
	darkMode bool
	files    map[string]*FileState
	order    []string
	lastSeen time.Time

	audit AuditLogger
}

func newSession(id string, audit AuditLogger) *Session {
	return &Session{
		ID:       id,
		files:    make(map[string]*FileState),
		lastSeen: time.Now(),
		audit:    audit,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// DarkMode reports the theme flag.
func (s *Session) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.darkMode
}

// ToggleTheme flips the theme flag and returns the new value.
func (s *Session) ToggleTheme(ctx context.Context) bool {
	s.mu.Lock()
	s.darkMode = !s.darkMode
	dark := s.darkMode
	s.mu.Unlock()

	s.record(ctx, AuditLogParams{
		Action: ActionThemeToggle,
		Detail: fmt.Sprintf("dark mode %t", dark),
	})
	return dark
}

// FileCount returns the number of files held.
func (s *Session) FileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// FileIDs returns file handles in upload order.
func (s *Session) FileIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// add stores a loaded table under a new handle. Returns ErrTooManyFiles
// when limit is reached; limit <= 0 means unlimited.
func (s *Session) add(id string, desc FileDescriptor, t *Table, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > 0 && len(s.order) >= limit {
		return fmt.Errorf("%w (limit %d)", ErrTooManyFiles, limit)
	}
	s.files[id] = newFileState(id, desc, t)
	s.order = append(s.order, id)
	return nil
}

func (s *Session) file(id string) (*FileState, error) {
	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return f, nil
}

// Apply runs one command against a file.
func (s *Session) Apply(ctx context.Context, fileID string, cmd Command) (*CommandResult, error) {
	s.mu.Lock()
	f, err := s.file(fileID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	msg, affected, err := applyCommand(f, cmd)
	if err == nil {
		f.message = msg
	}
	name := f.Descriptor.Name
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	s.record(ctx, AuditLogParams{
		Action:       AuditAction(cmd.Action),
		FileID:       fileID,
		FileName:     name,
		Detail:       msg,
		RowsAffected: affected,
	})
	return &CommandResult{FileID: fileID, Action: cmd.Action, Message: msg}, nil
}

// applyCommand mutates f. The caller holds the session lock.
func applyCommand(f *FileState, cmd Command) (msg string, affected int, err error) {
	switch cmd.Action {
	case CmdRemoveDuplicates:
		before := f.current.NumRows()
		res := RemoveDuplicates(f.current)
		f.current = res.Table
		return res.Message, before - res.Table.NumRows(), nil

	case CmdFillMissing:
		res := FillMissingNumeric(f.current)
		f.current = res.Table
		return res.Message, 0, nil

	case CmdSelectColumns:
		if len(cmd.Columns) == 0 {
			f.columns = nil
			return "All columns selected", 0, nil
		}
		projected, err := Project(f.current, cmd.Columns)
		if err != nil {
			return "", 0, err
		}
		f.columns = projected.Names()
		return fmt.Sprintf("%d of %d columns selected", projected.NumCols(), f.current.NumCols()), 0, nil

	case CmdSelectStatsColumn:
		if _, ok := f.working().Column(cmd.Column); !ok {
			return "", 0, fmt.Errorf("%w: %q", ErrColumnNotFound, cmd.Column)
		}
		f.statsColumn = cmd.Column
		return fmt.Sprintf("Statistics column set to %s", cmd.Column), 0, nil

	case CmdSetVisualize:
		f.visualize = cmd.Enabled
		if cmd.Enabled {
			return "Visualization shown", 0, nil
		}
		return "Visualization hidden", 0, nil

	case CmdSetTargetFormat:
		format, err := ParseFormat(cmd.Format)
		if err != nil {
			return "", 0, err
		}
		f.target = format
		return fmt.Sprintf("Conversion target set to %s", format.Label()), 0, nil

	case CmdReset:
		f.current = f.original
		f.columns = nil
		f.statsColumn = ""
		f.visualize = false
		f.target = FormatCSV
		return "Restored the uploaded table", 0, nil

	default:
		return "", 0, fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
	}
}

// Remove drops a file from the session.
func (s *Session) Remove(ctx context.Context, fileID string) error {
	s.mu.Lock()
	f, err := s.file(fileID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.files, fileID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == fileID })
	s.mu.Unlock()

	s.record(ctx, AuditLogParams{Action: ActionRemove, FileID: fileID, FileName: f.Descriptor.Name})
	return nil
}

// Convert serializes the file's working table. An empty format uses the
// file's stored target.
func (s *Session) Convert(ctx context.Context, fileID, format string) (*Artifact, error) {
	s.mu.Lock()
	f, err := s.file(fileID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	target := f.target
	if format != "" {
		if target, err = ParseFormat(format); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	t := f.working()
	desc := f.Descriptor
	s.mu.Unlock()

	art, err := Convert(t, target, desc)
	if err != nil {
		return nil, NewFileError(desc.Name, StageConvert, err)
	}

	s.record(ctx, AuditLogParams{
		Action:       ActionConvert,
		FileID:       fileID,
		FileName:     desc.Name,
		Detail:       fmt.Sprintf("%s (%d bytes)", art.FileName, len(art.Data)),
		RowsAffected: t.NumRows(),
	})
	return art, nil
}

// Stats computes statistics on the working table. An empty column uses the
// stored statistics column, or the first column.
func (s *Session) Stats(fileID, column string) (Stats, error) {
	s.mu.Lock()
	f, err := s.file(fileID)
	if err != nil {
		s.mu.Unlock()
		return Stats{}, err
	}
	t := f.working()
	if column == "" {
		column = f.effectiveStatsColumn(t)
	}
	s.mu.Unlock()

	return ColumnStats(t, column)
}

// Chart returns chart data for the working table regardless of the
// visualization toggle.
func (s *Session) Chart(fileID string) (*ChartData, error) {
	s.mu.Lock()
	f, err := s.file(fileID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	t := f.working()
	s.mu.Unlock()

	return Visualize(t)
}

// ColumnInfo is a column name and its display type.
type ColumnInfo struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
}

// FileView is everything the UI shows for one file.
type FileView struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	SizeKiB          string       `json:"sizeKiB"`
	Rows             int          `json:"rows"`
	Cols             int          `json:"cols"`
	Columns          []ColumnInfo `json:"columns"`
	AvailableColumns []string     `json:"availableColumns"`
	Preview          [][]string   `json:"preview"`
	StatsColumn      string       `json:"statsColumn,omitempty"`
	Stats            *StatsView   `json:"stats,omitempty"`
	Visualize        bool         `json:"visualize"`
	Chart            *ChartData   `json:"chart,omitempty"`
	ChartWarning     string       `json:"chartWarning,omitempty"`
	Target           Format       `json:"target"`
	Message          string       `json:"message,omitempty"`
}

// IsSelected reports whether a column of the current table is in the working set.
func (v FileView) IsSelected(name string) bool {
	return slices.ContainsFunc(v.Columns, func(c ColumnInfo) bool { return c.Name == name })
}

// View builds the display model of one file.
func (s *Session) View(fileID string, previewRows int) (*FileView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.file(fileID)
	if err != nil {
		return nil, err
	}
	return buildView(f, previewRows), nil
}

// Views returns the display model of every file in upload order.
func (s *Session) Views(previewRows int) []FileView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]FileView, 0, len(s.order))
	for _, id := range s.order {
		views = append(views, *buildView(s.files[id], previewRows))
	}
	return views
}

func buildView(f *FileState, previewRows int) *FileView {
	t := f.working()

	v := &FileView{
		ID:               f.ID,
		Name:             f.Descriptor.Name,
		SizeKiB:          fmt.Sprintf("%.2f", f.Descriptor.SizeKiB()),
		Rows:             t.NumRows(),
		Cols:             t.NumCols(),
		Columns:          make([]ColumnInfo, len(t.Columns)),
		AvailableColumns: f.current.Names(),
		Preview:          t.Head(previewRows),
		Visualize:        f.visualize,
		Target:           f.target,
		Message:          f.message,
	}
	for i, c := range t.Columns {
		v.Columns[i] = ColumnInfo{Name: c.Name, DType: c.Kind.DType()}
	}

	if col := f.effectiveStatsColumn(t); col != "" {
		v.StatsColumn = col
		if st, err := ColumnStats(t, col); err == nil {
			sv := st.View()
			v.Stats = &sv
		}
	}

	if f.visualize {
		data, err := Visualize(t)
		if errors.Is(err, ErrNoNumericData) {
			v.ChartWarning = "No numeric columns available for visualization."
		} else if err == nil {
			v.Chart = data
		}
	}
	return v
}

// record writes an audit entry. Audit failures are logged, never returned.
func (s *Session) record(ctx context.Context, params AuditLogParams) {
	if s.audit == nil {
		return
	}
	params.SessionID = s.ID
	if _, err := s.audit.Log(ctx, params); err != nil {
		slog.Warn("audit log failed", "action", params.Action, "session_id", s.ID, "error", err)
	}
}
