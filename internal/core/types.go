// Package core provides the tabular processing pipeline and the session
// registry that drives it. This package has no UI dependencies and can be used
// by any frontend.
package core

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Kind is the typed-column variant tag decided once at load time.
type Kind int

const (
	KindInteger Kind = iota
	KindFloat
	KindText
)

// IsNumeric reports whether the kind holds numbers.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat
}

// DType returns the display name of the kind.
func (k Kind) DType() string {
	switch k {
	case KindInteger:
		return "int64"
	case KindFloat:
		return "float64"
	default:
		return "object"
	}
}

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "text"
	}
}

// Cell is a single scalar value. Valid=false marks a missing value.
// Integer columns carry the exact value in Int and its float approximation
// in Num; float columns carry Num; text columns carry Str.
type Cell struct {
	Num   float64
	Int   int64
	Str   string
	Valid bool
}

// Missing is the missing-value marker.
var Missing = Cell{}

// NumCell returns a valid float cell.
func NumCell(v float64) Cell {
	return Cell{Num: v, Valid: true}
}

// IntCell returns a valid integer cell.
func IntCell(v int64) Cell {
	return Cell{Num: float64(v), Int: v, Valid: true}
}

// TextCell returns a valid text cell.
func TextCell(s string) Cell {
	return Cell{Str: s, Valid: true}
}

// Format renders the cell for display and CSV output.
// Missing cells render as an empty string.
func (c Cell) Format(kind Kind) string {
	if !c.Valid {
		return ""
	}
	switch kind {
	case KindInteger:
		return strconv.FormatInt(c.Int, 10)
	case KindFloat:
		return formatFloat(c.Num)
	default:
		return c.Str
	}
}

// formatFloat keeps a trailing ".0" on integral values so a float column
// reloads as a float column.
func formatFloat(v float64) string {
	abs := math.Abs(v)
	if math.IsInf(v, 0) || math.IsNaN(v) || abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// clone returns a deep copy of the column.
func (c *Column) clone() *Column {
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	return &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
}

// Table is an ordered set of uniquely named columns of equal length.
// The row count is tracked separately so a table projected to zero columns
// keeps its rows.
type Table struct {
	Columns []*Column
	rows    int
}

// NewTable builds a table from columns. All columns must have the same
// length; rows is used when there are no columns.
func NewTable(rows int, columns ...*Column) *Table {
	if len(columns) > 0 {
		rows = len(columns[0].Cells)
	}
	return &Table{Columns: columns, rows: rows}
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return t.rows
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.Columns)
}

// Names returns the column names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.clone()
	}
	return &Table{Columns: cols, rows: t.rows}
}

// Row returns the display strings of row i.
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Cells[i].Format(c.Kind)
	}
	return row
}

// Head returns up to n leading rows as display strings.
func (t *Table) Head(n int) [][]string {
	if n > t.rows {
		n = t.rows
	}
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = t.Row(i)
	}
	return rows
}

// Equal reports whether two tables have the same columns, kinds and values.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.Columns) != len(o.Columns) {
		return false
	}
	for i, c := range t.Columns {
		oc := o.Columns[i]
		if c.Name != oc.Name || c.Kind != oc.Kind || len(c.Cells) != len(oc.Cells) {
			return false
		}
		for j := range c.Cells {
			if c.Cells[j] != oc.Cells[j] {
				return false
			}
		}
	}
	return true
}

// NumericColumns returns the numeric columns in table order.
func (t *Table) NumericColumns() []*Column {
	var cols []*Column
	for _, c := range t.Columns {
		if c.Kind.IsNumeric() {
			cols = append(cols, c)
		}
	}
	return cols
}

// FileDescriptor describes one uploaded file.
type FileDescriptor struct {
	Name string
	Size int64
	Ext  string // lowercase, without the dot
}

// NewFileDescriptor derives the extension from the file name.
func NewFileDescriptor(name string, size int64) FileDescriptor {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return FileDescriptor{Name: name, Size: size, Ext: ext}
}

// SizeKiB returns the size in KiB.
func (d FileDescriptor) SizeKiB() float64 {
	return float64(d.Size) / 1024
}

// CleanResult is a table plus a human-readable status message.
type CleanResult struct {
	Table   *Table
	Message string
}
