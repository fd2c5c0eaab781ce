package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RemoveDuplicates drops rows that fully equal an earlier row.
// The first occurrence is kept and survivors keep their relative order.
// Missing equals missing. The input table is not modified.
func RemoveDuplicates(t *Table) CleanResult {
	seen := make(map[string]struct{}, t.NumRows())
	keep := make([]int, 0, t.NumRows())

	for r := 0; r < t.NumRows(); r++ {
		key := rowKey(t, r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, r)
	}

	out := selectRows(t, keep)
	removed := t.NumRows() - len(keep)
	return CleanResult{
		Table:   out,
		Message: fmt.Sprintf("Duplicates removed: %d of %d rows dropped", removed, t.NumRows()),
	}
}

// rowKey encodes a row so that equal rows produce equal keys.
// Each cell is length-prefixed so values containing separators cannot collide.
func rowKey(t *Table, r int) string {
	var b strings.Builder
	for _, c := range t.Columns {
		cell := c.Cells[r]
		if !cell.Valid {
			b.WriteString("-|")
			continue
		}
		var v string
		switch c.Kind {
		case KindInteger:
			v = strconv.FormatInt(cell.Int, 10)
		case KindFloat:
			v = strconv.FormatUint(math.Float64bits(cell.Num), 16)
		default:
			v = cell.Str
		}
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
		b.WriteByte('|')
	}
	return b.String()
}

// selectRows returns a new table holding only the given row indices.
func selectRows(t *Table, rows []int) *Table {
	cols := make([]*Column, len(t.Columns))
	for i, c := range t.Columns {
		cells := make([]Cell, len(rows))
		for j, r := range rows {
			cells[j] = c.Cells[r]
		}
		cols[i] = &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return &Table{Columns: cols, rows: len(rows)}
}

// FillMissingNumeric replaces missing values in every numeric column with
// the mean of that column's present values. Columns with no present values
// stay missing; text columns are untouched. The input table is not modified.
func FillMissingNumeric(t *Table) CleanResult {
	out := t.Clone()
	filled := 0

	for _, c := range out.Columns {
		if !c.Kind.IsNumeric() {
			continue
		}
		mean, ok := columnMean(c)
		if !ok {
			continue
		}
		widen := c.Kind == KindInteger && mean != math.Trunc(mean)
		for i, cell := range c.Cells {
			switch {
			case !cell.Valid && c.Kind == KindInteger && !widen:
				c.Cells[i] = IntCell(int64(mean))
				filled++
			case !cell.Valid:
				c.Cells[i] = NumCell(mean)
				filled++
			case widen:
				c.Cells[i] = NumCell(cell.Num)
			}
		}
		if widen {
			c.Kind = KindFloat
		}
	}

	return CleanResult{
		Table:   out,
		Message: fmt.Sprintf("Missing values filled: %d numeric cells replaced with column means", filled),
	}
}

// columnMean returns the mean of present values; ok is false if there are none.
func columnMean(c *Column) (mean float64, ok bool) {
	var sum float64
	n := 0
	for _, cell := range c.Cells {
		if cell.Valid {
			sum += cell.Num
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
