package core

import (
	"fmt"
	"math"
)

// Stats summarizes one column, ignoring missing values.
// Mean and StdDev are nil when undefined (text columns, or too few values);
// Min and Max are invalid cells when the column has no present values.
type Stats struct {
	Column  string
	Kind    Kind
	Count   int
	Missing int
	Min     Cell
	Max     Cell
	Mean    *float64
	StdDev  *float64
}

// NotAvailable is how undefined statistics are displayed.
const NotAvailable = "N/A"

// MinString formats Min for display.
func (s Stats) MinString() string { return s.formatCell(s.Min) }

// MaxString formats Max for display.
func (s Stats) MaxString() string { return s.formatCell(s.Max) }

// MeanString formats Mean for display.
func (s Stats) MeanString() string { return formatOptional(s.Mean) }

// StdDevString formats StdDev for display.
func (s Stats) StdDevString() string { return formatOptional(s.StdDev) }

func (s Stats) formatCell(c Cell) string {
	if !c.Valid {
		return NotAvailable
	}
	return c.Format(s.Kind)
}

func formatOptional(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return formatFloat(*v)
}

// ColumnStats computes min, max, mean and sample standard deviation for
// the named column. Text columns use lexicographic min/max.
func ColumnStats(t *Table, name string) (Stats, error) {
	c, ok := t.Column(name)
	if !ok {
		return Stats{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}

	st := Stats{Column: c.Name, Kind: c.Kind}
	if c.Kind.IsNumeric() {
		numericStats(c, &st)
	} else {
		textStats(c, &st)
	}
	return st, nil
}

func numericStats(c *Column, st *Stats) {
	var sum float64
	for _, cell := range c.Cells {
		if !cell.Valid {
			st.Missing++
			continue
		}
		if st.Count == 0 || numLess(c.Kind, cell, st.Min) {
			st.Min = cell
		}
		if st.Count == 0 || numLess(c.Kind, st.Max, cell) {
			st.Max = cell
		}
		sum += cell.Num
		st.Count++
	}
	if st.Count == 0 {
		return
	}

	mean := sum / float64(st.Count)
	st.Mean = &mean

	if st.Count < 2 {
		return
	}
	var sq float64
	for _, cell := range c.Cells {
		if cell.Valid {
			d := cell.Num - mean
			sq += d * d
		}
	}
	std := math.Sqrt(sq / float64(st.Count-1))
	st.StdDev = &std
}

// numLess orders integer cells by their exact value and float cells by Num.
func numLess(kind Kind, a, b Cell) bool {
	if kind == KindInteger {
		return a.Int < b.Int
	}
	return a.Num < b.Num
}

func textStats(c *Column, st *Stats) {
	for _, cell := range c.Cells {
		if !cell.Valid {
			st.Missing++
			continue
		}
		if st.Count == 0 || cell.Str < st.Min.Str {
			st.Min = cell
		}
		if st.Count == 0 || cell.Str > st.Max.Str {
			st.Max = cell
		}
		st.Count++
	}
}

// StatsView is Stats formatted for display, with N/A for undefined values.
type StatsView struct {
	Column  string `json:"column"`
	DType   string `json:"dtype"`
	Count   int    `json:"count"`
	Missing int    `json:"missing"`
	Min     string `json:"min"`
	Max     string `json:"max"`
	Mean    string `json:"mean"`
	StdDev  string `json:"stdDev"`
}

// View formats s for display.
func (s Stats) View() StatsView {
	return StatsView{
		Column:  s.Column,
		DType:   s.Kind.DType(),
		Count:   s.Count,
		Missing: s.Missing,
		Min:     s.MinString(),
		Max:     s.MaxString(),
		Mean:    s.MeanString(),
		StdDev:  s.StdDevString(),
	}
}
