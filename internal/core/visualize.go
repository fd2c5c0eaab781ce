package core

import "math"

// MaxChartSeries is how many numeric columns the chart shows.
const MaxChartSeries = 2

// Series is one plotted column. Missing and non-finite values are nil.
type Series struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// ChartData is a row-indexed set of series ready for a bar rendering.
type ChartData struct {
	Index  []int    `json:"index"`
	Series []Series `json:"series"`
}

// Visualize takes the first two numeric columns in table order and returns
// their raw row values. Returns ErrNoNumericData if the table has none.
func Visualize(t *Table) (*ChartData, error) {
	numeric := t.NumericColumns()
	if len(numeric) == 0 {
		return nil, ErrNoNumericData
	}
	if len(numeric) > MaxChartSeries {
		numeric = numeric[:MaxChartSeries]
	}

	data := &ChartData{
		Index:  make([]int, t.NumRows()),
		Series: make([]Series, len(numeric)),
	}
	for i := range data.Index {
		data.Index[i] = i
	}

	for i, c := range numeric {
		values := make([]*float64, len(c.Cells))
		for j, cell := range c.Cells {
			if cell.Valid && !math.IsInf(cell.Num, 0) && !math.IsNaN(cell.Num) {
				v := cell.Num
				values[j] = &v
			}
		}
		data.Series[i] = Series{Name: c.Name, Values: values}
	}
	return data, nil
}
