package core

import "fmt"

// Project returns a new table with only the named columns, in the given order.
// An empty selection yields zero columns with the row count preserved.
// Repeated names keep their first position.
func Project(t *Table, names []string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	picked := make(map[string]bool, len(names))

	for _, name := range names {
		if picked[name] {
			continue
		}
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
		picked[name] = true
		cols = append(cols, c.clone())
	}

	return &Table{Columns: cols, rows: t.NumRows()}, nil
}
