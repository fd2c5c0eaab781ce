package core

// convert.go serializes a Table to a downloadable artifact.
//
// Both outputs carry a header row and no index column. Missing values become
// empty CSV fields or blank spreadsheet cells.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a conversion target.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	MIMETypeCSV  = "text/csv"
	MIMETypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// xlsxSheet is the single sheet written to converted workbooks.
const xlsxSheet = "Sheet1"

// ParseFormat accepts extensions and UI labels ("CSV", "Excel").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: unknown target format %q", ErrInvalidCommand, s)
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// MIMEType returns the content type of the serialized format.
func (f Format) MIMEType() string {
	if f == FormatXLSX {
		return MIMETypeXLSX
	}
	return MIMETypeCSV
}

// Label is the user-facing name of the format.
func (f Format) Label() string {
	if f == FormatXLSX {
		return "Excel"
	}
	return "CSV"
}

// Artifact is a converted file ready for download.
type Artifact struct {
	Data     []byte
	FileName string
	MIMEType string
}

// DerivedName replaces the final extension of name with the format's.
func DerivedName(name string, f Format) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + f.Extension()
}

// Convert serializes t into the requested format, naming the artifact after desc.
func Convert(t *Table, f Format, desc FileDescriptor) (*Artifact, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatCSV:
		data, err = writeCSV(t)
	case FormatXLSX:
		data, err = writeXLSX(t)
	default:
		return nil, ConversionError(fmt.Errorf("unknown format %q", f))
	}
	if err != nil {
		return nil, ConversionError(err)
	}

	return &Artifact{
		Data:     data,
		FileName: DerivedName(desc.Name, f),
		MIMEType: f.MIMEType(),
	}, nil
}

func writeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Names()); err != nil {
		return nil, err
	}
	for r := 0; r < t.NumRows(); r++ {
		if err := w.Write(t.Row(r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeXLSX(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return nil, err
	}

	header := make([]interface{}, t.NumCols())
	for i, name := range t.Names() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}

	for r := 0; r < t.NumRows(); r++ {
		row := make([]interface{}, t.NumCols())
		for i, c := range t.Columns {
			row[i] = xlsxValue(c.Kind, c.Cells[r])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, err
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// xlsxValue maps a cell to the value the stream writer stores.
// A nil value leaves the cell blank.
func xlsxValue(kind Kind, c Cell) interface{} {
	if !c.Valid {
		return nil
	}
	switch kind {
	case KindInteger:
		return c.Int
	case KindFloat:
		return c.Num
	default:
		return c.Str
	}
}
