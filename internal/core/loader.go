package core

// loader.go turns uploaded bytes into a typed Table.
//
// Both formats go through the same steps once the raw records are read:
//
//  1. The first record is the header; blank names become "Unnamed: <i>" and
//     duplicates get ".1", ".2", ... suffixes.
//  2. Short records are padded with missing values; long records fail.
//  3. Each column's kind is inferred once (integer, float or text).

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

const (
	FormatExtCSV  = "csv"
	FormatExtXLSX = "xlsx"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// naTokens are cell values treated as missing, in addition to the empty string.
var naTokens = map[string]bool{
	"NA": true, "N/A": true, "n/a": true, "NaN": true, "nan": true, "-NaN": true,
	"-nan": true, "null": true, "NULL": true, "None": true, "#N/A": true,
	"#N/A N/A": true, "#NA": true, "<NA>": true, "-1.#IND": true, "1.#IND": true,
	"-1.#QNAN": true, "1.#QNAN": true,
}

// Load parses data according to the descriptor's extension.
func Load(desc FileDescriptor, data []byte) (*Table, error) {
	ext := strings.TrimPrefix(strings.ToLower(desc.Ext), ".")

	var parse func([]byte) (rawRecords, error)
	switch ext {
	case FormatExtCSV:
		parse = readCSVRecords
	case FormatExtXLSX:
		parse = readXLSXRecords
	default:
		return nil, UnsupportedFormat(ext)
	}

	if len(data) == 0 {
		return nil, ParseError("empty file")
	}
	if err := checkContent(ext, data); err != nil {
		return nil, err
	}

	recs, err := parse(data)
	if err != nil {
		return nil, err
	}
	return buildTable(recs)
}

// checkContent rejects bytes whose detected type does not match the extension.
func checkContent(ext string, data []byte) error {
	mt := mimetype.Detect(data)

	switch ext {
	case FormatExtXLSX:
		if !hasAncestor(mt, "application/zip") {
			return ParseError(fmt.Sprintf("content is %s, not a spreadsheet", mt.String()))
		}
	case FormatExtCSV:
		// Undetectable bytes fall back to octet-stream and are decoded lossily.
		if !hasAncestor(mt, "text/plain") && !mt.Is("application/octet-stream") {
			return ParseError(fmt.Sprintf("content is %s, not comma-separated text", mt.String()))
		}
	}
	return nil
}

// hasAncestor walks the detected type and its parents looking for mime.
func hasAncestor(mt *mimetype.MIME, mime string) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(mime) {
			return true
		}
	}
	return false
}

// normalizeText strips a UTF-8 BOM and replaces invalid UTF-8 sequences.
func normalizeText(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("\uFFFD"))
}

// rawRecords are untyped rows with the 1-based position each one starts
// at in the source: a text line for CSV, a sheet row for XLSX.
type rawRecords struct {
	rows  [][]string
	lines []int
	unit  string
}

func readCSVRecords(data []byte) (rawRecords, error) {
	r := csv.NewReader(bytes.NewReader(normalizeText(data)))
	r.FieldsPerRecord = -1

	recs := rawRecords{unit: "line"}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rawRecords{}, ParseError(err.Error())
		}
		line, _ := r.FieldPos(0)
		recs.rows = append(recs.rows, rec)
		recs.lines = append(recs.lines, line)
	}
	return recs, nil
}

func readXLSXRecords(data []byte) (rawRecords, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return rawRecords{}, ParseError(err.Error())
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return rawRecords{}, ParseError("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return rawRecords{}, ParseError(err.Error())
	}
	lines := make([]int, len(rows))
	for i := range lines {
		lines[i] = i + 1
	}

	// Leading and trailing blank rows are sheet padding, not data.
	for len(rows) > 0 && isEmptyRow(rows[0]) {
		rows, lines = rows[1:], lines[1:]
	}
	for len(rows) > 1 && isEmptyRow(rows[len(rows)-1]) {
		rows, lines = rows[:len(rows)-1], lines[:len(lines)-1]
	}
	return rawRecords{rows: rows, lines: lines, unit: "row"}, nil
}

// buildTable converts raw records into typed columns.
func buildTable(recs rawRecords) (*Table, error) {
	records := recs.rows
	if len(records) == 0 || isEmptyRow(records[0]) {
		return nil, ParseError("empty file: no columns to parse")
	}

	header := uniqueHeader(records[0])
	body := records[1:]

	raw := make([][]string, len(header))
	for i := range raw {
		raw[i] = make([]string, len(body))
	}

	for r, rec := range body {
		if len(rec) > len(header) && !isEmptyRow(rec[len(header):]) {
			return nil, ParseError(fmt.Sprintf("%s %d: expected %d fields, saw %d",
				recs.unit, recs.lines[r+1], len(header), len(rec)))
		}
		for c := range header {
			if c < len(rec) {
				raw[c][r] = rec[c]
			}
		}
	}

	cols := make([]*Column, len(header))
	for i, name := range header {
		cols[i] = inferColumn(name, raw[i])
	}
	return NewTable(len(body), cols...), nil
}

// uniqueHeader fills blank names and de-duplicates the header.
func uniqueHeader(raw []string) []string {
	header := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	suffix := make(map[string]int)

	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if used[name] {
			base := name
			for used[name] {
				suffix[base]++
				name = base + "." + strconv.Itoa(suffix[base])
			}
		}
		used[name] = true
		header[i] = name
	}
	return header
}

// inferColumn decides the column kind once and builds its cells.
func inferColumn(name string, values []string) *Column {
	kind := KindInteger
	present := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if isMissingToken(v) {
			continue
		}
		present++
		if kind == KindInteger {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}
			kind = KindFloat
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			kind = KindText
			break
		}
	}
	// An all-missing column is numeric with no values.
	if present == 0 {
		kind = KindFloat
	}

	cells := make([]Cell, len(values))
	for i, v := range values {
		trimmed := strings.TrimSpace(v)
		switch {
		case isMissingToken(trimmed):
			cells[i] = Missing
		case kind == KindText:
			cells[i] = TextCell(v)
		case kind == KindInteger:
			n, _ := strconv.ParseInt(trimmed, 10, 64)
			cells[i] = IntCell(n)
		default:
			f, _ := strconv.ParseFloat(trimmed, 64)
			cells[i] = NumCell(f)
		}
	}

	return &Column{Name: name, Kind: kind, Cells: cells}
}

func isMissingToken(s string) bool {
	return s == "" || naTokens[s]
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
