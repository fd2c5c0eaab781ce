package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// mustLoadCSV parses CSV text or fails the test.
func mustLoadCSV(t *testing.T, text string) *Table {
	t.Helper()
	tbl, err := Load(NewFileDescriptor("test.csv", int64(len(text))), []byte(text))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tbl
}

// buildXLSX writes rows to the first sheet of a new workbook.
func buildXLSX(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestLoad_KindInference(t *testing.T) {
	tbl := mustLoadCSV(t, "id,price,name,empty\n1,2.5,apple,\n2,3,pear,\n")

	want := map[string]Kind{
		"id":    KindInteger,
		"price": KindFloat,
		"name":  KindText,
		"empty": KindFloat,
	}
	for name, kind := range want {
		c, ok := tbl.Column(name)
		if !ok {
			t.Fatalf("column %q missing", name)
		}
		if c.Kind != kind {
			t.Errorf("column %q kind = %v, want %v", name, c.Kind, kind)
		}
	}
	if tbl.NumRows() != 2 || tbl.NumCols() != 4 {
		t.Errorf("shape = %dx%d, want 2x4", tbl.NumRows(), tbl.NumCols())
	}
}

func TestLoad_MissingTokens(t *testing.T) {
	tbl := mustLoadCSV(t, "x,y\n1,a\nNA,\nnull,N/A\n4,b\n")

	x, _ := tbl.Column("x")
	if x.Kind != KindInteger {
		t.Fatalf("x kind = %v, want integer", x.Kind)
	}
	wantValid := []bool{true, false, false, true}
	for i, c := range x.Cells {
		if c.Valid != wantValid[i] {
			t.Errorf("x[%d].Valid = %v, want %v", i, c.Valid, wantValid[i])
		}
	}

	y, _ := tbl.Column("y")
	if y.Kind != KindText {
		t.Fatalf("y kind = %v, want text", y.Kind)
	}
	if y.Cells[1].Valid || y.Cells[2].Valid {
		t.Errorf("empty and N/A text cells should be missing: %+v", y.Cells)
	}
}

func TestLoad_HeaderMangling(t *testing.T) {
	tbl := mustLoadCSV(t, "a,,a,a\n1,2,3,4\n")

	want := []string{"a", "Unnamed: 1", "a.1", "a.2"}
	if got := tbl.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestLoad_BOMAndInvalidUTF8(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,v\ncaf\xe9,1\n")...)
	tbl, err := Load(NewFileDescriptor("bom.csv", int64(len(data))), data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := tbl.Names()[0]; got != "name" {
		t.Errorf("first header = %q, want BOM stripped", got)
	}
	c, _ := tbl.Column("name")
	if got := c.Cells[0].Str; got != "caf\uFFFD" {
		t.Errorf("invalid byte not replaced: %q", got)
	}
}

func TestLoad_ShortRowsArePadded(t *testing.T) {
	tbl := mustLoadCSV(t, "a,b,c\n1,2\n3,4,5\n")

	c, _ := tbl.Column("c")
	if c.Cells[0].Valid {
		t.Error("padded cell should be missing")
	}
	if !c.Cells[1].Valid || c.Cells[1].Num != 5 {
		t.Errorf("c[1] = %+v, want 5", c.Cells[1])
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr error
	}{
		{"unsupported extension", "notes.txt", []byte("a,b\n1,2\n"), ErrUnsupportedFormat},
		{"no extension", "README", []byte("a\n"), ErrUnsupportedFormat},
		{"empty csv", "empty.csv", nil, ErrParse},
		{"blank header", "blank.csv", []byte("\n\n"), ErrParse},
		{"too many fields", "wide.csv", []byte("a,b\n1,2,3\n"), ErrParse},
		{"unterminated quote", "quote.csv", []byte("a,b\n\"1,2\n"), ErrParse},
		{"xlsx that is not a zip", "fake.xlsx", []byte("a,b\n1,2\n"), ErrParse},
		{"csv that is an image", "pic.csv", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(NewFileDescriptor(tt.file, int64(len(tt.data))), tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_WideRecordPosition(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{
			name: "csv line after a quoted newline",
			file: "wide.csv",
			data: []byte("a,b\n\"first\nsecond\",1\nx,2,3\n"),
			want: "line 4: expected 2 fields, saw 3",
		},
		{
			name: "xlsx sheet row",
			file: "wide.xlsx",
			data: buildXLSX(t, [][]interface{}{{"a", "b"}, {1, 2}, {1, 2, 3}}),
			want: "row 3: expected 2 fields, saw 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(NewFileDescriptor(tt.file, int64(len(tt.data))), tt.data)
			if !errors.Is(err, ErrParse) {
				t.Fatalf("Load() error = %v, want ErrParse", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoad_XLSX(t *testing.T) {
	data := buildXLSX(t, [][]interface{}{
		{"city", "population", "area"},
		{"Oslo", 709000, 454.0},
		{"Bergen", 285000, 465.3},
	})

	tbl, err := Load(NewFileDescriptor("cities.xlsx", int64(len(data))), data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := tbl.Names(), []string{"city", "population", "area"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	pop, _ := tbl.Column("population")
	if pop.Kind != KindInteger || pop.Cells[1].Num != 285000 {
		t.Errorf("population = %v %+v, want integer 285000", pop.Kind, pop.Cells[1])
	}
	area, _ := tbl.Column("area")
	if area.Kind != KindFloat {
		t.Errorf("area kind = %v, want float", area.Kind)
	}
}

func TestLoad_XLSXTrailingBlankRows(t *testing.T) {
	data := buildXLSX(t, [][]interface{}{
		{"a", "b"},
		{1, 2},
		{nil, nil},
	})

	tbl, err := Load(NewFileDescriptor("t.xlsx", int64(len(data))), data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.NumRows() != 1 {
		t.Errorf("NumRows() = %d, want 1", tbl.NumRows())
	}
}

func TestNewFileDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		wantExt string
	}{
		{"data.CSV", "csv"},
		{"report.v2.xlsx", "xlsx"},
		{"README", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewFileDescriptor(tt.name, 0).Ext; got != tt.wantExt {
				t.Errorf("Ext = %q, want %q", got, tt.wantExt)
			}
		})
	}
}
