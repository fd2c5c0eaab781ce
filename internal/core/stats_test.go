package core

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestProject(t *testing.T) {
	tbl := mustLoadCSV(t, "a,b,c\n1,x,2.5\n2,y,3.5\n")

	tests := []struct {
		name      string
		columns   []string
		wantNames []string
		wantErr   error
	}{
		{"full projection", []string{"a", "b", "c"}, []string{"a", "b", "c"}, nil},
		{"reorder", []string{"c", "a"}, []string{"c", "a"}, nil},
		{"repeated name", []string{"b", "b", "a"}, []string{"b", "a"}, nil},
		{"empty selection", []string{}, []string{}, nil},
		{"unknown column", []string{"a", "zzz"}, nil, ErrColumnNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Project(tbl, tt.columns)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Project() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(got.Names(), tt.wantNames) {
				t.Errorf("Names() = %v, want %v", got.Names(), tt.wantNames)
			}
			if got.NumRows() != tbl.NumRows() {
				t.Errorf("NumRows() = %d, want %d", got.NumRows(), tbl.NumRows())
			}
		})
	}
}

func TestProject_FullIsIdentity(t *testing.T) {
	tbl := mustLoadCSV(t, "a,b,c\n1,x,\n2,,3.5\n")

	got, err := Project(tbl, tbl.Names())
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !got.Equal(tbl) {
		t.Error("projection onto all columns changed the table")
	}
}

func TestColumnStats_Numeric(t *testing.T) {
	tbl := mustLoadCSV(t, "x\n2\n4\nNA\n4\n4\n5\n5\n7\n9\n")

	st, err := ColumnStats(tbl, "x")
	if err != nil {
		t.Fatalf("ColumnStats: %v", err)
	}
	if st.Count != 8 || st.Missing != 1 {
		t.Errorf("Count/Missing = %d/%d, want 8/1", st.Count, st.Missing)
	}
	if st.MinString() != "2" || st.MaxString() != "9" {
		t.Errorf("min/max = %s/%s, want 2/9", st.MinString(), st.MaxString())
	}
	if st.Mean == nil || *st.Mean != 5 {
		t.Errorf("Mean = %v, want 5", st.Mean)
	}
	// Sample standard deviation of 2,4,4,4,5,5,7,9.
	want := math.Sqrt(32.0 / 7.0)
	if st.StdDev == nil || math.Abs(*st.StdDev-want) > 1e-12 {
		t.Errorf("StdDev = %v, want %v", st.StdDev, want)
	}
}

func TestColumnStats_TextIsLexicographic(t *testing.T) {
	tbl := mustLoadCSV(t, "name\npear\napple\nNA\nzucchini\n")

	st, err := ColumnStats(tbl, "name")
	if err != nil {
		t.Fatalf("ColumnStats: %v", err)
	}
	if st.MinString() != "apple" || st.MaxString() != "zucchini" {
		t.Errorf("min/max = %s/%s, want apple/zucchini", st.MinString(), st.MaxString())
	}
	if st.Mean != nil || st.StdDev != nil {
		t.Error("mean and std dev should be undefined for text")
	}
	if st.MeanString() != NotAvailable || st.StdDevString() != NotAvailable {
		t.Errorf("display = %s/%s, want N/A", st.MeanString(), st.StdDevString())
	}
}

func TestColumnStats_Undefined(t *testing.T) {
	tbl := mustLoadCSV(t, "one,none\n3.5,\n,\n")

	one, _ := ColumnStats(tbl, "one")
	if one.Mean == nil || *one.Mean != 3.5 {
		t.Errorf("single value mean = %v, want 3.5", one.Mean)
	}
	if one.StdDev != nil {
		t.Error("std dev of one value should be undefined")
	}

	none, _ := ColumnStats(tbl, "none")
	v := none.View()
	if v.Min != NotAvailable || v.Max != NotAvailable || v.Mean != NotAvailable || v.StdDev != NotAvailable {
		t.Errorf("all-missing view = %+v, want N/A everywhere", v)
	}
}

func TestColumnStats_LargeIntegerBounds(t *testing.T) {
	tbl := mustLoadCSV(t, "id\n9007199254740993\n9007199254740992\n")

	st, err := ColumnStats(tbl, "id")
	if err != nil {
		t.Fatalf("ColumnStats: %v", err)
	}
	if st.MinString() != "9007199254740992" || st.MaxString() != "9007199254740993" {
		t.Errorf("min/max = %s/%s", st.MinString(), st.MaxString())
	}
}

func TestColumnStats_UnknownColumn(t *testing.T) {
	tbl := mustLoadCSV(t, "a\n1\n")
	if _, err := ColumnStats(tbl, "b"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("error = %v, want ErrColumnNotFound", err)
	}
}

func TestVisualize(t *testing.T) {
	t.Run("first two numeric columns", func(t *testing.T) {
		tbl := mustLoadCSV(t, "name,a,b,c\nx,1,2.5,9\ny,,3.5,8\n")

		data, err := Visualize(tbl)
		if err != nil {
			t.Fatalf("Visualize: %v", err)
		}
		if len(data.Series) != 2 || data.Series[0].Name != "a" || data.Series[1].Name != "b" {
			t.Fatalf("series = %+v, want a and b", data.Series)
		}
		if !reflect.DeepEqual(data.Index, []int{0, 1}) {
			t.Errorf("Index = %v, want [0 1]", data.Index)
		}
		if data.Series[0].Values[1] != nil {
			t.Error("missing value should be nil")
		}
		if got := *data.Series[1].Values[0]; got != 2.5 {
			t.Errorf("b[0] = %v, want 2.5", got)
		}
	})

	t.Run("single numeric column", func(t *testing.T) {
		tbl := mustLoadCSV(t, "name,a\nx,1\n")
		data, err := Visualize(tbl)
		if err != nil {
			t.Fatalf("Visualize: %v", err)
		}
		if len(data.Series) != 1 {
			t.Errorf("len(Series) = %d, want 1", len(data.Series))
		}
	})

	t.Run("non-finite values are gaps", func(t *testing.T) {
		tbl := mustLoadCSV(t, "x,y\n1,inf\n2,3\n")
		data, err := Visualize(tbl)
		if err != nil {
			t.Fatalf("Visualize: %v", err)
		}
		if data.Series[1].Values[0] != nil {
			t.Errorf("inf should be nil, got %v", *data.Series[1].Values[0])
		}
		if _, err := json.Marshal(data); err != nil {
			t.Errorf("chart data does not encode: %v", err)
		}
	})

	t.Run("no numeric columns", func(t *testing.T) {
		tbl := mustLoadCSV(t, "name,city\nx,Oslo\n")
		data, err := Visualize(tbl)
		if !errors.Is(err, ErrNoNumericData) {
			t.Fatalf("error = %v, want ErrNoNumericData", err)
		}
		if data != nil {
			t.Error("no chart data expected")
		}
	})
}
