package core

import (
	"strings"
	"testing"
)

func TestRemoveDuplicates_KeepsFirstOccurrenceInOrder(t *testing.T) {
	tbl := mustLoadCSV(t, "a,b\n1,2\n1,2\n3,4\n")

	res := RemoveDuplicates(tbl)

	if got := res.Table.NumRows(); got != 2 {
		t.Fatalf("NumRows() = %d, want 2", got)
	}
	want := [][]string{{"1", "2"}, {"3", "4"}}
	for i, row := range want {
		if got := res.Table.Row(i); strings.Join(got, ",") != strings.Join(row, ",") {
			t.Errorf("row %d = %v, want %v", i, got, row)
		}
	}
	if !strings.Contains(res.Message, "1 of 3") {
		t.Errorf("Message = %q, want count of removed rows", res.Message)
	}
	if tbl.NumRows() != 3 {
		t.Error("input table was modified")
	}
}

func TestRemoveDuplicates_MissingEqualsMissing(t *testing.T) {
	tbl := mustLoadCSV(t, "a,b\n1,\n1,\n1,x\n")

	res := RemoveDuplicates(tbl)
	if got := res.Table.NumRows(); got != 2 {
		t.Errorf("NumRows() = %d, want 2", got)
	}
}

func TestRemoveDuplicates_SeparatorsDoNotCollide(t *testing.T) {
	tbl := mustLoadCSV(t, "a,b\n\"x|1:\",y\nx,\"|1:y\"\n")

	res := RemoveDuplicates(tbl)
	if got := res.Table.NumRows(); got != 2 {
		t.Errorf("NumRows() = %d, want 2 distinct rows", got)
	}
}

func TestRemoveDuplicates_LargeIntegersStayDistinct(t *testing.T) {
	tbl := mustLoadCSV(t, "id\n9007199254740992\n9007199254740993\n9007199254740993\n")

	res := RemoveDuplicates(tbl)
	if got := res.Table.NumRows(); got != 2 {
		t.Fatalf("NumRows() = %d, want 2", got)
	}
	if got := res.Table.Row(1)[0]; got != "9007199254740993" {
		t.Errorf("second row = %q, want 9007199254740993", got)
	}
}

func TestFillMissingNumeric_WidenedColumnDropsIntegerValues(t *testing.T) {
	tbl := mustLoadCSV(t, "x\n1\n\n2\n")

	out := FillMissingNumeric(tbl).Table
	x, _ := out.Column("x")
	if x.Kind != KindFloat {
		t.Fatalf("kind = %v, want float", x.Kind)
	}
	if !out.Equal(mustLoadCSV(t, "x\n1.0\n1.5\n2.0\n")) {
		t.Errorf("filled column = %v, want the same cells as a loaded float column", out.Head(3))
	}
}

func TestFillMissingNumeric_IntegralMeanKeepsIntegers(t *testing.T) {
	tbl := mustLoadCSV(t, "x\n1\n\n3\n")

	out := FillMissingNumeric(tbl).Table
	x, _ := out.Column("x")
	if x.Kind != KindInteger || x.Cells[1].Int != 2 {
		t.Errorf("filled = %+v kind %v, want integer 2", x.Cells[1], x.Kind)
	}
}

func TestRemoveDuplicates_Idempotent(t *testing.T) {
	inputs := []string{
		"a,b\n1,2\n1,2\n3,4\n",
		"a\n\n",
		"x,y,z\n1,a,2.5\n1,a,2.5\n,,\n,,\n2,b,\n",
		"only\n1\n1\n1\n",
	}
	for _, in := range inputs {
		tbl := mustLoadCSV(t, in)
		once := RemoveDuplicates(tbl).Table
		twice := RemoveDuplicates(once).Table
		if !once.Equal(twice) {
			t.Errorf("RemoveDuplicates not idempotent for %q", in)
		}
	}
}

func TestFillMissingNumeric_UsesColumnMean(t *testing.T) {
	tbl := mustLoadCSV(t, "x\n1\nNA\n3\n")

	res := FillMissingNumeric(tbl)

	x, _ := res.Table.Column("x")
	want := []float64{1, 2, 3}
	for i, w := range want {
		if !x.Cells[i].Valid || x.Cells[i].Num != w {
			t.Errorf("x[%d] = %+v, want %v", i, x.Cells[i], w)
		}
	}
	if x.Kind != KindInteger {
		t.Errorf("kind = %v, want integer kept for integral mean", x.Kind)
	}

	orig, _ := tbl.Column("x")
	if orig.Cells[1].Valid {
		t.Error("input table was modified")
	}
}

func TestFillMissingNumeric_NonIntegralMeanWidensKind(t *testing.T) {
	tbl := mustLoadCSV(t, "x\n1\nNA\n2\n")

	x, _ := FillMissingNumeric(tbl).Table.Column("x")
	if x.Kind != KindFloat {
		t.Errorf("kind = %v, want float", x.Kind)
	}
	if x.Cells[1].Num != 1.5 {
		t.Errorf("filled value = %v, want 1.5", x.Cells[1].Num)
	}
}

func TestFillMissingNumeric_LeavesOtherColumns(t *testing.T) {
	tbl := mustLoadCSV(t, "full,text,none\n1,a,\n2,,\n3,c,\n")

	res := FillMissingNumeric(tbl)

	full, _ := res.Table.Column("full")
	origFull, _ := tbl.Column("full")
	for i := range full.Cells {
		if full.Cells[i] != origFull.Cells[i] {
			t.Errorf("fully populated column changed at row %d", i)
		}
	}

	text, _ := res.Table.Column("text")
	if text.Cells[1].Valid {
		t.Error("text column should keep its missing value")
	}

	none, _ := res.Table.Column("none")
	for i, c := range none.Cells {
		if c.Valid {
			t.Errorf("all-missing column filled at row %d", i)
		}
	}
}
