package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/transformer/internal/core"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return sb.String()
}

func sampleView() core.FileView {
	return core.FileView{
		ID:               "f1",
		Name:             `<script>alert(1)</script>.csv`,
		SizeKiB:          "0.02",
		Rows:             2,
		Cols:             2,
		Columns:          []core.ColumnInfo{{Name: "a", DType: "int64"}, {Name: "b", DType: "object"}},
		AvailableColumns: []string{"a", "b", "c"},
		Preview:          [][]string{{"1", "x"}, {"2", "y & z"}},
		StatsColumn:      "a",
		Stats:            &core.StatsView{Column: "a", DType: "int64", Count: 2, Min: "1", Max: "2", Mean: "1.5", StdDev: "0.7071067811865476"},
		Target:           core.FormatXLSX,
	}
}

func TestIndex_EscapesUserContent(t *testing.T) {
	out := render(t, Index(IndexParams{Files: []core.FileView{sampleView()}, MaxFileSize: 1 << 20, MaxFiles: 5}))

	if strings.Contains(out, "<script>alert(1)") {
		t.Error("file name rendered unescaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Error("escaped file name missing")
	}
	if !strings.Contains(out, "y &amp; z") {
		t.Error("preview cell not escaped")
	}
}

func TestFilePanel_ReflectsChoices(t *testing.T) {
	out := render(t, FilePanel(sampleView()))

	for _, want := range []string{
		`action="/files/f1/clean"`,
		`name="columns" value="a" checked`,
		`name="columns" value="c">`,
		`value="a" selected`,
		`value="xlsx" checked`,
		`<td>0.7071067811865476</td>`,
		`value="true"`, // chart hidden, button shows it
	} {
		if !strings.Contains(out, want) {
			t.Errorf("panel missing %s", want)
		}
	}
	if strings.Contains(out, "chart.png") {
		t.Error("chart image rendered while visualization is off")
	}
}

func TestFilePanel_Chart(t *testing.T) {
	v := sampleView()
	v.Visualize = true
	v.Chart = &core.ChartData{Index: []int{0, 1}}
	if out := render(t, FilePanel(v)); !strings.Contains(out, `src="/files/f1/chart.png"`) {
		t.Error("chart image missing")
	}

	v.Chart = nil
	v.ChartWarning = "No numeric columns available for visualization."
	if out := render(t, FilePanel(v)); !strings.Contains(out, "No numeric columns") {
		t.Error("chart warning missing")
	}
}

func TestLayout_Theme(t *testing.T) {
	dark := render(t, Index(IndexParams{DarkMode: true}))
	if !strings.Contains(dark, `<body class="dark">`) || !strings.Contains(dark, "Light mode") {
		t.Error("dark layout not applied")
	}
	light := render(t, Index(IndexParams{}))
	if strings.Contains(light, `class="dark"`) || !strings.Contains(light, "No files uploaded yet") {
		t.Error("light layout wrong")
	}
}

func TestAuditLogPage(t *testing.T) {
	res := &core.AuditLogResult{
		Entries: []core.AuditEntry{{
			Action: core.ActionConvert, Severity: core.SeverityMedium,
			FileName: "a.csv", Detail: "a.xlsx (10 bytes)", RowsAffected: 3,
			CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		}},
		TotalCount: 120, Page: 2, PageSize: 50, TotalPages: 3,
	}
	out := render(t, AuditLogPage(AuditLogParams{Action: "convert", Result: res}))

	for _, want := range []string{
		"2026-03-01 09:30:00",
		"a.xlsx (10 bytes)",
		`href="/audit-log?action=convert&amp;page=1"`,
		`href="/audit-log?action=convert&amp;page=3"`,
		`value="convert" selected`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("audit page missing %s", want)
		}
	}
}

func TestErrorPage(t *testing.T) {
	out := render(t, ErrorPage("File not found", "Upload it again", "SES002"))
	if !strings.Contains(out, "Code: SES002") || !strings.Contains(out, "Upload it again") {
		t.Errorf("error page = %s", out)
	}
}

func TestLayout_WrapsChildren(t *testing.T) {
	out := render(t, ErrorPage("Bad file", "", "FILE004"))

	main := strings.Index(out, "<main>")
	alert := strings.Index(out, `data-kind="error" role="alert"`)
	end := strings.Index(out, "</main>")
	if main < 0 || alert < main || end < alert {
		t.Errorf("alert not rendered inside <main>:\n%s", out)
	}
	if !strings.Contains(out, "<title>Error</title>") {
		t.Error("missing page title")
	}
	if strings.Contains(out, "<br>Bad file") || strings.Count(out, "<br>") != 1 {
		t.Errorf("empty action should not add a line break:\n%s", out)
	}
}

func TestFlashes_Kinds(t *testing.T) {
	out := render(t, Flashes([]Flash{
		{Kind: "success", Message: "Saved"},
		{Kind: "warning", Message: "a < b"},
	}))

	for _, want := range []string{
		`<div role="status" class="flash" data-kind="success">Saved</div>`,
		`<div role="status" class="flash" data-kind="warning">a &lt; b</div>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("flashes missing %s:\n%s", want, out)
		}
	}
}

func TestRender_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var sb strings.Builder
	if err := Index(IndexParams{}).Render(ctx, &sb); err == nil {
		t.Error("Render with a canceled context should fail")
	}
}
