package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/transformer/internal/core"
)

func newInspectCmd() *cobra.Command {
	var (
		clean     cleaningFlags
		rows      int
		statsCol  string
		chartPath string
		dark      bool
	)

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show column types, a preview and statistics of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, data, err := readInput(args[0])
			if err != nil {
				return err
			}

			opts := clean.options()
			opts.StatsColumn = statsCol
			opts.Visualize = chartPath != ""

			res, err := core.RunPipeline(desc, data, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSummary(out, res, rows)

			// Without --stats the first column of the working table is summarized.
			if res.Stats == nil && res.Table.NumCols() > 0 {
				st, err := core.ColumnStats(res.Table, res.Table.Columns[0].Name)
				if err != nil {
					return err
				}
				res.Stats = &st
			}
			if res.Stats != nil {
				printStats(out, res.Stats.View())
			}
			if res.Chart != nil {
				img, err := core.RenderBarChart(res.Chart, core.ChartOptions{Dark: dark})
				if err != nil {
					return err
				}
				if err := os.WriteFile(chartPath, img, 0o644); err != nil {
					return fmt.Errorf("write chart: %w", err)
				}
				slog.Debug("chart written", "path", chartPath, "bytes", len(img))
				fmt.Fprintln(out, successStyle.Render("Chart written to "+chartPath))
			}
			return nil
		},
	}

	clean.register(cmd)
	cmd.Flags().IntVarP(&rows, "rows", "n", 5, "Number of preview rows")
	cmd.Flags().StringVar(&statsCol, "stats", "", "Column to summarize (default: the first column)")
	cmd.Flags().StringVar(&chartPath, "chart", "", "Write a bar chart of the numeric columns to this PNG file")
	cmd.Flags().BoolVar(&dark, "dark", false, "Draw the chart on a dark background")
	return cmd
}

func printSummary(w io.Writer, res *core.PipelineResult, rows int) {
	t := res.Table
	fmt.Fprintln(w, titleStyle.Render(res.Descriptor.Name))
	fmt.Fprintln(w, subtitleStyle.Render(fmt.Sprintf("%.1f KiB · %d rows × %d columns",
		res.Descriptor.SizeKiB(), t.NumRows(), t.NumCols())))

	for _, msg := range res.Messages {
		fmt.Fprintln(w, warnStyle.Render(msg))
	}

	types := make([][]string, 0, t.NumCols())
	for _, c := range t.Columns {
		types = append(types, []string{c.Name, c.Kind.DType()})
	}
	fmt.Fprintln(w, renderTable([]string{"column", "dtype"}, types))

	if t.NumCols() == 0 {
		fmt.Fprintln(w, subtitleStyle.Render("No columns selected."))
		return
	}
	fmt.Fprintln(w, renderTable(t.Names(), t.Head(rows)))
}

func printStats(w io.Writer, st core.StatsView) {
	fmt.Fprintln(w, titleStyle.Render("Statistics: "+st.Column))
	fmt.Fprintln(w, renderTable([]string{"statistic", "value"}, [][]string{
		{"dtype", st.DType},
		{"count", strconv.Itoa(st.Count)},
		{"missing", strconv.Itoa(st.Missing)},
		{"min", st.Min},
		{"max", st.Max},
		{"mean", st.Mean},
		{"std", st.StdDev},
	}))
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(subtitleStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}
