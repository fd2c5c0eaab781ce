package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/transformer/internal/core"
	"github.com/JonMunkholm/transformer/internal/logging"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF8C42"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB84D")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2ECC71")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB84D"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4757")).
			Bold(true)
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "tabconv",
		Short: "Inspect, clean and convert CSV and XLSX files",
		Long: `tabconv loads a CSV or XLSX file, optionally removes duplicate rows,
fills missing numeric values with the column mean and keeps a subset of
columns, then prints statistics, draws a bar chart or writes the table in
the other format.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logLevel, "text"))
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(newInspectCmd(), newConvertCmd())
	return root
}

// cleaningFlags are the pipeline stages shared by every subcommand.
type cleaningFlags struct {
	dedupe  bool
	fill    bool
	columns []string
}

func (f *cleaningFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dedupe, "dedupe", false, "Remove duplicate rows")
	cmd.Flags().BoolVar(&f.fill, "fill-missing", false, "Fill missing numeric values with the column mean")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "Keep only these columns, in this order")
}

func (f *cleaningFlags) options() core.PipelineOptions {
	return core.PipelineOptions{
		RemoveDuplicates: f.dedupe,
		FillMissing:      f.fill,
		Columns:          f.columns,
	}
}

// readInput reads a file into memory and describes it by its base name.
func readInput(path string) (core.FileDescriptor, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.FileDescriptor{}, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return core.NewFileDescriptor(filepath.Base(path), int64(len(data))), data, nil
}
