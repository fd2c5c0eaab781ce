package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/transformer/internal/core"
)

func newConvertCmd() *cobra.Command {
	var (
		clean  cleaningFlags
		to     string
		output string
	)

	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Clean a file and write it as CSV or XLSX",
		Long: `convert runs the selected cleaning stages and writes the result.
Without --output the file is written next to the input with the extension
of the target format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := core.ParseFormat(to)
			if err != nil {
				return err
			}

			desc, data, err := readInput(args[0])
			if err != nil {
				return err
			}

			opts := clean.options()
			opts.Target = target
			res, err := core.RunPipeline(desc, data, opts)
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = filepath.Join(filepath.Dir(args[0]), res.Artifact.FileName)
			}
			if abs, err := filepath.Abs(args[0]); err == nil {
				if dst, err := filepath.Abs(path); err == nil && dst == abs {
					return fmt.Errorf("refusing to overwrite the input file %s", args[0])
				}
			}
			if err := os.WriteFile(path, res.Artifact.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			out := cmd.OutOrStdout()
			for _, msg := range res.Messages {
				fmt.Fprintln(out, warnStyle.Render(msg))
			}
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Wrote %s (%d rows × %d columns, %s)",
				path, res.Table.NumRows(), res.Table.NumCols(), target.Label())))
			return nil
		},
	}

	clean.register(cmd)
	cmd.Flags().StringVarP(&to, "to", "t", "csv", "Target format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: next to the input)")
	return cmd
}
