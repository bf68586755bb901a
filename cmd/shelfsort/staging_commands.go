package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shelfsort/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect staging directories left behind by earlier runs",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <source>",
		Short: "List staging directories beside a source directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := directoryArg(args[0])
			if err != nil {
				return err
			}

			runs, err := staging.ListRuns(source, cfg.Staging.DirPrefix)
			if err != nil {
				return fmt.Errorf("list staging directories: %w", err)
			}

			var totalSize int64
			for _, run := range runs {
				totalSize += run.Size
			}
			if ctx.JSONMode() {
				if runs == nil {
					runs = []staging.RunInfo{}
				}
				return writeJSON(cmd, map[string]any{
					"source":           source,
					"directories":      runs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No staging directories found")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				age := time.Since(run.StartedAt).Truncate(time.Minute)
				rows = append(rows, []string{run.Name, formatDuration(age), strconv.Itoa(run.Items), formatBytes(run.Size)})
			}

			fmt.Fprintln(out, renderBooks([]string{"Directory", "Age", "Items", "Size"}, rows, 1, 2, 3))
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(runs), formatBytes(totalSize))
			return nil
		},
	}
}
