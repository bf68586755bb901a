package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"shelfsort/internal/tagging"
)

func newTagCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var force bool

	cmd := &cobra.Command{
		Use:   "tag <library>",
		Short: "Write metadata and cover tags into every book's audio files",
		Long: `Tag walks every book (a folder with metadata.json) under the library and
writes album, artist, chapter titles, track numbers and the cover into each
audio file.

Modes:
  incremental  skip books whose tags are newer than their metadata and files (default)
  all          rewrite text and cover for every book
  text         rewrite text tags only, keeping embedded pictures
  cover        rewrite embedded pictures only, keeping text tags`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup()
			if err != nil {
				return err
			}
			root, err := directoryArg(args[0])
			if err != nil {
				return err
			}
			mode, err := tagging.ParseMode(modeFlag)
			if err != nil {
				return err
			}

			writer := tagging.NewWriter(cfg, logger)
			stats, err := writer.WriteTags(cmd.Context(), root, tagging.Options{Mode: mode, Force: force})
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, stats)
			}
			printTagStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", string(tagging.ModeIncremental), "Tagging mode: incremental, all, text or cover")
	cmd.Flags().BoolVar(&force, "force", false, "Ignore the tags-written marker")
	return cmd
}

func printTagStats(out io.Writer, stats tagging.Stats) {
	fmt.Fprintln(out, renderTallies("Tagging", []tally{
		{"Books seen", stats.BooksSeen},
		{"Books tagged", stats.BooksTagged},
		{"Books skipped", stats.BooksSkipped},
		{"Books failed", stats.BooksFailed},
		{"Files tagged", stats.FilesTagged},
		{"Files failed", stats.FilesFailed},
		{"Files unsupported", stats.FilesUnsupported},
	}, "Elapsed", formatDuration(stats.Elapsed)))
}
