package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"shelfsort/internal/workflow"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var opts workflow.Options

	cmd := &cobra.Command{
		Use:   "organize <source>",
		Short: "Stage, identify and place every book found in a download folder",
		Long: `Organize groups loose audio files into book folders, resolves each book's
title and author, and moves it to <dest>/<Author>/<Title> with a cover and
metadata.json. Books without a title go to the unclassified folder and books
without a cover go to the no-cover folder.

The destination defaults to the source directory. Use --dry-run to see the
plan without touching any file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup()
			if err != nil {
				return err
			}
			if opts.Source, err = directoryArg(args[0]); err != nil {
				return err
			}

			runner := workflow.NewRunner(cfg, logger)
			summary, runErr := runner.Run(cmd.Context(), opts)
			if runErr != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Interrupted. %d items were left in %s\n", len(summary.Remaining), summary.StagingPath)
				return runErr
			}
			if runErr != nil {
				return runErr
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, summary)
			}
			printRunSummary(cmd.OutOrStdout(), summary, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Dest, "dest", "d", "", "Library root to place books in (defaults to the source)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show the plan without moving or writing anything")
	cmd.Flags().BoolVar(&opts.NoTagging, "no-tagging", false, "Skip writing tags after placement")
	cmd.Flags().BoolVar(&opts.ForceLLM, "force-llm", false, "Resolve titles with the language model only")
	return cmd
}

func printRunSummary(out io.Writer, summary workflow.RunSummary, colorize bool) {
	title := "Organize"
	if summary.DryRun {
		title = "Organize (dry run)"
	}
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}

	if len(summary.Books) > 0 {
		rows := make([][]string, 0, len(summary.Books))
		for _, book := range summary.Books {
			target := book.Path
			if rel, err := filepath.Rel(summary.Dest, book.Path); err == nil && book.Path != "" {
				target = rel
			}
			rows = append(rows, []string{book.Folder, string(book.Outcome), book.Author, book.Title, book.Source, target})
		}
		fmt.Fprintln(out, renderBooks([]string{"Folder", "Outcome", "Author", "Title", "Source", "Destination"}, rows))
	} else {
		fmt.Fprintln(out, renderStatusLine("Books", statusInfo, "nothing to organize", colorize))
	}

	fmt.Fprintln(out, renderStatusLine("Placed", statusOK, strconv.Itoa(summary.Placed), colorize))
	fmt.Fprintln(out, renderStatusLine("Without cover", countKind(summary.Quarantined, statusWarn), strconv.Itoa(summary.Quarantined), colorize))
	fmt.Fprintln(out, renderStatusLine("Unclassified", countKind(summary.Unclassified, statusWarn), strconv.Itoa(summary.Unclassified), colorize))
	fmt.Fprintln(out, renderStatusLine("Failed", countKind(summary.Failed, statusError), strconv.Itoa(summary.Failed), colorize))
	if len(summary.Staging.SkippedImageOnly) > 0 {
		fmt.Fprintln(out, renderStatusLine("Image-only groups", statusWarn, strconv.Itoa(len(summary.Staging.SkippedImageOnly)), colorize))
	}
	if !summary.DryRun && summary.Tagging.BooksSeen > 0 {
		fmt.Fprintln(out, renderStatusLine("Files tagged", statusInfo, strconv.Itoa(summary.Tagging.FilesTagged), colorize))
	}
	for _, path := range summary.NoCover {
		fmt.Fprintln(out, renderStatusLine("Needs cover", statusWarn, path, colorize))
	}

	switch {
	case summary.DryRun:
		fmt.Fprintln(out, renderStatusLine("Staging", statusInfo, "would use "+summary.StagingPath, colorize))
	case summary.StagingRemoved:
		fmt.Fprintln(out, renderStatusLine("Staging", statusOK, "removed", colorize))
	default:
		msg := fmt.Sprintf("%d items remain in %s", len(summary.Remaining), summary.StagingPath)
		fmt.Fprintln(out, renderStatusLine("Staging", statusWarn, msg, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Elapsed", statusInfo, formatDuration(summary.Elapsed), colorize))
}

func countKind(count int, nonZero statusKind) statusKind {
	if count == 0 {
		return statusOK
	}
	return nonZero
}
