package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"shelfsort/internal/catalog"
	"shelfsort/internal/cover"
	"shelfsort/internal/naming"
)

const auditReportName = "cover_audit.html"

func newCoversCommand(ctx *commandContext) *cobra.Command {
	coversCmd := &cobra.Command{
		Use:   "covers",
		Short: "Maintain cover art across a finished library",
	}

	coversCmd.AddCommand(newCoversUpdateCommand(ctx))
	coversCmd.AddCommand(newCoversAuditCommand(ctx))
	coversCmd.AddCommand(newCoversExtractCommand(ctx))

	return coversCmd
}

func newCoverResolver(ctx *commandContext) (*cover.Resolver, error) {
	cfg, logger, err := ctx.setup()
	if err != nil {
		return nil, err
	}
	return cover.NewResolver(cfg, catalog.NewFetcherFromConfig(cfg), logger)
}

func newCoversUpdateCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "update <library>",
		Short: "Replace missing or low-quality covers and re-embed them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup()
			if err != nil {
				return err
			}
			root, err := directoryArg(args[0])
			if err != nil {
				return err
			}
			resolver, err := newCoverResolver(ctx)
			if err != nil {
				return err
			}

			stats, err := cover.NewUpdater(cfg, resolver, logger).Update(cmd.Context(), root, force)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, stats)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTallies("Covers", []tally{
				{"Books", stats.Books},
				{"Replaced", stats.Replaced},
				{"Kept", stats.Kept},
				{"Not found", stats.NotFound},
				{"Failed", stats.Failed},
				{"Files embedded", stats.FilesEmbedded},
			}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Look for a better cover even when the current one passes")
	return cmd
}

func newCoversAuditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <library>",
		Short: "Report cover quality without changing anything",
		Long: `Audit inspects every book's cover and recommends KEEP, REPLACE or DOWNLOAD NEW.
The full report, with preview images from the catalog, is written to
<library>/` + auditReportName + `.`,
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
			resolver, err := newCoverResolver(ctx)
			if err != nil {
				return err
			}

			entries, err := cover.NewAuditor(cfg, resolver, logger).Audit(cmd.Context(), root)
			if err != nil {
				return err
			}
			reportPath := filepath.Join(root, auditReportName)
			if len(entries) > 0 {
				if err := cover.WriteReport(entries, reportPath); err != nil {
					return err
				}
			}
			if ctx.JSONMode() {
				if entries == nil {
					entries = []cover.AuditEntry{}
				}
				return writeJSON(cmd, map[string]any{"report": reportPath, "entries": entries})
			}
			printAudit(cmd.OutOrStdout(), entries, reportPath)
			return nil
		},
	}
}

func printAudit(out io.Writer, entries []cover.AuditEntry, reportPath string) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No books found")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{entry.Path, entry.Status, entry.Recommendation})
	}
	fmt.Fprintln(out, renderBooks([]string{"Book", "Status", "Recommendation"}, rows))
	fmt.Fprintf(out, "Report written to %s\n", reportPath)
}

func newCoversExtractCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <dir>",
		Short: "Save each audio file's embedded picture next to it as <name>.jpg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup()
			if err != nil {
				return err
			}
			dir, err := directoryArg(args[0])
			if err != nil {
				return err
			}
			classifier := naming.NewClassifier(cfg.Library.AudioExtensions, cfg.Library.ImageExtensions)
			stats, err := cover.ExtractEmbedded(cmd.Context(), dir, classifier, logger)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, stats)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTallies("Extract", []tally{
				{"Scanned", stats.Scanned},
				{"Extracted", stats.Extracted},
				{"Already present", stats.Existing},
				{"No picture", stats.Missing},
				{"Failed", stats.Failed},
			}))
			return nil
		},
	}
}
