package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shelfsort/internal/authors"
	"shelfsort/internal/config"
)

func newAuthorsCommand(ctx *commandContext) *cobra.Command {
	authorsCmd := &cobra.Command{
		Use:   "authors",
		Short: "Manage the known-authors list used for title disambiguation",
	}
	authorsCmd.AddCommand(newAuthorsPopulateCommand(ctx))
	authorsCmd.AddCommand(newAuthorsListCommand(ctx))
	return authorsCmd
}

func authorsFile(cfg *config.Config, override string) (*authors.File, error) {
	path := cfg.Paths.AuthorsFile
	if strings.TrimSpace(override) != "" {
		expanded, err := config.ExpandPath(override)
		if err != nil {
			return nil, fmt.Errorf("resolve authors file: %w", err)
		}
		path = expanded
	}
	return authors.New(path), nil
}

func newAuthorsPopulateCommand(ctx *commandContext) *cobra.Command {
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "populate <library>",
		Short: "Add every author found in the library's metadata to the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := directoryArg(args[0])
			if err != nil {
				return err
			}
			file, err := authorsFile(cfg, fileFlag)
			if err != nil {
				return err
			}
			added, err := file.Populate(root, cfg.Library.MetadataFile)
			if err != nil {
				return fmt.Errorf("populate authors: %w", err)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"file": file.Path(), "added": added})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d authors to %s\n", added, file.Path())
			return nil
		},
	}

	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Authors file (defaults to paths.authors_file)")
	return cmd
}

func newAuthorsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the known authors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			names, err := authors.New(cfg.Paths.AuthorsFile).Names()
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				if names == nil {
					names = []string{}
				}
				return writeJSON(cmd, names)
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No known authors yet")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
