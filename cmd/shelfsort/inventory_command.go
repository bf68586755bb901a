package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shelfsort/internal/inventory"
)

func newInventoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory <library>",
		Short: "Export the library as a delimited inventory file",
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
			path, rows, err := inventory.Write(cfg, root)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"path": path, "books": rows})
			}
			if rows == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No books found; inventory not written")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d books to %s\n", rows, path)
			return nil
		},
	}
}
