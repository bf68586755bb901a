package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"shelfsort/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create, check and print the shelfsort configuration",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("check config path: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Set llm.api_key (or export OPENROUTER_API_KEY) so unknown titles can be resolved")
			fmt.Fprintln(out, "  2. Optionally set catalog.google_books_api_key for higher Google Books quotas")
			fmt.Fprintf(out, "  3. Run shelfsort organize --dry-run <downloads> --config %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// initTarget resolves --path, falling back to the default config location.
func initTarget(flagValue string) (string, error) {
	target := strings.TrimSpace(flagValue)
	if target == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Check the configuration and summarize how books will be sorted",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolved, exists, err := loadForInspection(ctx)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			printConfigSummary(out, cfg, shouldColorize(out))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration with API keys masked",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := loadForInspection(ctx)
			if err != nil {
				return err
			}
			redacted := cfg.Redacted()
			if ctx.JSONMode() {
				return writeJSON(cmd, redacted)
			}
			data, err := toml.Marshal(redacted)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// loadForInspection loads the config named by --config without the side
// effects of ensureConfig, so a broken file is reported rather than fatal to
// the command tree.
func loadForInspection(ctx *commandContext) (*config.Config, string, bool, error) {
	var path string
	if ctx.configFlag != nil {
		path = strings.TrimSpace(*ctx.configFlag)
	}
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		return nil, "", false, fmt.Errorf("load config: %w", err)
	}
	return cfg, resolved, exists, nil
}

func printConfigSummary(out io.Writer, cfg *config.Config, colorize bool) {
	keyStatus := func(key string) (statusKind, string) {
		if strings.TrimSpace(key) == "" {
			return statusWarn, "not set"
		}
		return statusOK, "set"
	}
	kind, msg := keyStatus(cfg.LLM.APIKey)
	fmt.Fprintln(out, renderStatusLine("LLM key", kind, msg, colorize))
	kind, msg = keyStatus(cfg.Catalog.GoogleBooksAPIKey)
	if kind == statusWarn {
		kind, msg = statusInfo, "not set (anonymous quota)"
	}
	fmt.Fprintln(out, renderStatusLine("Google Books key", kind, msg, colorize))
	fmt.Fprintln(out, renderStatusLine("Audio", statusInfo, strings.Join(cfg.Library.AudioExtensions, " "), colorize))
	fmt.Fprintln(out, renderStatusLine("Layout", statusInfo, "<dest>/<author>/[<series>/]<title>", colorize))
	fmt.Fprintln(out, renderStatusLine("Without cover", statusInfo, "<dest>/"+cfg.Library.NoCoverDir, colorize))
	fmt.Fprintln(out, renderStatusLine("Unclassified", statusInfo, "<dest>/"+cfg.Library.UnclassifiedDir, colorize))
	fmt.Fprintln(out, renderStatusLine("Lookup cache", statusInfo, "enabled: "+yesNo(cfg.Cache.Enabled), colorize))
}
