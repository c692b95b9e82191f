package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/newsledger/internal/config"
	"github.com/nao1215/newsledger/internal/log"
)

// NewRootCmd creates the root command for newsledger.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newsledger",
		Short: "Incremental news ingestion with a per-source visit ledger",
		Long: `newsledger crawls news sources through their feeds or listing pages,
resolves lazy-loaded lead images, classifies each article into a fixed label
set and publishes it.

A ledger remembers, per source, the newest article that was published. It
only moves forward when every article of a pass was published, so a failed
pass is retried from the same point on the next run.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Sources file path (default: .newsledger in current or home directory)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewLedgerCmd())
	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag reads a local or inherited persistent bool flag.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getStringFlag reads a local or inherited persistent string flag.
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// setupLogger creates the masking logger selected by --verbose and --log-json.
// Logs go to stderr so that stdout carries only articles and reports.
func setupLogger(cmd *cobra.Command, w io.Writer, extraKeys ...string) *slog.Logger {
	return log.New(w, log.Options{
		Verbose:       getBoolFlag(cmd, "verbose"),
		JSON:          getBoolFlag(cmd, "log-json"),
		SensitiveKeys: extraKeys,
	})
}

// loadSourcesFile loads the file named by --config, or the first default
// location that exists. A missing explicit path is an error; no file at the
// default locations yields nil, which Config.Validate reports.
func loadSourcesFile(path string) (*config.File, error) {
	found := config.FindConfigFile(path)
	if found == "" {
		if path != "" {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, nil
	}
	cf, err := config.LoadConfigFile(found)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
	}
	return cf, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
