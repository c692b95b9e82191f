package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/newsledger/internal/config"
	"github.com/nao1215/newsledger/internal/ledger"
	"github.com/nao1215/newsledger/internal/model"
)

// errNeverVisited is returned by "ledger get" for a source without record.
var errNeverVisited = errors.New("source has never been visited")

// addLedgerFlags registers the ledger backend flags shared by run and ledger.
func addLedgerFlags(cmd *cobra.Command) {
	cmd.Flags().String("ledger", ledger.BackendFile,
		"Ledger backend: memory, file, sqlite or redis")
	cmd.Flags().String("ledger-dir", config.XDGDataDir(),
		"Directory of the file and sqlite ledgers")
	cmd.Flags().String("ledger-path", "",
		"Ledger file or database path (overrides --ledger-dir)")
	cmd.Flags().String("redis-url", "",
		"redis:// URL of the redis ledger")
	cmd.Flags().String("redis-key", "",
		"Redis hash holding the visits")
}

// readLedgerFlags copies the ledger flags into cfg.
func readLedgerFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.LedgerBackend, err = cmd.Flags().GetString("ledger"); err != nil {
		return err
	}
	if cfg.LedgerDir, err = cmd.Flags().GetString("ledger-dir"); err != nil {
		return err
	}
	if cfg.LedgerPath, err = cmd.Flags().GetString("ledger-path"); err != nil {
		return err
	}
	if cfg.RedisURL, err = cmd.Flags().GetString("redis-url"); err != nil {
		return err
	}
	cfg.RedisKey, err = cmd.Flags().GetString("redis-key")
	return err
}

// NewLedgerCmd creates the ledger command and its list and get subcommands.
func NewLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the visit ledger",
		Long: `Inspect the last successful visit recorded for each source.

Examples:
  # List every source in the default file ledger
  newsledger ledger list

  # Show one source of a sqlite ledger
  newsledger ledger get example-daily --ledger sqlite`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every recorded source",
		Args:  cobra.NoArgs,
		RunE:  runLedgerList,
	}
	addLedgerFlags(list)

	get := &cobra.Command{
		Use:   "get <source>",
		Short: "Print the last visit of one source",
		Args:  cobra.ExactArgs(1),
		RunE:  runLedgerGet,
	}
	addLedgerFlags(get)

	cmd.AddCommand(list, get)
	return cmd
}

// openLedgerFromFlags opens the ledger selected by the command's flags.
func openLedgerFromFlags(cmd *cobra.Command) (ledger.Ledger, error) {
	cfg := config.NewConfig()
	if err := readLedgerFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if cfg.LedgerBackend == ledger.BackendRedis && cfg.RedisURL == "" {
		return nil, config.ErrMissingRedisURL
	}
	l, err := ledger.Open(commandContext(cmd), cfg.LedgerOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return l, nil
}

func runLedgerList(cmd *cobra.Command, _ []string) error {
	l, err := openLedgerFromFlags(cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	records, err := l.List(commandContext(cmd))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "ledger is empty")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tLAST VISIT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\n", r.SourceID, r.LastVisitedAt)
	}
	return tw.Flush()
}

func runLedgerGet(cmd *cobra.Command, args []string) error {
	l, err := openLedgerFromFlags(cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	id := model.SourceID(args[0])
	ts, ok, err := l.Get(commandContext(cmd), id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", errNeverVisited, id)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ts)
	return nil
}
