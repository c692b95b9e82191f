package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/newsledger/internal/config"
	"github.com/nao1215/newsledger/internal/model"
)

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <source> <url>",
		Short: "Print the category label of a URL",
		Long: `Classify applies the rule table of a source to one URL and prints the
resulting label, which is handy when writing rules.

Category hints are the categories an article would carry in its feed or
article:section meta tag; they are tried after the rules.

Examples:
  newsledger classify example-daily https://daily.example.com/politics/vote
  newsledger classify example-daily https://daily.example.com/p/1 --hint celebrity`,
		Args: cobra.ExactArgs(2),
		RunE: runClassifyCmd,
	}
	cmd.Flags().StringSlice("hint", nil, "Category hint from the feed or page (repeatable)")
	return cmd
}

func runClassifyCmd(cmd *cobra.Command, args []string) error {
	hints, err := cmd.Flags().GetStringSlice("hint")
	if err != nil {
		return err
	}

	cf, err := loadSourcesFile(getStringFlag(cmd, "config"))
	if err != nil {
		return err
	}
	if cf == nil {
		return config.ErrNoSources
	}
	if _, ok := cf.Source(args[0]); !ok {
		return &config.UnknownSourceError{ID: args[0]}
	}

	tx, err := cf.Taxonomy()
	if err != nil {
		return fmt.Errorf("invalid category configuration: %w", err)
	}

	label, origin := tx.Resolve(model.SourceID(args[0]), args[1], hints...)
	if origin == model.CategoryNone {
		fmt.Fprintln(cmd.OutOrStdout(), "unclassified")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", label, origin)
	return nil
}
