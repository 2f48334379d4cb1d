package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/nora/internal/journal"
)

var tailLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the decision journal",
}

var journalTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the most recent decisions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JournalPath == "" {
			return errors.New("journal disabled: NORA_JOURNAL_PATH is empty")
		}
		db, err := journal.Open(cmd.Context(), cfg.JournalPath)
		if err != nil {
			return err
		}
		defer db.Close()

		recs, err := db.RecentDecisions(cmd.Context(), tailLimit)
		if err != nil {
			return err
		}
		return printDecisions(cmd, recs)
	},
}

func printDecisions(cmd *cobra.Command, recs []journal.Decision) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMODE\tACTION\tRESULT\tTHOUGHT")
	for _, r := range recs {
		thought := r.Thought
		if len(thought) > 60 {
			thought = thought[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Time.Format("2006-01-02 15:04:05"), r.Mode, r.Action, r.Result, thought)
	}
	return tw.Flush()
}
