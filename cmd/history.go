// File: cmd/history.go
package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/courier-cli/internal/history"
)

// openHistory connects to the run history database. Tests replace it with a mock pool.
var openHistory = history.Open

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent send runs",
		Long:  `Lists recent runs recorded in the PostgreSQL database configured as database.url.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := a.mgr.Current().Database.URL
			if url == "" {
				return errors.New("run history is disabled: set database.url to a PostgreSQL connection string")
			}
			store, closeFn, err := openHistory(cmd.Context(), url, a.logger)
			if err != nil {
				return err
			}
			defer closeFn()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			writeRunTable(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return historyCmd
}

func writeRunTable(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tCHAT\tSENT\tFAILED\tREASON\tDURATION\tID")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Target,
			r.Succeeded, r.Attempted,
			r.Failed,
			r.Reason,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.ID,
		)
	}
	tw.Flush()
}
