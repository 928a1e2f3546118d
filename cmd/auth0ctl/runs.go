package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardfraud/auth0ctl/internal/app"
	"github.com/cardfraud/auth0ctl/internal/journal"
)

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent bootstrap and verify runs from the local journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func runRuns(cmd *cobra.Command, limit int) error {
	// Only the journal path is needed here, so required tenant variables
	// are not enforced.
	cfg := app.Load()

	j, err := journal.Open(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("open run journal %s: %w", cfg.DatabaseFile, err)
	}
	defer j.Close()

	if err := j.ApplyMigrations(); err != nil {
		return fmt.Errorf("migrate run journal: %w", err)
	}

	runs, err := j.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tKIND\tTENANT\tAUDIENCE\tOK\tSTARTED\tDURATION")
	for _, r := range runs {
		ok := "no"
		if r.Succeeded {
			ok = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Kind, r.Tenant, r.Audience, ok,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).Round(10*time.Millisecond),
		)
	}
	return w.Flush()
}
