package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyike/QuantLens/internal/storage"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history [SYMBOL]",
		Short: "List past analysis runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if runID != "" {
				run, err := store.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", runID)
				}
				printTitle(out, fmt.Sprintf("%s (%d days)", run.Symbol, run.Days))
				printField(out, "Run ID", run.ID)
				printField(out, "Status", status(run.Status))
				printField(out, "Created", run.CreatedAt)
				if run.ReportPath != "" {
					printField(out, "Report", run.ReportPath)
				}
				if run.Error != "" {
					printField(out, "Error", run.Error)
				}
				if run.Report != "" {
					fmt.Fprintln(out)
					fmt.Fprintln(out, run.Report)
				}
				return nil
			}

			symbol := ""
			if len(args) == 1 {
				symbol = args[0]
			}
			runs, err := store.ListRuns(cmd.Context(), symbol, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, warnStyle.Render("No analysis runs recorded yet."))
				return nil
			}
			for _, run := range runs {
				fmt.Fprintf(out, "%s  %-10s %4dd  %s  %s\n", run.CreatedAt, run.Symbol, run.Days, status(run.Status), run.ID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&runID, "id", "", "Show one run in full")
	return cmd
}
