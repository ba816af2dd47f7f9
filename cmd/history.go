// =============================================================================
// SAP Delivery Date Robot - History Command
// =============================================================================
//
// COMMAND USAGE:
//   daterobot history              # List the most recent runs
//   daterobot history --limit 50   # List more runs
//   daterobot history --run 3f2a   # Show one run and its outcomes
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sap-date-robot/internal/history"
	"github.com/ginjaninja78/sap-date-robot/internal/tui"
)

var (
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past runs and their outcomes",
	Long: `The history command reads the run history database (output.history_db).

Without flags it lists the most recent runs. With --run it shows the summary
and every outcome of one run; a unique prefix of the run ID is enough.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory(cmd)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(
		&historyLimit,
		"limit",
		"n",
		20,
		"Number of runs to list",
	)

	historyCmd.Flags().StringVar(
		&historyRun,
		"run",
		"",
		"Run ID (or unique prefix) to show in detail",
	)
}

func runHistory(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.HistoryEnabled() {
		return fmt.Errorf("run history is disabled (output.history_db is %q)", cfg.Output.HistoryDB)
	}

	store, err := history.Open(cfg.Output.HistoryDB)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	if historyRun != "" {
		run, err := store.FindRun(ctx, historyRun)
		if err != nil {
			return err
		}
		outcomes, err := store.RunOutcomes(ctx, run.RunID)
		if err != nil {
			return err
		}
		fmt.Fprint(out, tui.RenderOutcomes(toRunRow(run), outcomes))
		return nil
	}

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	rows := make([]tui.RunRow, len(runs))
	for i, run := range runs {
		rows[i] = toRunRow(run)
	}
	fmt.Fprintln(out, tui.RenderRuns(rows))
	return nil
}

func toRunRow(run history.Run) tui.RunRow {
	return tui.RunRow{Summary: run.Summary, Finished: run.Finished}
}
