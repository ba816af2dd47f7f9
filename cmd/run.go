// =============================================================================
// SAP Delivery Date Robot - Run Command
// =============================================================================
//
// This file defines the 'run' command, which updates the delivery dates in
// SAP. It wires the input, the SAP GUI session, the item updater and the
// result sinks together.
//
// COMMAND USAGE:
//   daterobot run [flags]
//
// FLAGS:
//   --file        : Input workbook or CSV file (overrides input.file)
//   --sheet       : Worksheet to read (overrides input.sheet)
//   --tui         : Show a full-screen progress display
//   --no-history  : Do not record the run in the history database
//
// PROCESSING PIPELINE:
//   1. Load configuration and set up logging
//   2. Load and validate the input file
//   3. Open the result sinks (CSV log, history, console or progress screen)
//   4. Attach to the running SAP GUI session
//   5. Update each row in file order; one outcome per row
//   6. Archive the input file (optional)
//
// EXIT STATUS:
//   Non-zero when the run was aborted (no SAP connection, session lost).
//   Rows ending in ERROR are reported, not treated as a failed command.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sap-date-robot/internal/batch"
	"github.com/ginjaninja78/sap-date-robot/internal/config"
	"github.com/ginjaninja78/sap-date-robot/internal/history"
	"github.com/ginjaninja78/sap-date-robot/internal/logging"
	"github.com/ginjaninja78/sap-date-robot/internal/navigation"
	"github.com/ginjaninja78/sap-date-robot/internal/resultlog"
	"github.com/ginjaninja78/sap-date-robot/internal/rowsource"
	"github.com/ginjaninja78/sap-date-robot/internal/sapgui"
	"github.com/ginjaninja78/sap-date-robot/internal/tui"
	"github.com/ginjaninja78/sap-date-robot/internal/types"
	"github.com/ginjaninja78/sap-date-robot/internal/updater"
	"github.com/ginjaninja78/sap-date-robot/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// useTUI switches the console lines for the progress screen.
var useTUI bool

// noHistory skips the SQLite history for this run.
var noHistory bool

// =============================================================================
// RUN COMMAND DEFINITION
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Update delivery dates in SAP from the input file",
	Long: `The run command reads the input file and changes the delivery date of every
listed purchase order line in ME22N, one line at a time.

SAP GUI must be running and logged on, with scripting enabled. The robot
attaches to sap.connection_index / sap.session_index and never opens a logon.

Rows whose current date already equals the new date are SKIPPED. Rows that
SAP rejects are reported as ERROR and the run goes on with the next row.
Press Ctrl+C (or q with --tui) to stop after the row in progress.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runRobot(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addInputFlags(runCmd)

	runCmd.Flags().BoolVar(
		&useTUI,
		"tui",
		false,
		"Show a full-screen progress display",
	)

	runCmd.Flags().BoolVar(
		&noHistory,
		"no-history",
		false,
		"Do not record this run in the history database",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runRobot(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	// =========================================================================
	// STEP 1: CONFIGURATION AND LOGGING
	// =========================================================================

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The console sink already prints one line per row; the console logger
	// is only added for --verbose and never while the progress screen runs.
	var console io.Writer
	if verbose && !useTUI {
		console = errOut
	}
	log, closeLog, err := newLogger(cfg, console)
	if err != nil {
		return err
	}
	defer closeLog()

	fm := utils.NewFileManager(cfg.Output.LogDir, cfg.Output.ArchiveDir)
	fm.UseTimestampSubdirs = cfg.Output.ArchiveSubdirs
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: INPUT
	// =========================================================================

	source, err := loadSource(cfg)
	if err != nil {
		log.Error("%v", err)
		return err
	}
	result := source.Result
	log.Info("Loaded %d row(s) from %s: %d valid, %d error(s), %d warning(s)",
		len(result.Rows), cfg.Input.File, result.ValidRows, result.ErrorCount, result.WarningCount)
	if len(result.Rows) == 0 {
		return fmt.Errorf("no rows to process in %s", cfg.Input.File)
	}
	if !useTUI {
		printValidation(errOut, result)
	}

	// =========================================================================
	// STEP 3: RESULT SINKS
	// =========================================================================

	resultLog := resultlog.New(fm.LogFilePath(cfg.Output.LogFileFormat, nil))
	sinks := []batch.Sink{resultLog}

	if cfg.HistoryEnabled() && !noHistory {
		store, err := history.Open(cfg.Output.HistoryDB)
		if err != nil {
			// A broken history database never blocks a run.
			log.Warn("History disabled for this run: %v", err)
			fmt.Fprintln(errOut, tui.WarningStyle.Render(fmt.Sprintf("history disabled for this run: %v", err)))
		} else {
			defer store.Close()
			sinks = append(sinks, history.NewSink(store))
		}
	}

	// =========================================================================
	// STEP 4-5: SAP SESSION AND BATCH
	// =========================================================================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	execute := newBatch(cfg, log, sinks, source)

	var (
		summary   types.Summary
		runErr    error
		screenErr error
	)
	if useTUI {
		// tui.Run returns only after the closure did, so summary is settled.
		screenErr = tui.Run(cancel, func(sink *tui.ProgramSink) error {
			summary, runErr = execute(ctx, sink)
			return runErr
		}, tea.WithAltScreen())
		fmt.Fprintln(out, tui.RenderSummary(summary))
	} else {
		summary, runErr = execute(ctx, tui.NewConsoleSink(out))
	}

	fmt.Fprintf(out, "Result log: %s\n", resultLog.Path())

	// =========================================================================
	// STEP 6: ARCHIVE
	// =========================================================================

	if cfg.Output.ArchiveInput && !summary.Aborted {
		archived, err := fm.ArchiveInputFile(cfg.Input.File)
		if err != nil {
			log.Warn("Failed to archive input file: %v", err)
		} else {
			log.Info("Archived input file to %s", archived)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	return screenErr
}

// newBatch returns a function running the batch with one extra sink for the
// operator display.
func newBatch(cfg *config.MainConfig, log logging.Logger, sinks []batch.Sink, source *rowsource.Source) func(context.Context, batch.Sink) (types.Summary, error) {
	driver := navigation.NewME22N(navigation.DefaultLayout(), navigation.Options{
		Transaction:  cfg.SAP.Transaction,
		WaitAttempts: cfg.SAP.WaitAttempts,
		WaitInterval: cfg.SAP.WaitInterval,
		SettleDelay:  cfg.SAP.SettleDelay,
		SaveDelay:    cfg.SAP.SaveDelay,
		Logger:       log,
	})

	itemUpdater := updater.New(driver, updater.Options{
		MaxAttempts: cfg.SAP.MaxAttempts,
		RetryDelay:  cfg.SAP.RetryDelay,
		Logger:      log,
	})

	connector := &sapgui.OLEConnector{
		ConnectionIndex: cfg.SAP.ConnectionIndex,
		SessionIndex:    cfg.SAP.SessionIndex,
		Logger:          log,
	}

	return func(ctx context.Context, display batch.Sink) (types.Summary, error) {
		runner := batch.NewRunner(batch.Options{
			Connector: connector,
			Updater:   itemUpdater,
			Sinks:     append(append([]batch.Sink{}, sinks...), display),
			InputFile: cfg.Input.File,
			Logger:    log,
		})
		return runner.Run(ctx, source.Rows())
	}
}
