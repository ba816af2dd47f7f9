// =============================================================================
// SAP Delivery Date Robot - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (daterobot)
//   ├── runCmd      (daterobot run)
//   ├── validateCmd (daterobot validate)
//   ├── historyCmd  (daterobot history)
//   └── versionCmd  (daterobot version)
//
// The root command owns the global flags and the helpers every command uses
// to load the configuration and build the logger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sap-date-robot/internal/config"
	"github.com/ginjaninja78/sap-date-robot/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "daterobot",
	Short: "SAP delivery date robot - bulk update ME22N delivery dates from a workbook",
	Long: `daterobot reads purchase order lines and their new delivery dates from an
Excel workbook or CSV file and changes them one by one in SAP GUI (ME22N),
through the SAP GUI scripting engine of an already logged-on session.

Every row ends with exactly one outcome: UPDATED, SKIPPED, WARNING, ERROR or
NOT_ATTEMPTED. Outcomes are written to a CSV log and kept in a local history.

Example Usage:
  daterobot validate --file dates.xlsx   # Check the input without touching SAP
  daterobot run --file dates.xlsx        # Update the delivery dates
  daterobot run --tui                    # Same, with a progress screen
  daterobot history                      # List recent runs`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig loads the configuration. A missing file is only an error when
// --config was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.LoadMainConfig(cfgFile, !explicit)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the application logger. console may be nil.
func newLogger(cfg *config.MainConfig, console io.Writer) (logging.Logger, func() error, error) {
	log, closer, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: console,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return log, closer, nil
}
