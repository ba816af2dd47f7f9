// =============================================================================
// SAP Delivery Date Robot - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the configuration
// and the input file without connecting to SAP.
//
// COMMAND USAGE:
//   daterobot validate [--file dates.xlsx] [--sheet Sheet1]
//
// WHAT IT CHECKS:
//   1. The configuration file parses and passes validation
//   2. The input file can be read and has the required columns
//   3. Every row has a valid order number, line number and date
//   4. No order line is requested twice (reported as a warning)
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sap-date-robot/internal/tui"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and the input file without touching SAP",
	Long: `The validate command loads the configuration and the input file and reports
every problem a run would hit before the first SAP call: missing columns,
malformed order or line numbers, unparseable dates and duplicate rows.

It exits with a non-zero status when at least one row has an error.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addInputFlags(validateCmd)
}

func runValidate(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	source, err := loadSource(cfg)
	if err != nil {
		return err
	}
	result := source.Result

	printValidation(out, result)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s%s\n", tui.LabelStyle.Render("File"), cfg.Input.File)
	if source.Table.Sheet != "" {
		fmt.Fprintf(out, "%s%s\n", tui.LabelStyle.Render("Sheet"), source.Table.Sheet)
	}
	fmt.Fprintf(out, "%s%d\n", tui.LabelStyle.Render("Rows"), len(result.Rows))
	fmt.Fprintf(out, "%s%s\n", tui.LabelStyle.Render("Valid"), tui.SuccessStyle.Render(fmt.Sprint(result.ValidRows)))
	fmt.Fprintf(out, "%s%s\n", tui.LabelStyle.Render("Invalid"), tui.ErrorStyle.Render(fmt.Sprint(result.InvalidRows)))
	fmt.Fprintf(out, "%s%s\n", tui.LabelStyle.Render("Errors"), tui.ErrorStyle.Render(fmt.Sprint(result.ErrorCount)))
	fmt.Fprintf(out, "%s%s\n", tui.LabelStyle.Render("Warnings"), tui.WarningStyle.Render(fmt.Sprint(result.WarningCount)))

	if !result.IsValid() {
		return fmt.Errorf("%d row(s) failed validation", result.InvalidRows)
	}
	fmt.Fprintln(out, tui.SuccessStyle.Render("Input is valid."))
	return nil
}
