package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sap-date-robot/internal/config"
	"github.com/ginjaninja78/sap-date-robot/internal/rowsource"
	"github.com/ginjaninja78/sap-date-robot/internal/tui"
	"github.com/ginjaninja78/sap-date-robot/internal/validation"
	"github.com/ginjaninja78/sap-date-robot/pkg/utils"
)

// inputFile and sheetName override input.file and input.sheet.
var (
	inputFile string
	sheetName string
)

// addInputFlags registers --file and --sheet on a command that reads the
// input file.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(
		&inputFile,
		"file",
		"f",
		"",
		"Input workbook or CSV file (overrides input.file)",
	)
	cmd.Flags().StringVar(
		&sheetName,
		"sheet",
		"",
		"Worksheet to read (overrides input.sheet)",
	)
}

// loadSource applies the input flags to cfg and loads the input file.
func loadSource(cfg *config.MainConfig) (*rowsource.Source, error) {
	if inputFile != "" {
		cfg.Input.File = inputFile
	}
	if sheetName != "" {
		cfg.Input.Sheet = sheetName
	}
	if !utils.FileExists(cfg.Input.File) {
		return nil, fmt.Errorf("input file not found: %s", cfg.Input.File)
	}

	source, err := rowsource.Load(cfg.Input.File, rowsource.Options{
		Sheet:     cfg.Input.Sheet,
		HeaderRow: cfg.Input.HeaderRow,
		Delimiter: cfg.Input.CSVDelimiter,
		Columns: validation.Columns{
			Order:   cfg.Input.Columns.Order,
			Line:    cfg.Input.Columns.Line,
			NewDate: cfg.Input.Columns.NewDate,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load input: %w", err)
	}
	return source, nil
}

// printValidation lists every validation finding, errors first.
func printValidation(w io.Writer, result *validation.ValidationResult) {
	for _, severity := range []string{validation.SeverityError, validation.SeverityWarning} {
		for _, e := range result.Errors {
			if e.Severity != severity {
				continue
			}
			style := tui.ErrorStyle
			if severity == validation.SeverityWarning {
				style = tui.WarningStyle
			}
			fmt.Fprintln(w, style.Render(e.Error()))
		}
	}
}
