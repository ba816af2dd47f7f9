// =============================================================================
// SAP Delivery Date Robot - Row Source
// =============================================================================
//
// This module reads the operator's input file and turns it into the ordered
// list of rows the batch runner works through. Two formats are supported:
//   - .xlsx/.xlsm workbooks (excelize), first sheet unless configured
//   - .csv files with a configurable delimiter
//
// READING PROCESS:
//   1. Read the raw cells of the header row and every row below it
//   2. Skip rows that are completely empty
//   3. Check that the order, line and date columns exist
//   4. Validate each row into an UpdateRequest or a row-level error
//
// Row numbers are the 1-based rows of the file, so operators can find a
// failing row in the spreadsheet they filled in.
//
// =============================================================================

package rowsource

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/sap-date-robot/internal/validation"
)

// Options configures Load.
type Options struct {
	// Sheet is the workbook sheet. Empty means the first sheet.
	Sheet string

	// HeaderRow is the 1-based row holding the column names. Defaults to 1.
	HeaderRow int

	// Delimiter is the CSV field separator. Defaults to ";".
	Delimiter string

	Columns validation.Columns
}

// Table is the raw content of an input file.
type Table struct {
	// Path is the file that was read.
	Path string

	// Sheet is the sheet that was read (workbooks only).
	Sheet string

	Headers []string
	Records []validation.Record
}

// Source is a loaded and validated input file.
type Source struct {
	Table  *Table
	Result *validation.ValidationResult
}

// Rows returns the rows in file order.
func (s *Source) Rows() []validation.Row {
	return s.Result.Rows
}

// Load reads and validates an input file. It fails only when the file as a
// whole is unusable; bad rows are reported through the validation result.
func Load(path string, opts Options) (*Source, error) {
	if opts.HeaderRow < 1 {
		opts.HeaderRow = 1
	}

	table, err := Read(path, opts)
	if err != nil {
		return nil, err
	}

	validator := validation.NewValidator(opts.Columns)
	if err := validator.CheckHeaders(table.Headers); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	return &Source{Table: table, Result: validator.ValidateAll(table.Records)}, nil
}

// Read reads an input file without validating it.
func Read(path string, opts Options) (*Table, error) {
	if opts.HeaderRow < 1 {
		opts.HeaderRow = 1
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return readWorkbook(path, opts)
	case ".csv", ".txt":
		return readCSV(path, opts)
	default:
		return nil, fmt.Errorf("unsupported input file type %q (want .xlsx or .csv)", ext)
	}
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// buildTable turns raw rows into a Table. headerIndex is 0-based.
func buildTable(path, sheet string, rows [][]string, headerIndex int) (*Table, error) {
	if headerIndex >= len(rows) {
		return nil, fmt.Errorf("%s has no header row %d", filepath.Base(path), headerIndex+1)
	}

	headers := cleanHeaders(rows[headerIndex])
	table := &Table{Path: path, Sheet: sheet, Headers: headers}

	for i := headerIndex + 1; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		fields := make(map[string]string, len(headers))
		for col, header := range headers {
			if col < len(row) {
				fields[header] = strings.TrimSpace(row[col])
			} else {
				fields[header] = ""
			}
		}
		table.Records = append(table.Records, validation.Record{RowNumber: i + 1, Fields: fields})
	}

	return table, nil
}

// cleanHeaders trims header names and names blank ones by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
