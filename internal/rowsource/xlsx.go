package rowsource

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readWorkbook reads raw cell values, so date cells arrive as Excel serial
// numbers instead of text rendered with the workbook's locale.
func readWorkbook(path string, opts Options) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("workbook has no sheet %q (sheets: %v)", sheet, f.GetSheetList())
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}

	return buildTable(path, sheet, rows, opts.HeaderRow-1)
}
