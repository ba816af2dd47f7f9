package rowsource

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
)

func readCSV(path string, opts Options) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	configureReader(reader, opts.Delimiter)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	return buildTable(path, "", rows, opts.HeaderRow-1)
}

// configureReader applies the delimiter and the lenient settings spreadsheet
// exports need.
func configureReader(reader *csv.Reader, delimiter string) {
	switch delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ",", "comma":
		reader.Comma = ','
	case ";", "semicolon", "":
		reader.Comma = ';'
	default:
		reader.Comma = []rune(delimiter)[0]
	}

	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}
