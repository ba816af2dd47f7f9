// Package resultlog writes the per-run CSV log operators open in Excel.
//
// The file is ';' separated with a UTF-8 byte order mark, so Excel in a
// European locale opens it with the columns split and accents intact. Every
// outcome is flushed as soon as it is written: a crash mid-run leaves all
// finished items in the log.
package resultlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

const bom = "\ufeff"

// TimestampLayout is used for the Timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the first line of every log.
var Header = []string{"Run", "Row", "Order", "Line", "NewDate", "Status", "Message", "Timestamp"}

// Writer is a batch sink writing one CSV line per outcome.
type Writer struct {
	path  string
	runID string
	file  *os.File
	csv   *csv.Writer
}

// New creates a Writer for path. The file is created by Start.
func New(path string) *Writer {
	return &Writer{path: path}
}

// Path is the log file path.
func (w *Writer) Path() string { return w.path }

// Start creates the file and writes the header.
func (w *Writer) Start(run types.RunInfo) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create result log: %w", err)
	}
	if _, err := file.WriteString(bom); err != nil {
		file.Close()
		return fmt.Errorf("failed to write result log: %w", err)
	}

	w.file = file
	w.runID = run.RunID
	w.csv = csv.NewWriter(file)
	w.csv.Comma = ';'
	w.csv.UseCRLF = true

	return w.write(Header)
}

// Emit appends one outcome and flushes it.
func (w *Writer) Emit(o types.UpdateOutcome) error {
	if w.csv == nil {
		return fmt.Errorf("result log not started")
	}

	line := ""
	if o.Request.LineNumber > 0 {
		line = strconv.Itoa(o.Request.LineNumber)
	}

	return w.write([]string{
		w.runID,
		strconv.Itoa(o.Request.RowNumber),
		o.Request.OrderID,
		line,
		o.Request.TargetDate,
		string(o.Status),
		o.Message,
		o.Timestamp.Format(TimestampLayout),
	})
}

// Finish closes the file.
func (w *Writer) Finish(types.Summary) error {
	if w.file == nil {
		return nil
	}
	w.csv.Flush()
	err := w.csv.Error()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file, w.csv = nil, nil
	return err
}

func (w *Writer) write(record []string) error {
	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("failed to write result log: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to write result log: %w", err)
	}
	return nil
}
