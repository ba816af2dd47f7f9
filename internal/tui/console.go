package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

// ConsoleSink prints one line per outcome and a summary box at the end.
type ConsoleSink struct {
	w     io.Writer
	total int
	done  int
}

// NewConsoleSink creates a console sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

func (c *ConsoleSink) Start(run types.RunInfo) error {
	c.total = run.Rows
	c.done = 0
	_, err := fmt.Fprintf(c.w, "%s\n", TitleStyle.Render(fmt.Sprintf("Updating %d delivery date(s) from %s", run.Rows, run.InputFile)))
	return err
}

func (c *ConsoleSink) Emit(o types.UpdateOutcome) error {
	c.done++
	_, err := fmt.Fprintln(c.w, FormatOutcome(c.done, c.total, o))
	return err
}

func (c *ConsoleSink) Finish(summary types.Summary) error {
	_, err := fmt.Fprintln(c.w, RenderSummary(summary))
	return err
}

// FormatOutcome renders one outcome as a console line.
func FormatOutcome(n, total int, o types.UpdateOutcome) string {
	width := len(fmt.Sprint(total))
	counter := MutedStyle.Render(fmt.Sprintf("[%*d/%d]", width, n, total))

	target := fmt.Sprintf("order %s line %d -> %s", o.Request.OrderID, o.Request.LineNumber, o.Request.TargetDate)
	if o.Request.LineNumber == 0 {
		target = fmt.Sprintf("row %d", o.Request.RowNumber)
	}

	return fmt.Sprintf("%s %s %s  %s", counter, RenderStatus(o.Status), target, MutedStyle.Render(o.Message))
}

// RenderSummary renders the end-of-run box.
func RenderSummary(s types.Summary) string {
	var b strings.Builder

	title := SuccessStyle.Render("Run finished")
	switch {
	case s.Aborted:
		title = ErrorStyle.Render("Run aborted")
	case s.Cancelled:
		title = WarningStyle.Render("Run cancelled")
	case !s.Succeeded():
		title = WarningStyle.Render("Run finished with errors")
	}
	b.WriteString(title)
	b.WriteString("\n")

	rows := []struct {
		label string
		value string
	}{
		{"Run", s.RunID},
		{"Duration", s.Duration().Round(time.Second).String()},
		{"Total", fmt.Sprint(s.Total)},
		{"Updated", SuccessStyle.Render(fmt.Sprint(s.Updated))},
		{"Skipped", InfoStyle.Render(fmt.Sprint(s.Skipped))},
		{"Warnings", WarningStyle.Render(fmt.Sprint(s.Warnings))},
		{"Errors", ErrorStyle.Render(fmt.Sprint(s.Errors))},
		{"Not attempted", MutedStyle.Render(fmt.Sprint(s.NotAttempted))},
	}
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render(r.label))
		b.WriteString(ValueStyle.Render(r.value))
	}

	return BoxStyle.Render(b.String())
}
