package tui

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

const historyTimeLayout = "2006-01-02 15:04"

// RunRow is what RenderRuns needs from a stored run.
type RunRow struct {
	Summary  types.Summary
	Finished bool
}

// RenderRuns renders a list of past runs, newest first.
func RenderRuns(runs []RunRow) string {
	if len(runs) == 0 {
		return MutedStyle.Render("No runs recorded yet.")
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Recent runs"))
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render(fmt.Sprintf("%-8s  %-16s  %5s  %5s  %5s  %5s  %5s  %s",
		"RUN", "STARTED", "TOTAL", "UPD", "SKIP", "WARN", "ERR", "INPUT")))
	b.WriteString("\n")

	for _, r := range runs {
		s := r.Summary
		id := s.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		line := fmt.Sprintf("%-8s  %-16s  %5d  %5d  %5d  %5d  %5d  %s",
			id, s.StartedAt.Local().Format(historyTimeLayout),
			s.Total, s.Updated, s.Skipped, s.Warnings, s.Errors, s.InputFile)

		switch {
		case !r.Finished:
			line += " " + WarningStyle.Render("(unfinished)")
		case s.Aborted:
			line += " " + ErrorStyle.Render("(aborted)")
		case s.Cancelled:
			line += " " + WarningStyle.Render("(cancelled)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderOutcomes renders one run and its outcomes.
func RenderOutcomes(run RunRow, outcomes []types.UpdateOutcome) string {
	var b strings.Builder
	b.WriteString(RenderSummary(run.Summary))
	b.WriteString("\n")
	for i, o := range outcomes {
		b.WriteString(FormatOutcome(i+1, len(outcomes), o))
		b.WriteString("\n")
	}
	return b.String()
}
