// Package tui renders run progress and results in the terminal.
//
// Two front ends share the same styles and the same outcome events:
//   - ConsoleSink prints one colored line per outcome (default)
//   - RunModel is a Bubble Tea progress screen (opt-in, --tui)
//
// Both are batch sinks; neither holds data the CSV log does not.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles for TUI components.
var (
	// TitleStyle for headers and titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle()

	SuccessStyle = lipgloss.NewStyle().Foreground(successColor)
	WarningStyle = lipgloss.NewStyle().Foreground(warningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	MutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(highlightColor)

	// BoxStyle for the run summary.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 2)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// StatusColumnStyle pads the status column.
	StatusColumnStyle = lipgloss.NewStyle().Width(14)
)

// StatusStyle returns the style of an outcome status.
func StatusStyle(status types.Status) lipgloss.Style {
	switch status {
	case types.StatusUpdated:
		return SuccessStyle
	case types.StatusSkipped:
		return InfoStyle
	case types.StatusWarning:
		return WarningStyle
	case types.StatusError:
		return ErrorStyle
	default:
		return MutedStyle
	}
}

// RenderStatus renders a padded, colored status.
func RenderStatus(status types.Status) string {
	return StatusColumnStyle.Inherit(StatusStyle(status)).Render(string(status))
}
