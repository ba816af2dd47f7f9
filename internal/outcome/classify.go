// Package outcome interprets the host's message channel.
//
// SAP reports the result of every screen action on the status bar of the main
// window as a one-letter message type plus a text. StatusLine renders that pair
// as "<type>: <text>" and Classify maps any such line onto a Severity.
package outcome

import (
	"strings"
)

// Severity is the classification of a status line.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "none"
	}
}

// StatusLine is one status bar reading.
type StatusLine struct {
	// Type is the SAP message type: S success, I info, W warning,
	// E error, A abort, X exit. Empty when the bar is blank.
	Type string
	Text string
}

// String renders the line with its severity marker.
func (l StatusLine) String() string {
	t := strings.ToUpper(strings.TrimSpace(l.Type))
	text := strings.TrimSpace(l.Text)
	if t == "" {
		return text
	}
	return t + ": " + text
}

// Empty reports whether the bar showed nothing.
func (l StatusLine) Empty() bool {
	return strings.TrimSpace(l.Type) == "" && strings.TrimSpace(l.Text) == ""
}

// Host texts saying the save did nothing. The item was not changed, so they
// count as errors whatever their message type.
var noChangeMarkers = []string{
	"no data changed",
	"no data was changed",
	"no changes were made",
	"no changes made",
	"sem alteração",
	"sem alteracao",
	"não foi feita",
	"nao foi feita",
	"keine daten geändert",
}

// Classify maps a rendered status line onto a severity. It is total: any
// input, including garbage, yields one of the three values.
func Classify(statusText string) Severity {
	marker, text := splitMarker(statusText)

	lower := strings.ToLower(text)
	for _, m := range noChangeMarkers {
		if strings.Contains(lower, m) {
			return SeverityError
		}
	}

	switch marker {
	case "E", "A", "X":
		return SeverityError
	case "W":
		return SeverityWarning
	default:
		return SeverityNone
	}
}

// Text strips the severity marker from a rendered line.
func Text(statusText string) string {
	_, text := splitMarker(statusText)
	return text
}

// splitMarker accepts "E: text", "[E] text" and a bare "E". A letter followed
// by a space is ordinary text ("A purchase order ...").
func splitMarker(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}

	if strings.HasPrefix(s, "[") && len(s) >= 3 && s[2] == ']' && isMarker(s[1]) {
		return string(s[1]), strings.TrimSpace(s[3:])
	}

	if !isMarker(s[0]) {
		return "", s
	}
	if len(s) == 1 {
		return s, ""
	}
	if s[1] == ':' {
		return string(s[0]), strings.TrimSpace(s[2:])
	}
	return "", s
}

func isMarker(b byte) bool {
	switch b {
	case 'S', 'I', 'W', 'E', 'A', 'X':
		return true
	}
	return false
}
