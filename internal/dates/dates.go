// =============================================================================
// SAP Delivery Date Robot - Date Normalization
// =============================================================================
//
// SAP GUI date fields expect dd.mm.yyyy (the user's date format setting in
// SU3 must match). Operators fill the input workbook in whatever format their
// spreadsheet produces, so every target date and every value read back from
// the host is normalized through this package before being compared or
// written.
//
// ACCEPTED INPUT FORMATS:
//   25.12.2025, 5.1.2025      day first, dotted
//   25/12/2025, 25-12-2025    day first
//   2025-12-25, 2025/12/25    ISO
//   20251225                  compact
//   2025-12-25T00:00:00Z      ISO timestamps (date part only)
//   46016                     Excel serial number (raw cell values)
//
// =============================================================================

package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// SAPLayout is the Go layout for the host's dd.mm.yyyy format.
const SAPLayout = "02.01.2006"

// layouts are tried in order. Day-first layouts come before any month-first
// reading would be possible, which matches how the operators write dates.
var layouts = []string{
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"2006-01-02",
	"2006/01/02",
	"20060102",
	"02.01.06",
	"02/01/06",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006 15:04:05",
	"02.01.2006 15:04:05",
}

// Excel serials below this are not plausible delivery dates (1954-10-09).
// The bound keeps small integers such as line numbers from parsing as dates.
const minExcelSerial = 20000

// Normalize converts a raw date value into dd.mm.yyyy.
func Normalize(raw string) (string, error) {
	t, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return Format(t), nil
}

// Parse reads a raw date value in any accepted format.
func Parse(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial >= minExcelSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// Format renders t in the host format.
func Format(t time.Time) string {
	return t.Format(SAPLayout)
}

// Equal reports whether two date values denote the same calendar day. Values
// that cannot be parsed are compared as trimmed text, so an empty host field
// never equals a real target date.
func Equal(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA == nil && errB == nil {
		return na == nb
	}
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
