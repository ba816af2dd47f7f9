// =============================================================================
// SAP Delivery Date Robot - Input Validation
// =============================================================================
//
// This module turns raw input records (header -> cell text) into update
// requests and reports everything wrong with them before any SAP call is made.
//
// VALIDATION LEVELS:
//   1. Header-level: the order, line and date columns must exist
//   2. Field-level: order number, line number and date are checked per row
//   3. File-level: the same order line requested twice is reported
//
// ERROR HANDLING:
//   - Errors are collected, not returned on the first problem
//   - Each error carries the row number, field and value
//   - "error" severity makes the row an ERROR outcome without a host call
//   - "warning" severity is reported but the row is still processed
//
// =============================================================================

package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/sap-date-robot/internal/dates"
	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// maxOrderLength is the length of an SAP purchasing document number (EBELN).
const maxOrderLength = 10

// maxLineNumber is the largest SAP item number (EBELP, five digits).
const maxLineNumber = 99999

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation problem.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the input column name.
	Field string

	// Value is the raw cell text.
	Value string

	// Rule is the violated rule (required, numeric, range, date, duplicate).
	Rule string

	// Message is a human-readable description.
	Message string

	// RowNumber is the 1-based row in the input file.
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Row %d, Field '%s': %s", strings.ToUpper(e.Severity), e.RowNumber, e.Field, e.Message)
}

// ErrorList is the set of fatal problems of one row.
type ErrorList []*ValidationError

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return "invalid row: " + strings.Join(msgs, "; ")
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Row is one validated input row. Err is nil when Request can be sent to SAP.
type Row struct {
	Request types.UpdateRequest
	Err     error
}

// ValidationResult contains the rows and every problem found.
type ValidationResult struct {
	Rows []Row

	// Errors contains all problems, warnings included.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// ValidRows is the number of rows that can be sent to SAP.
	ValidRows int

	// InvalidRows is the number of rows with at least one error.
	InvalidRows int
}

// IsValid is true when no row has a fatal problem.
func (r *ValidationResult) IsValid() bool {
	return r.ErrorCount == 0
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Columns names the input columns.
type Columns struct {
	Order   string
	Line    string
	NewDate string
}

// Record is one raw input row.
type Record struct {
	RowNumber int
	Fields    map[string]string
}

// Validator converts records into update requests.
type Validator struct {
	columns Columns
}

// NewValidator creates a Validator for the given column names.
func NewValidator(columns Columns) *Validator {
	return &Validator{columns: columns}
}

// CheckHeaders fails when a required column is missing. Header matching
// ignores case and surrounding spaces.
func (v *Validator) CheckHeaders(headers []string) error {
	var missing []string
	for _, want := range []string{v.columns.Order, v.columns.Line, v.columns.NewDate} {
		if findHeader(headers, want) == "" {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing column(s) %s (found: %s)", strings.Join(missing, ", "), strings.Join(headers, ", "))
	}
	return nil
}

// ValidateAll validates every record and flags duplicate order lines.
func (v *Validator) ValidateAll(records []Record) *ValidationResult {
	result := &ValidationResult{Rows: make([]Row, 0, len(records))}
	seen := make(map[string]int)

	add := func(e *ValidationError) {
		result.Errors = append(result.Errors, e)
		if e.Severity == SeverityError {
			result.ErrorCount++
		} else {
			result.WarningCount++
		}
	}

	for _, rec := range records {
		req, problems := v.ValidateRecord(rec)
		for _, p := range problems {
			add(p)
		}
		if len(problems) > 0 {
			result.InvalidRows++
			result.Rows = append(result.Rows, Row{Request: req, Err: ErrorList(problems)})
			continue
		}

		key := req.OrderID + "/" + strconv.Itoa(req.LineNumber)
		if first, dup := seen[key]; dup {
			add(&ValidationError{
				Severity:  SeverityWarning,
				Field:     v.columns.Order,
				Value:     req.OrderID,
				Rule:      "duplicate",
				Message:   fmt.Sprintf("order %s line %d already requested in row %d", req.OrderID, req.LineNumber, first),
				RowNumber: rec.RowNumber,
			})
		} else {
			seen[key] = rec.RowNumber
		}

		result.Rows = append(result.Rows, Row{Request: req})
		result.ValidRows++
	}

	return result
}

// ValidateRecord validates one record. The returned request carries whatever
// could be read even when problems are reported, so an ERROR outcome still
// shows the order and line.
func (v *Validator) ValidateRecord(rec Record) (types.UpdateRequest, []*ValidationError) {
	req := types.UpdateRequest{RowNumber: rec.RowNumber}
	var problems []*ValidationError

	fail := func(field, value, rule, msg string) {
		problems = append(problems, &ValidationError{
			Severity:  SeverityError,
			Field:     field,
			Value:     value,
			Rule:      rule,
			Message:   msg,
			RowNumber: rec.RowNumber,
		})
	}

	// =========================================================================
	// ORDER NUMBER
	// =========================================================================

	order := lookup(rec.Fields, v.columns.Order)
	req.OrderID = order
	switch normalized, msg := normalizeOrder(order); {
	case order == "":
		fail(v.columns.Order, order, "required", "order number is empty")
	case msg != "":
		fail(v.columns.Order, order, "numeric", msg)
	default:
		req.OrderID = normalized
	}

	// =========================================================================
	// LINE NUMBER
	// =========================================================================

	rawLine := lookup(rec.Fields, v.columns.Line)
	switch line, msg := parseLine(rawLine); {
	case rawLine == "":
		fail(v.columns.Line, rawLine, "required", "line number is empty")
	case msg != "":
		fail(v.columns.Line, rawLine, "range", msg)
	default:
		req.LineNumber = line
	}

	// =========================================================================
	// NEW DATE
	// =========================================================================

	rawDate := lookup(rec.Fields, v.columns.NewDate)
	req.TargetDate = rawDate
	if rawDate == "" {
		fail(v.columns.NewDate, rawDate, "required", "new date is empty")
	} else if normalized, err := dates.Normalize(rawDate); err != nil {
		fail(v.columns.NewDate, rawDate, "date", err.Error())
	} else {
		req.TargetDate = normalized
	}

	return req, problems
}

// =============================================================================
// FIELD VALIDATORS
// =============================================================================

// normalizeOrder accepts digit-only order numbers. Spreadsheet numbers read
// as floats ("4500000001.0") are accepted.
func normalizeOrder(value string) (string, string) {
	value = strings.TrimSuffix(value, ".0")
	if value == "" {
		return "", "order number has no digits"
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return "", fmt.Sprintf("order number '%s' must contain digits only", value)
		}
	}
	if len(value) > maxOrderLength {
		return "", fmt.Sprintf("order number '%s' is longer than %d digits", value, maxOrderLength)
	}
	return value, ""
}

// parseLine accepts positive integers, also written as "10.0".
func parseLine(value string) (int, string) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Sprintf("line number '%s' is not a number", value)
	}
	n := int(f)
	if float64(n) != f {
		return 0, fmt.Sprintf("line number '%s' is not a whole number", value)
	}
	if n < 1 || n > maxLineNumber {
		return 0, fmt.Sprintf("line number %d is out of range 1-%d", n, maxLineNumber)
	}
	return n, ""
}

// =============================================================================
// HELPERS
// =============================================================================

func lookup(fields map[string]string, column string) string {
	if v, ok := fields[column]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range fields {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(column)) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func findHeader(headers []string, want string) string {
	for _, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(want)) {
			return h
		}
	}
	return ""
}
