// =============================================================================
// SAP Delivery Date Robot - Shared Types
// =============================================================================
//
// This package contains the types that flow between the row source, the item
// updater, the batch runner and the result sinks. Keeping them here avoids
// import cycles between those packages.
//
// =============================================================================

package types

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// REQUEST
// =============================================================================

// UpdateRequest asks for the delivery date of one purchase order line item to
// be changed. It is created by the row source and never mutated afterwards.
type UpdateRequest struct {
	// RowNumber is the 1-based row in the input file, for operator reference.
	RowNumber int

	// OrderID is the purchase order number (e.g. "4500000001").
	OrderID string

	// LineNumber is the item number inside the order (10, 20, ...).
	LineNumber int

	// TargetDate is the new delivery date, already normalized to dd.mm.yyyy.
	TargetDate string
}

// =============================================================================
// OUTCOME
// =============================================================================

// Status is the terminal classification of one update attempt.
type Status string

const (
	StatusUpdated Status = "UPDATED"
	StatusSkipped Status = "SKIPPED"
	StatusWarning Status = "WARNING"
	StatusError   Status = "ERROR"

	// StatusNotAttempted marks rows left over after the run was aborted by a
	// connection failure or cancelled by the operator.
	StatusNotAttempted Status = "NOT_ATTEMPTED"
)

// UpdateOutcome is created exactly once per UpdateRequest and handed to the
// sinks by value.
type UpdateOutcome struct {
	ID        string
	Request   UpdateRequest
	Status    Status
	Message   string
	Timestamp time.Time
}

// NewOutcome builds an outcome with a fresh ID.
func NewOutcome(req UpdateRequest, status Status, message string, at time.Time) UpdateOutcome {
	return UpdateOutcome{
		ID:        uuid.New().String(),
		Request:   req,
		Status:    status,
		Message:   message,
		Timestamp: at,
	}
}

// =============================================================================
// RUN
// =============================================================================

// RunInfo is handed to the sinks when a run starts.
type RunInfo struct {
	RunID     string
	InputFile string
	StartedAt time.Time

	// Rows is the number of outcomes the run will produce.
	Rows int
}

// Summary aggregates the outcomes of one batch run.
type Summary struct {
	RunID      string
	InputFile  string
	StartedAt  time.Time
	FinishedAt time.Time

	Total        int
	Updated      int
	Skipped      int
	Warnings     int
	Errors       int
	NotAttempted int

	// Cancelled is set when the operator stopped the run between requests.
	Cancelled bool

	// Aborted is set when a fatal connection failure ended the run.
	Aborted bool
}

// Record counts one outcome.
func (s *Summary) Record(o UpdateOutcome) {
	s.Total++
	switch o.Status {
	case StatusUpdated:
		s.Updated++
	case StatusSkipped:
		s.Skipped++
	case StatusWarning:
		s.Warnings++
	case StatusError:
		s.Errors++
	case StatusNotAttempted:
		s.NotAttempted++
	}
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Succeeded reports whether every attempted row ended without an error.
func (s Summary) Succeeded() bool {
	return s.Errors == 0 && !s.Aborted
}
