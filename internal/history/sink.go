package history

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

// Sink records a batch run in the store.
type Sink struct {
	store *Store
	runID string
}

// NewSink creates a batch sink writing to store.
func NewSink(store *Store) *Sink {
	return &Sink{store: store}
}

func (s *Sink) Start(run types.RunInfo) error {
	s.runID = run.RunID
	return s.store.StartRun(context.Background(), run)
}

func (s *Sink) Emit(o types.UpdateOutcome) error {
	if s.runID == "" {
		return fmt.Errorf("history sink not started")
	}
	return s.store.RecordOutcome(context.Background(), s.runID, o)
}

func (s *Sink) Finish(summary types.Summary) error {
	return s.store.FinishRun(context.Background(), summary)
}
