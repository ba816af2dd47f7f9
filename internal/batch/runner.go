// =============================================================================
// SAP Delivery Date Robot - Batch Runner
// =============================================================================
//
// The runner owns one batch run: it acquires the SAP GUI session, feeds the
// input rows one by one to the item updater and hands every outcome to the
// sinks (result log, history, console, progress UI).
//
// RUN SEQUENCE:
//   1. Start the sinks with the run ID and the row count
//   2. Connect to SAP GUI (a failure marks every row NOT_ATTEMPTED)
//   3. For each row, in input order:
//        - stop if the run was cancelled (rest NOT_ATTEMPTED)
//        - invalid row -> ERROR without touching SAP
//        - valid row   -> item updater
//        - session lost -> abort (rest NOT_ATTEMPTED)
//   4. Release the session and finish the sinks with the summary
//
// Every row produces exactly one outcome, whatever happens.
//
// THREADING:
//   COM objects belong to the thread that created them, so the whole run is
//   pinned to one OS thread. Rows are processed strictly one at a time.
//
// =============================================================================

package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/sap-date-robot/internal/logging"
	"github.com/ginjaninja78/sap-date-robot/internal/sapgui"
	"github.com/ginjaninja78/sap-date-robot/internal/types"
	"github.com/ginjaninja78/sap-date-robot/internal/validation"
)

// ItemUpdater processes one request against a live session.
type ItemUpdater interface {
	Update(session sapgui.Session, req types.UpdateRequest) (types.UpdateOutcome, error)
}

// Sink consumes the events of a run. Sinks are called from the runner's
// goroutine, in order.
type Sink interface {
	Start(run types.RunInfo) error
	Emit(outcome types.UpdateOutcome) error
	Finish(summary types.Summary) error
}

// Options configures a Runner.
type Options struct {
	Connector sapgui.Connector
	Updater   ItemUpdater
	Sinks     []Sink

	// InputFile is recorded in the run summary.
	InputFile string

	// Now defaults to time.Now.
	Now func() time.Time

	Logger logging.Logger
}

// Runner runs batches.
type Runner struct {
	opts Options
	log  logging.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{opts: opts, log: log}
}

const (
	msgCancelled   = "cancelled"
	msgSessionLost = "not attempted: SAP GUI session lost"
)

// Run processes rows. The returned error is non-nil when the run was aborted
// by a connection failure or a lost session, or when a sink could not start;
// cancellation is reported through Summary.Cancelled. The summary is valid
// in every case.
func (r *Runner) Run(ctx context.Context, rows []validation.Row) (types.Summary, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	summary := types.Summary{
		RunID:     uuid.New().String(),
		InputFile: r.opts.InputFile,
		StartedAt: r.opts.Now(),
	}
	log := r.log.With("run", summary.RunID)

	info := types.RunInfo{
		RunID:     summary.RunID,
		InputFile: summary.InputFile,
		StartedAt: summary.StartedAt,
		Rows:      len(rows),
	}
	for _, sink := range r.opts.Sinks {
		if err := sink.Start(info); err != nil {
			return summary, fmt.Errorf("failed to start result sink: %w", err)
		}
	}

	log.Info("Starting run of %d row(s)", len(rows))

	if ctx.Err() != nil {
		return r.cancelBeforeConnect(log, &summary, rows), nil
	}
	handle, err := r.opts.Connector.Connect(ctx)
	if err != nil && ctx.Err() != nil {
		return r.cancelBeforeConnect(log, &summary, rows), nil
	}
	if err != nil {
		log.Error("Cannot connect to SAP GUI: %v", err)
		summary.Aborted = true
		r.skipRemaining(&summary, rows, "not attempted: "+err.Error())
		r.finish(log, &summary)
		return summary, err
	}
	defer handle.Close()

	log.Info("Connected to %s client %s as %s", handle.Info.SystemName, handle.Info.Client, handle.Info.User)

	var runErr error
	for i, row := range rows {
		if ctx.Err() != nil {
			log.Warn("Run cancelled, %d row(s) left", len(rows)-i)
			summary.Cancelled = true
			r.skipRemaining(&summary, rows[i:], msgCancelled)
			break
		}

		if row.Err != nil {
			log.Warn("Row %d is invalid: %v", row.Request.RowNumber, row.Err)
			r.emit(log, &summary, types.NewOutcome(row.Request, types.StatusError, row.Err.Error(), r.opts.Now()))
			continue
		}

		log.Info("Processing %d/%d: order %s line %d -> %s",
			i+1, len(rows), row.Request.OrderID, row.Request.LineNumber, row.Request.TargetDate)

		outcome, err := r.opts.Updater.Update(handle.Session, row.Request)
		r.emit(log, &summary, outcome)
		logOutcome(log, outcome)

		if err != nil {
			if !errors.Is(err, sapgui.ErrSessionLost) {
				log.Warn("Unexpected updater error treated as fatal: %v", err)
			}
			log.Error("Aborting run: %v", err)
			summary.Aborted = true
			runErr = err
			r.skipRemaining(&summary, rows[i+1:], msgSessionLost)
			break
		}
	}

	r.finish(log, &summary)
	return summary, runErr
}

// cancelBeforeConnect ends a run stopped before a session was attached.
func (r *Runner) cancelBeforeConnect(log logging.Logger, summary *types.Summary, rows []validation.Row) types.Summary {
	log.Warn("Run cancelled before connecting to SAP GUI, %d row(s) left", len(rows))
	summary.Cancelled = true
	r.skipRemaining(summary, rows, msgCancelled)
	r.finish(log, summary)
	return *summary
}

func (r *Runner) skipRemaining(summary *types.Summary, rows []validation.Row, message string) {
	for _, row := range rows {
		r.emit(r.log, summary, types.NewOutcome(row.Request, types.StatusNotAttempted, message, r.opts.Now()))
	}
}

// emit counts the outcome and hands it to every sink. A failing sink is
// logged and does not stop the run.
func (r *Runner) emit(log logging.Logger, summary *types.Summary, outcome types.UpdateOutcome) {
	summary.Record(outcome)
	for _, sink := range r.opts.Sinks {
		if err := sink.Emit(outcome); err != nil {
			log.Error("Result sink failed for row %d: %v", outcome.Request.RowNumber, err)
		}
	}
}

func (r *Runner) finish(log logging.Logger, summary *types.Summary) {
	summary.FinishedAt = r.opts.Now()
	for _, sink := range r.opts.Sinks {
		if err := sink.Finish(*summary); err != nil {
			log.Error("Result sink failed to finish: %v", err)
		}
	}
	log.Info("Run finished in %s: %d updated, %d skipped, %d warning(s), %d error(s), %d not attempted",
		summary.Duration().Round(time.Millisecond), summary.Updated, summary.Skipped,
		summary.Warnings, summary.Errors, summary.NotAttempted)
}

func logOutcome(log logging.Logger, o types.UpdateOutcome) {
	switch o.Status {
	case types.StatusError:
		log.Error("Order %s line %d: %s", o.Request.OrderID, o.Request.LineNumber, o.Message)
	case types.StatusWarning:
		log.Warn("Order %s line %d: %s", o.Request.OrderID, o.Request.LineNumber, o.Message)
	default:
		log.Info("Order %s line %d: %s (%s)", o.Request.OrderID, o.Request.LineNumber, o.Status, o.Message)
	}
}
