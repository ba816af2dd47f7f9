// =============================================================================
// SAP Delivery Date Robot - Item Updater
// =============================================================================
//
// The updater changes the delivery date of one purchase order line item and
// always produces exactly one outcome for it.
//
// STATE MACHINE:
//   PENDING -> READ_CURRENT -> SKIP ----------------------------> CLASSIFIED
//                           -> WRITE -> SAVE_ATTEMPTED ---------> CLASSIFIED
//
//   PENDING         navigate to the order and select the line
//   READ_CURRENT    read the delivery date shown by the host
//   SKIP            the date already matches, nothing is written or saved
//   WRITE           type the new date and read it back
//   SAVE_ATTEMPTED  press save, answer the save popups
//   CLASSIFIED      status bar -> UPDATED / WARNING / ERROR
//
// FAULTS:
//   Any failure on the way (order missing, line missing, element missing,
//   host call failure, panic) ends the item as ERROR. Faults raised before
//   the save is pressed may be retried from scratch. Once save was pressed
//   the host result is final: retrying could save twice.
//
//   A lost session is the only failure reported to the caller, since no
//   later item can succeed on it.
//
// =============================================================================

package updater

import (
	"errors"
	"fmt"
	"time"

	"github.com/ginjaninja78/sap-date-robot/internal/dates"
	"github.com/ginjaninja78/sap-date-robot/internal/logging"
	"github.com/ginjaninja78/sap-date-robot/internal/navigation"
	"github.com/ginjaninja78/sap-date-robot/internal/outcome"
	"github.com/ginjaninja78/sap-date-robot/internal/sapgui"
	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

// State is a step of the per-item state machine.
type State string

const (
	StatePending       State = "PENDING"
	StateReadCurrent   State = "READ_CURRENT"
	StateSkip          State = "SKIP"
	StateWrite         State = "WRITE"
	StateSaveAttempted State = "SAVE_ATTEMPTED"
	StateClassified    State = "CLASSIFIED"
)

// Options configures an Updater.
type Options struct {
	// MaxAttempts bounds how often a pre-save fault is retried. Values
	// below 1 mean one attempt.
	MaxAttempts int

	// RetryDelay is waited between attempts.
	RetryDelay time.Duration

	// Pause defaults to time.Sleep.
	Pause func(time.Duration)

	// Now defaults to time.Now.
	Now func() time.Time

	Logger logging.Logger
}

// Updater runs the state machine against a navigation driver.
type Updater struct {
	driver navigation.Driver
	opts   Options
	log    logging.Logger
}

// New creates an Updater.
func New(driver navigation.Driver, opts Options) *Updater {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Pause == nil {
		opts.Pause = time.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Updater{driver: driver, opts: opts, log: log}
}

// result is what one attempt ends with.
type result struct {
	status  types.Status
	message string

	// state is where the attempt stopped.
	state State

	// fault is set when the attempt ended on a failure rather than on a
	// host classification.
	fault error
}

func (r result) retryable() bool {
	return r.fault != nil && r.state != StateSaveAttempted && !errors.Is(r.fault, sapgui.ErrSessionLost)
}

// Update processes one request. The returned error is non-nil only when the
// session was lost; the outcome is valid either way.
func (u *Updater) Update(session sapgui.Session, req types.UpdateRequest) (types.UpdateOutcome, error) {
	log := u.log.With("order", req.OrderID, "line", req.LineNumber)

	var res result
	for attempt := 1; attempt <= u.opts.MaxAttempts; attempt++ {
		res = u.attempt(log, session, req)
		if !res.retryable() || attempt == u.opts.MaxAttempts {
			break
		}
		log.Warn("Attempt %d/%d failed in %s: %v; retrying", attempt, u.opts.MaxAttempts, res.state, res.fault)
		u.opts.Pause(u.opts.RetryDelay)
	}

	out := types.NewOutcome(req, res.status, res.message, u.opts.Now())
	log.Debug("%s -> %s (%s)", res.state, StateClassified, out.Status)

	if res.fault != nil && errors.Is(res.fault, sapgui.ErrSessionLost) {
		return out, res.fault
	}
	return out, nil
}

// attempt runs the state machine once. Panics raised by the host bindings are
// turned into an ERROR result.
func (u *Updater) attempt(log logging.Logger, session sapgui.Session, req types.UpdateRequest) (res result) {
	state := StatePending
	transition := func(next State) {
		log.Debug("%s -> %s", state, next)
		state = next
	}
	fail := func(err error) result {
		return result{status: types.StatusError, message: faultMessage(state, err), state: state, fault: err}
	}

	defer func() {
		if r := recover(); r != nil {
			res = fail(fmt.Errorf("panic: %v", r))
		}
	}()

	screen, err := u.driver.OpenItemScreen(session, req.OrderID)
	if err != nil {
		return fail(err)
	}
	field, err := u.driver.SelectLine(screen, req.LineNumber)
	if err != nil {
		return fail(err)
	}

	transition(StateReadCurrent)
	current, err := field.Read()
	if err != nil {
		return fail(fmt.Errorf("read delivery date: %w", err))
	}
	log.Debug("Current delivery date %q, target %q", current, req.TargetDate)

	if dates.Equal(current, req.TargetDate) {
		transition(StateSkip)
		return result{
			status:  types.StatusSkipped,
			message: fmt.Sprintf("delivery date already %s", req.TargetDate),
			state:   state,
		}
	}

	transition(StateWrite)
	if err := field.Write(req.TargetDate); err != nil {
		return fail(fmt.Errorf("write delivery date: %w", err))
	}
	written, err := field.Read()
	if err != nil {
		return fail(fmt.Errorf("read back delivery date: %w", err))
	}
	if !dates.Equal(written, req.TargetDate) {
		return fail(fmt.Errorf("field shows %q after writing %q", written, req.TargetDate))
	}

	transition(StateSaveAttempted)
	if err := u.driver.Save(screen); err != nil {
		return fail(fmt.Errorf("save: %w", err))
	}
	line, err := u.driver.ReadStatus(session)
	if err != nil {
		return fail(fmt.Errorf("read status bar: %w", err))
	}

	res = classify(line)
	res.state = state
	return res
}

// classify maps the status bar after a save onto an outcome status.
func classify(line outcome.StatusLine) result {
	if line.Empty() {
		return result{status: types.StatusUpdated, message: "saved"}
	}
	text := line.String()
	message := outcome.Text(text)

	switch outcome.Classify(text) {
	case outcome.SeverityError:
		if message == "" {
			message = "save rejected"
		}
		return result{status: types.StatusError, message: message}
	case outcome.SeverityWarning:
		return result{status: types.StatusWarning, message: message}
	default:
		if message == "" {
			message = "saved"
		}
		return result{status: types.StatusUpdated, message: message}
	}
}

func faultMessage(state State, err error) string {
	var navErr *navigation.NavigationError
	var lineErr *navigation.LineNotFoundError
	switch {
	case errors.As(err, &lineErr):
		return fmt.Sprintf("line %d not found in order %s", lineErr.Line, lineErr.OrderID)
	case errors.As(err, &navErr):
		return navErr.Error()
	case errors.Is(err, sapgui.ErrSessionLost):
		return "SAP GUI session lost"
	default:
		return fmt.Sprintf("%s: %v", state, err)
	}
}
