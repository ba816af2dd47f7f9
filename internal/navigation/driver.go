// =============================================================================
// SAP Delivery Date Robot - ME22N Navigation Driver
// =============================================================================
//
// The driver moves a session from wherever it is to the delivery date of one
// purchase order line item, and performs the save. Every item starts from a
// clean session: the driver never assumes the screen left behind by the
// previous item.
//
// NAVIGATION SEQUENCE:
//   1. Close leftover popups, leave the current transaction (/n)
//   2. Start the transaction (/nME22N)
//   3. "Other Purchase Order" -> type the order number -> Enter
//   4. Check the status bar, the window title and the item overview
//   5. Scroll the item overview until the line number shows up
//   6. Select that item in the item detail and return its delivery date cell
//
// Anything unexpected on the way is reported as a NavigationError. The driver
// does not try to recover from an unknown screen.
//
// =============================================================================

package navigation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/sap-date-robot/internal/logging"
	"github.com/ginjaninja78/sap-date-robot/internal/outcome"
	"github.com/ginjaninja78/sap-date-robot/internal/sapgui"
)

// Driver is what the item updater needs from the host UI.
type Driver interface {
	OpenItemScreen(session sapgui.Session, orderID string) (*ScreenContext, error)
	SelectLine(screen *ScreenContext, line int) (*FieldRef, error)
	Save(screen *ScreenContext) error
	ReadStatus(session sapgui.Session) (outcome.StatusLine, error)
}

// ScreenContext is an order opened in change mode.
type ScreenContext struct {
	Session sapgui.Session
	OrderID string
	Title   string
}

// FieldRef addresses the delivery date cell of a selected line item.
type FieldRef struct {
	Session sapgui.Session
	ID      string
	OrderID string
	Line    int
}

// Read returns the current field text.
func (f *FieldRef) Read() (string, error) {
	el, err := f.Session.FindByID(f.ID)
	if err != nil {
		return "", err
	}
	defer el.Release()

	text, err := sapgui.Text(el)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Write replaces the field text and moves the caret, which makes the host
// register the change like a keyboard entry.
func (f *FieldRef) Write(value string) error {
	el, err := f.Session.FindByID(f.ID)
	if err != nil {
		return err
	}
	defer el.Release()

	if err := sapgui.SetText(el, value); err != nil {
		return err
	}
	return el.Set("caretPosition", len(value))
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options tunes the waits around host round trips.
type Options struct {
	Transaction  string
	WaitAttempts int
	WaitInterval time.Duration
	SettleDelay  time.Duration
	SaveDelay    time.Duration

	// Pause is called for every wait. Defaults to time.Sleep.
	Pause func(time.Duration)

	Logger logging.Logger
}

const maxPopupsToClose = 5

// ME22N drives the purchase order change transaction.
type ME22N struct {
	layout Layout
	opts   Options
	log    logging.Logger
}

// NewME22N creates a driver.
func NewME22N(layout Layout, opts Options) *ME22N {
	if opts.Transaction == "" {
		opts.Transaction = "ME22N"
	}
	if opts.WaitAttempts < 1 {
		opts.WaitAttempts = 1
	}
	if opts.Pause == nil {
		opts.Pause = time.Sleep
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &ME22N{layout: layout, opts: opts, log: log}
}

// =============================================================================
// OPEN ORDER
// =============================================================================

// OpenItemScreen opens orderID in change mode.
func (d *ME22N) OpenItemScreen(session sapgui.Session, orderID string) (*ScreenContext, error) {
	fail := func(reason string, err error) (*ScreenContext, error) {
		if errors.Is(err, sapgui.ErrSessionLost) {
			return nil, err
		}
		return nil, &NavigationError{OrderID: orderID, Reason: reason, Err: err}
	}

	if err := d.reset(session); err != nil {
		return fail("reset session", err)
	}

	if err := d.command(session, "/n"+d.opts.Transaction); err != nil {
		return fail("start "+d.opts.Transaction, err)
	}
	if line, err := d.ReadStatus(session); err != nil {
		return fail("read status bar", err)
	} else if outcome.Classify(line.String()) == outcome.SeverityError {
		return fail(fmt.Sprintf("start %s: %s", d.opts.Transaction, line.Text), nil)
	}

	d.log.Debug("Selecting order %s", orderID)
	if err := d.press(session, d.layout.OtherOrderButton); err != nil {
		return fail("open order selection", err)
	}

	field, err := d.waitFor(session, d.layout.OrderNumberField)
	if err != nil {
		return fail("order selection dialog", err)
	}
	err = sapgui.SetText(field, orderID)
	field.Release()
	if err != nil {
		return fail("enter order number", err)
	}

	popup, err := d.waitFor(session, d.layout.PopupWindow)
	if err != nil {
		return fail("order selection dialog", err)
	}
	err = sapgui.SendVKey(popup, 0)
	popup.Release()
	if err != nil {
		return fail("confirm order number", err)
	}
	d.opts.Pause(d.opts.SettleDelay)

	// Order does not exist, is locked by another user, no authorization...
	line, err := d.ReadStatus(session)
	if err != nil {
		return fail("read status bar", err)
	}
	if outcome.Classify(line.String()) == outcome.SeverityError {
		return fail(line.Text, nil)
	}

	if open, err := sapgui.Exists(session, d.layout.PopupWindow); err != nil {
		return fail("check dialogs", err)
	} else if open {
		return fail("order selection dialog did not close", nil)
	}

	title, err := d.windowTitle(session)
	if err != nil {
		return fail("read window title", err)
	}
	if !strings.Contains(title, orderID) {
		return fail(fmt.Sprintf("unexpected screen %q", title), nil)
	}

	if ok, err := sapgui.Exists(session, d.layout.ItemTable); err != nil {
		return fail("check item overview", err)
	} else if !ok {
		return fail("item overview not shown (check the ME22N screen layout)", nil)
	}

	return &ScreenContext{Session: session, OrderID: orderID, Title: title}, nil
}

// =============================================================================
// SELECT LINE
// =============================================================================

// SelectLine finds the item numbered line and returns its delivery date cell.
// The item overview is scrolled one page at a time from the top until the
// line shows up or the table ends.
func (d *ME22N) SelectLine(screen *ScreenContext, line int) (*FieldRef, error) {
	session := screen.Session
	fail := func(reason string, err error) (*FieldRef, error) {
		if errors.Is(err, sapgui.ErrSessionLost) {
			return nil, err
		}
		return nil, &NavigationError{OrderID: screen.OrderID, Reason: reason, Err: err}
	}

	rowCount, visible, err := d.tableSize(session)
	if err != nil {
		return fail("read item overview", err)
	}

	index := -1
	scanned := 0
	for top := 0; top < rowCount && index < 0; top += visible {
		if err := d.scrollTo(session, top); err != nil {
			return fail("scroll item overview", err)
		}
		for r := 0; r < visible && top+r < rowCount; r++ {
			number, err := d.itemNumberAt(session, r)
			if err != nil {
				return fail(fmt.Sprintf("read item row %d", top+r), err)
			}
			scanned++
			if number == line {
				index = top + r
				break
			}
		}
	}
	if index < 0 {
		return nil, &LineNotFoundError{OrderID: screen.OrderID, Line: line, Scanned: scanned}
	}
	d.log.Debug("Line %d is item %d of order %s", line, index+1, screen.OrderID)

	combo, err := d.waitFor(session, d.layout.ItemSelector)
	if err != nil {
		return fail("item detail", err)
	}
	_, err = combo.Call("setFocus")
	if err == nil {
		// Combo keys are the 1-based item position, right-aligned to 4.
		err = combo.Set("Key", fmt.Sprintf("%4d", index+1))
	}
	combo.Release()
	if err != nil {
		return fail(fmt.Sprintf("select line %d", line), err)
	}
	d.opts.Pause(d.opts.SettleDelay)

	cell, err := d.waitFor(session, d.layout.DeliveryDateCell)
	if err != nil {
		return fail("delivery date field", err)
	}
	cell.Release()

	return &FieldRef{Session: session, ID: d.layout.DeliveryDateCell, OrderID: screen.OrderID, Line: line}, nil
}

func (d *ME22N) tableSize(session sapgui.Session) (int, int, error) {
	table, err := d.waitFor(session, d.layout.ItemTable)
	if err != nil {
		return 0, 0, err
	}
	defer table.Release()

	rows, err := sapgui.Int(table, "RowCount")
	if err != nil {
		return 0, 0, err
	}
	visible, err := sapgui.Int(table, "VisibleRowCount")
	if err != nil {
		return 0, 0, err
	}
	if visible < 1 {
		visible = 1
	}
	return rows, visible, nil
}

// scrollTo makes row top the first visible row. The table is looked up again
// because scrolling invalidates references to its cells.
func (d *ME22N) scrollTo(session sapgui.Session, top int) error {
	table, err := session.FindByID(d.layout.ItemTable)
	if err != nil {
		return err
	}
	defer table.Release()

	current, err := sapgui.Int(table, "verticalScrollbar.position")
	if err != nil {
		return err
	}
	if current == top {
		return nil
	}
	if err := table.Set("verticalScrollbar.position", top); err != nil {
		return err
	}
	d.opts.Pause(d.opts.WaitInterval)
	return nil
}

func (d *ME22N) itemNumberAt(session sapgui.Session, row int) (int, error) {
	cell, err := session.FindByID(fmt.Sprintf(d.layout.ItemNumberCell, row))
	if err != nil {
		return 0, err
	}
	defer cell.Release()

	text, err := sapgui.Text(cell)
	if err != nil {
		return 0, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return -1, nil
	}
	return n, nil
}

// =============================================================================
// SAVE AND STATUS
// =============================================================================

// Save presses save and answers the confirmation popups SAP may show.
func (d *ME22N) Save(screen *ScreenContext) error {
	session := screen.Session
	if err := d.press(session, d.layout.SaveButton); err != nil {
		return err
	}
	d.opts.Pause(d.opts.SaveDelay)

	for _, id := range []string{d.layout.PopupConfirm, d.layout.PopupLeave} {
		open, err := sapgui.Exists(session, id)
		if err != nil {
			return err
		}
		if !open {
			continue
		}
		d.log.Debug("Confirming save popup %s", id)
		if err := d.press(session, id); err != nil {
			return err
		}
		d.opts.Pause(d.opts.WaitInterval)
	}
	return nil
}

// ReadStatus reads the main window status bar.
func (d *ME22N) ReadStatus(session sapgui.Session) (outcome.StatusLine, error) {
	bar, err := session.FindByID(d.layout.StatusBar)
	if err != nil {
		return outcome.StatusLine{}, err
	}
	defer bar.Release()

	msgType, err := sapgui.String(bar, "MessageType")
	if err != nil {
		return outcome.StatusLine{}, err
	}
	text, err := sapgui.Text(bar)
	if err != nil {
		return outcome.StatusLine{}, err
	}
	return outcome.StatusLine{Type: strings.TrimSpace(msgType), Text: strings.TrimSpace(text)}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// reset closes leftover popups and leaves the current transaction, answering
// "leave without saving" when an earlier item left unsaved changes.
func (d *ME22N) reset(session sapgui.Session) error {
	for i := 0; i < maxPopupsToClose; i++ {
		open, err := sapgui.Exists(session, d.layout.PopupCancel)
		if err != nil {
			return err
		}
		if !open {
			break
		}
		d.log.Debug("Closing leftover popup")
		if err := d.press(session, d.layout.PopupCancel); err != nil {
			return err
		}
		d.opts.Pause(d.opts.WaitInterval)
	}

	if err := d.command(session, "/n"); err != nil {
		return err
	}

	open, err := sapgui.Exists(session, d.layout.PopupLeave)
	if err != nil {
		return err
	}
	if open {
		d.log.Debug("Discarding unsaved changes left by a previous item")
		if err := d.press(session, d.layout.PopupLeave); err != nil {
			return err
		}
		d.opts.Pause(d.opts.WaitInterval)
	}
	return nil
}

// command types into the command field and presses Enter.
func (d *ME22N) command(session sapgui.Session, code string) error {
	okcd, err := d.waitFor(session, d.layout.OKCode)
	if err != nil {
		return err
	}
	err = sapgui.SetText(okcd, code)
	okcd.Release()
	if err != nil {
		return err
	}

	wnd, err := session.FindByID(d.layout.MainWindow)
	if err != nil {
		return err
	}
	err = sapgui.SendVKey(wnd, 0)
	wnd.Release()
	if err != nil {
		return err
	}
	d.opts.Pause(d.opts.SettleDelay)
	return nil
}

func (d *ME22N) press(session sapgui.Session, id string) error {
	btn, err := d.waitFor(session, id)
	if err != nil {
		return err
	}
	defer btn.Release()
	return sapgui.Press(btn)
}

func (d *ME22N) windowTitle(session sapgui.Session) (string, error) {
	wnd, err := session.FindByID(d.layout.MainWindow)
	if err != nil {
		return "", err
	}
	defer wnd.Release()
	return sapgui.Text(wnd)
}

// waitFor polls for an element the host renders late.
func (d *ME22N) waitFor(session sapgui.Session, id string) (sapgui.Element, error) {
	var lastErr error
	for attempt := 1; attempt <= d.opts.WaitAttempts; attempt++ {
		el, err := session.FindByID(id)
		if err == nil {
			return el, nil
		}
		if !errors.Is(err, sapgui.ErrElementNotFound) {
			return nil, err
		}
		lastErr = err
		if attempt < d.opts.WaitAttempts {
			d.log.Debug("Waiting for %s (attempt %d/%d)", id, attempt, d.opts.WaitAttempts)
			d.opts.Pause(d.opts.WaitInterval)
		}
	}
	return nil, fmt.Errorf("not found after %d attempt(s): %w", d.opts.WaitAttempts, lastErr)
}
