// Package sapguitest provides an in-memory ME22N screen for tests.
//
// The fake keeps just enough screen state (current transaction, open popup,
// opened order, table scroll position, selected item, unsaved edit, status
// bar) to exercise the navigation driver, the item updater and the batch
// runner without a SAP GUI.
package sapguitest

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ginjaninja78/sap-date-robot/internal/navigation"
	"github.com/ginjaninja78/sap-date-robot/internal/sapgui"
)

// Line is one purchase order item.
type Line struct {
	Number int
	Date   string
}

// Order is one purchase order.
type Order struct {
	Number   string
	Lines    []*Line
	LockedBy string
}

// SaveFunc decides the status bar after a save. Returning an "E" or "A"
// message type rejects the change.
type SaveFunc func(order *Order, line *Line, newDate string) (msgType, text string)

const (
	popupNone    = ""
	popupSelect  = "select"
	popupConfirm = "confirm"
	popupLeave   = "leave"
)

// ME22N is a fake SAP GUI session.
type ME22N struct {
	Orders      map[string]*Order
	VisibleRows int
	OnSave      SaveFunc

	// SaveConfirmation makes save open a confirmation popup first.
	SaveConfirmation bool

	// RejectWrites makes the date field ignore typed values.
	RejectWrites bool

	// FailOn makes FindByID return the error for that ID.
	FailOn map[string]error

	// Lost makes every call fail with sapgui.ErrSessionLost.
	Lost bool

	// Counters.
	Writes int
	Saves  int
	Opens  int

	mu       sync.Mutex
	layout   navigation.Layout
	cells    map[string]int
	tx       string
	title    string
	okcd     string
	popup    string
	orderNo  string
	current  *Order
	scroll   int
	selected int
	pending  string
	dirty    bool
	sbarType string
	sbarText string
}

// NewME22N builds a fake with the default layout, three visible item rows
// and a save that always succeeds.
func NewME22N(orders ...*Order) *ME22N {
	f := &ME22N{
		Orders:      map[string]*Order{},
		VisibleRows: 3,
		layout:      navigation.DefaultLayout(),
		title:       "SAP Easy Access",
	}
	for _, o := range orders {
		f.Orders[o.Number] = o
	}
	return f
}

// NewOrder is a convenience constructor: lines are given as number/date pairs.
func NewOrder(number string, lines ...Line) *Order {
	o := &Order{Number: number}
	for i := range lines {
		l := lines[i]
		o.Lines = append(o.Lines, &l)
	}
	return o
}

// Line returns an order line for assertions.
func (f *ME22N) Line(order string, number int) *Line {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.Orders[order]
	if o == nil {
		return nil
	}
	for _, l := range o.Lines {
		if l.Number == number {
			return l
		}
	}
	return nil
}

// Status returns the current status bar.
func (f *ME22N) Status() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sbarType, f.sbarText
}

// =============================================================================
// sapgui.Session
// =============================================================================

// FindByID implements sapgui.Session.
func (f *ME22N) FindByID(id string) (sapgui.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Lost {
		return nil, fmt.Errorf("%s: %w", id, sapgui.ErrSessionLost)
	}
	if err, ok := f.FailOn[id]; ok {
		return nil, err
	}
	if !f.exists(id) {
		return nil, fmt.Errorf("%s: %w", id, sapgui.ErrElementNotFound)
	}
	return &element{f: f, id: id}, nil
}

func (f *ME22N) exists(id string) bool {
	l := f.layout
	switch id {
	case l.MainWindow, l.OKCode, l.StatusBar, l.SaveButton, l.OtherOrderButton:
		return true
	case l.PopupWindow, l.PopupCancel:
		return f.popup != popupNone
	case l.OrderNumberField:
		return f.popup == popupSelect
	case l.PopupConfirm:
		return f.popup == popupConfirm
	case l.PopupLeave:
		return f.popup == popupLeave
	case l.ItemTable, l.ItemSelector, l.DeliveryDateCell:
		return f.current != nil && f.popup == popupNone
	}
	if _, ok := f.cellRow(id); ok {
		return f.current != nil && f.popup == popupNone
	}
	return false
}

func (f *ME22N) cellRow(id string) (int, bool) {
	if f.cells == nil || len(f.cells) != f.VisibleRows {
		f.cells = make(map[string]int, f.VisibleRows)
		for r := 0; r < f.VisibleRows; r++ {
			f.cells[fmt.Sprintf(f.layout.ItemNumberCell, r)] = r
		}
	}
	r, ok := f.cells[id]
	return r, ok
}

type element struct {
	f  *ME22N
	id string
}

func (e *element) ID() string { return e.id }
func (e *element) Release()   {}

func (e *element) Get(property string) (interface{}, error) {
	f := e.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Lost {
		return nil, sapgui.ErrSessionLost
	}
	l := f.layout

	switch {
	case e.id == l.MainWindow && property == "Text":
		return f.title, nil
	case e.id == l.OKCode && property == "Text":
		return f.okcd, nil
	case e.id == l.StatusBar && property == "MessageType":
		return f.sbarType, nil
	case e.id == l.StatusBar && property == "Text":
		return f.sbarText, nil
	case e.id == l.OrderNumberField && property == "Text":
		return f.orderNo, nil
	case e.id == l.ItemTable && property == "RowCount":
		return int32(len(f.current.Lines)), nil
	case e.id == l.ItemTable && property == "VisibleRowCount":
		return int32(f.VisibleRows), nil
	case e.id == l.ItemTable && property == "verticalScrollbar.position":
		return int32(f.scroll), nil
	case e.id == l.ItemSelector && property == "Key":
		return fmt.Sprintf("%4d", f.selected+1), nil
	case e.id == l.DeliveryDateCell && property == "Text":
		if f.dirty {
			return f.pending, nil
		}
		return f.current.Lines[f.selected].Date, nil
	}

	if r, ok := f.cellRow(e.id); ok && property == "Text" {
		abs := f.scroll + r
		if abs >= len(f.current.Lines) {
			return "", nil
		}
		return strconv.Itoa(f.current.Lines[abs].Number), nil
	}

	return nil, fmt.Errorf("%s: unsupported property %q", e.id, property)
}

func (e *element) Set(property string, value interface{}) error {
	f := e.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Lost {
		return sapgui.ErrSessionLost
	}
	l := f.layout

	switch {
	case e.id == l.OKCode && property == "Text":
		f.okcd = fmt.Sprint(value)
		return nil
	case e.id == l.OrderNumberField && property == "Text":
		f.orderNo = fmt.Sprint(value)
		return nil
	case e.id == l.ItemTable && property == "verticalScrollbar.position":
		pos, ok := value.(int)
		if !ok {
			return fmt.Errorf("scroll position must be int, got %T", value)
		}
		maxPos := len(f.current.Lines) - 1
		if pos > maxPos {
			pos = maxPos
		}
		if pos < 0 {
			pos = 0
		}
		f.scroll = pos
		return nil
	case e.id == l.ItemSelector && property == "Key":
		idx, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(value)))
		if err != nil || idx < 1 || idx > len(f.current.Lines) {
			return fmt.Errorf("invalid combo key %q", value)
		}
		f.selected = idx - 1
		return nil
	case e.id == l.DeliveryDateCell && property == "Text":
		f.Writes++
		if f.RejectWrites {
			return nil
		}
		f.pending = fmt.Sprint(value)
		f.dirty = f.pending != f.current.Lines[f.selected].Date
		return nil
	case e.id == l.DeliveryDateCell && property == "caretPosition":
		return nil
	}

	return fmt.Errorf("%s: cannot set %q", e.id, property)
}

func (e *element) Call(method string, args ...interface{}) (interface{}, error) {
	f := e.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Lost {
		return nil, sapgui.ErrSessionLost
	}
	l := f.layout

	switch {
	case e.id == l.MainWindow && method == "sendVKey":
		f.enterCommand()
		return nil, nil
	case e.id == l.MainWindow && method == "maximize":
		return nil, nil
	case e.id == l.PopupWindow && method == "sendVKey":
		if f.popup == popupSelect {
			f.selectOrder()
		}
		return nil, nil
	case e.id == l.ItemSelector && method == "setFocus":
		return nil, nil
	case method == "press":
		return nil, f.press(e.id)
	}

	return nil, fmt.Errorf("%s: unsupported method %q", e.id, method)
}

// =============================================================================
// SCREEN LOGIC
// =============================================================================

func (f *ME22N) setStatus(msgType, text string) {
	f.sbarType, f.sbarText = msgType, text
}

func (f *ME22N) enterCommand() {
	code := strings.TrimSpace(f.okcd)
	f.okcd = ""
	f.setStatus("", "")

	if !strings.HasPrefix(code, "/n") && !strings.HasPrefix(code, "/N") {
		if code != "" {
			f.setStatus("E", fmt.Sprintf("Function code %s is not possible", code))
		}
		return
	}
	if f.dirty {
		f.popup = popupLeave
		return
	}

	tx := strings.ToUpper(code[2:])
	switch tx {
	case "":
		f.tx, f.title, f.current = "", "SAP Easy Access", nil
	case "ME22N":
		f.tx, f.title, f.current = tx, "Change Purchase Order", nil
	default:
		f.setStatus("E", fmt.Sprintf("Transaction %s does not exist", tx))
	}
}

func (f *ME22N) selectOrder() {
	f.Opens++
	o, ok := f.Orders[f.orderNo]
	if !ok {
		f.setStatus("E", fmt.Sprintf("Purchase order %s does not exist", f.orderNo))
		return
	}
	if o.LockedBy != "" {
		f.setStatus("E", fmt.Sprintf("Purchase order %s is being processed by user %s", o.Number, o.LockedBy))
		return
	}
	f.popup = popupNone
	f.current = o
	f.title = fmt.Sprintf("Standard PO %s Change", o.Number)
	f.scroll, f.selected = 0, 0
	f.pending, f.dirty = "", false
}

func (f *ME22N) press(id string) error {
	l := f.layout
	switch id {
	case l.OtherOrderButton:
		if f.tx != "ME22N" {
			return fmt.Errorf("button %s not available in %q", id, f.title)
		}
		f.popup, f.orderNo = popupSelect, ""
	case l.PopupCancel:
		f.popup = popupNone
	case l.PopupLeave:
		f.popup = popupNone
		f.dirty, f.pending = false, ""
		f.tx, f.title, f.current = "", "SAP Easy Access", nil
	case l.PopupConfirm:
		f.popup = popupNone
		f.commit()
	case l.SaveButton:
		f.Saves++
		if f.current == nil {
			f.setStatus("E", "No document to save")
			return nil
		}
		if !f.dirty {
			f.setStatus("I", "No data changed")
			return nil
		}
		if f.SaveConfirmation {
			f.popup = popupConfirm
			return nil
		}
		f.commit()
	default:
		return fmt.Errorf("%s cannot be pressed", id)
	}
	return nil
}

func (f *ME22N) commit() {
	line := f.current.Lines[f.selected]
	msgType, text := "S", fmt.Sprintf("Standard PO %s changed", f.current.Number)
	if f.OnSave != nil {
		msgType, text = f.OnSave(f.current, line, f.pending)
	}
	f.setStatus(msgType, text)
	if msgType == "E" || msgType == "A" {
		return
	}
	line.Date = f.pending
	f.pending, f.dirty = "", false
}
