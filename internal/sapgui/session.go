// =============================================================================
// SAP Delivery Date Robot - SAP GUI Scripting Surface
// =============================================================================
//
// This package is the only place that knows the robot talks to SAP GUI
// through its scripting engine. The rest of the robot sees a Session that
// finds screen elements by their scripting ID (e.g. "wnd[0]/sbar") and
// Elements that expose properties and methods by name.
//
// SCRIPTING OBJECT MODEL:
//   GuiApplication
//   └── GuiConnection (Children of the application, one per logon)
//       └── GuiSession (Children of the connection, one per window)
//           └── wnd[0], wnd[1] ... (FindById)
//
// =============================================================================

package sapgui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrElementNotFound is returned when FindByID cannot resolve an ID.
	ErrElementNotFound = errors.New("element not found")

	// ErrSessionLost is returned when the host application or the session
	// window went away. It is fatal to the batch run.
	ErrSessionLost = errors.New("SAP GUI session lost")
)

// ConnectionError is returned by Connector.Connect. It is fatal to the whole
// batch: without a session nothing can proceed.
type ConnectionError struct {
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot connect to SAP GUI: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot connect to SAP GUI: %s", e.Reason)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// =============================================================================
// INTERFACES
// =============================================================================

// Session is a live scripting session.
type Session interface {
	// FindByID resolves a scripting ID. A missing element yields an error
	// wrapping ErrElementNotFound.
	FindByID(id string) (Element, error)
}

// Element is one scripting object. Property names may be dotted paths such
// as "verticalScrollbar.position".
type Element interface {
	ID() string
	Get(property string) (interface{}, error)
	Set(property string, value interface{}) error
	Call(method string, args ...interface{}) (interface{}, error)

	// Release frees the underlying host reference.
	Release()
}

// Connector attaches to a running SAP GUI.
type Connector interface {
	Connect(ctx context.Context) (*Handle, error)
}

// Info describes the attached session, for logging.
type Info struct {
	SystemName  string
	Client      string
	User        string
	Transaction string
}

// Handle is the session acquired for one batch run. The runner owns it and
// must Close it on every exit path.
type Handle struct {
	Session Session
	Info    Info

	release func()
	closed  bool
}

// NewHandle wraps a session. release may be nil.
func NewHandle(session Session, info Info, release func()) *Handle {
	return &Handle{Session: session, Info: info, release: release}
}

// Close releases the session. Calling it twice is safe.
func (h *Handle) Close() {
	if h == nil || h.closed {
		return
	}
	h.closed = true
	if h.release != nil {
		h.release()
	}
}

// =============================================================================
// ELEMENT HELPERS
// =============================================================================

// Text reads the Text property.
func Text(e Element) (string, error) {
	v, err := e.Get("Text")
	if err != nil {
		return "", err
	}
	return toString(v), nil
}

// SetText writes the Text property.
func SetText(e Element, text string) error {
	return e.Set("Text", text)
}

// Press presses a button.
func Press(e Element) error {
	_, err := e.Call("press")
	return err
}

// SendVKey sends a virtual key to a window (0 = Enter, 11 = Save).
func SendVKey(e Element, key int) error {
	_, err := e.Call("sendVKey", key)
	return err
}

// String reads a property as text.
func String(e Element, property string) (string, error) {
	v, err := e.Get(property)
	if err != nil {
		return "", err
	}
	return toString(v), nil
}

// Int reads a numeric property.
func Int(e Element, property string) (int, error) {
	v, err := e.Get(property)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%s.%s: %w", e.ID(), property, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%s.%s: unexpected type %T", e.ID(), property, v)
	}
}

// Exists reports whether id resolves. Errors other than "not found" are
// returned so that a lost session is never mistaken for a missing popup.
func Exists(s Session, id string) (bool, error) {
	el, err := s.FindByID(id)
	if err != nil {
		if errors.Is(err, ErrElementNotFound) {
			return false, nil
		}
		return false, err
	}
	el.Release()
	return true, nil
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
