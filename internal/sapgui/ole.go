package sapgui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/ginjaninja78/sap-date-robot/internal/logging"
)

// HRESULTs that mean the SAP GUI process or session is gone.
const (
	hrRPCDisconnected    = 0x80010108 // RPC_E_DISCONNECTED
	hrServerUnavailable  = 0x800706BA // RPC_S_SERVER_UNAVAILABLE
	hrCallFailed         = 0x800706BE // RPC_S_CALL_FAILED
	hrObjectNotConnected = 0x800401FD // CO_E_OBJNOTCONNECTED
)

// OLEConnector attaches to the SAP GUI that is already running and logged on
// through the SAP ROT wrapper, the documented entry point for non-VB clients.
//
// COM objects are apartment-bound: the goroutine that calls Connect must keep
// its OS thread locked and make every later call on the returned session.
type OLEConnector struct {
	ConnectionIndex int
	SessionIndex    int
	Logger          logging.Logger
}

// Connect resolves application → connection → session.
func (c *OLEConnector) Connect(ctx context.Context) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := c.Logger
	if log == nil {
		log = logging.Nop()
	}

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		// S_FALSE: already initialized on this thread.
		if !errors.As(err, &oleErr) || oleErr.Code() != 1 {
			return nil, &ConnectionError{Reason: "initialize COM", Err: err}
		}
	}

	var held []*ole.IDispatch
	cleanup := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release()
		}
		ole.CoUninitialize()
	}
	fail := func(reason string, err error) (*Handle, error) {
		cleanup()
		return nil, &ConnectionError{Reason: reason, Err: err}
	}

	log.Debug("Looking up the SAP GUI scripting engine")
	unknown, err := oleutil.CreateObject("SapROTWr.SapROTWrapper")
	if err != nil {
		return fail("SAP GUI is not installed (SapROTWr.SapROTWrapper)", err)
	}
	rot, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		return fail("query ROT wrapper", err)
	}
	held = append(held, rot)

	entry, err := dispatchCall(rot, "GetROTEntry", "SAPGUI")
	if err != nil || entry == nil {
		return fail("no running SAP GUI instance", err)
	}
	held = append(held, entry)

	app, err := dispatchCall(entry, "GetScriptingEngine")
	if err != nil || app == nil {
		return fail("scripting engine unavailable (is scripting enabled in SAP GUI options?)", err)
	}
	held = append(held, app)

	connections, err := countChildren(app)
	if err != nil {
		return fail("list connections", err)
	}
	if connections == 0 {
		return fail("no open connection, log on to SAP first", nil)
	}
	if c.ConnectionIndex >= connections {
		return fail(fmt.Sprintf("connection index %d out of range, %d connection(s) open", c.ConnectionIndex, connections), nil)
	}
	if connections > 1 {
		log.Warn("%d SAP connections are open, using connection %d as configured", connections, c.ConnectionIndex)
	}

	conn, err := childAt(app, c.ConnectionIndex)
	if err != nil {
		return fail("open connection", err)
	}
	held = append(held, conn)

	disabled, err := boolProperty(conn, "DisabledByServer")
	if err != nil {
		return fail("read DisabledByServer", err)
	}
	if disabled {
		return fail("scripting is disabled on the server (sapgui/user_scripting)", nil)
	}

	sessions, err := countChildren(conn)
	if err != nil {
		return fail("list sessions", err)
	}
	if c.SessionIndex >= sessions {
		return fail(fmt.Sprintf("session index %d out of range, %d session(s) open", c.SessionIndex, sessions), nil)
	}

	sess, err := childAt(conn, c.SessionIndex)
	if err != nil {
		return fail("open session", err)
	}
	held = append(held, sess)

	info := readInfo(sess)
	log.Info("Attached to SAP system %s client %s as %s", info.SystemName, info.Client, info.User)

	return NewHandle(&oleSession{disp: sess}, info, cleanup), nil
}

// =============================================================================
// SESSION AND ELEMENTS
// =============================================================================

type oleSession struct {
	disp *ole.IDispatch
}

func (s *oleSession) FindByID(id string) (Element, error) {
	// The second argument asks findById to return Nothing instead of raising.
	v, err := oleutil.CallMethod(s.disp, "findById", id, false)
	if err != nil {
		return nil, classifyOLEError(id, err)
	}
	disp := v.ToIDispatch()
	if disp == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrElementNotFound)
	}
	return &oleElement{id: id, disp: disp}, nil
}

type oleElement struct {
	id   string
	disp *ole.IDispatch
}

func (e *oleElement) ID() string { return e.id }

func (e *oleElement) Get(property string) (interface{}, error) {
	target, name, release, err := e.walk(property)
	if err != nil {
		return nil, err
	}
	defer release()

	v, err := oleutil.GetProperty(target, name)
	if err != nil {
		return nil, classifyOLEError(e.id+"."+property, err)
	}
	defer v.Clear()
	return v.Value(), nil
}

func (e *oleElement) Set(property string, value interface{}) error {
	target, name, release, err := e.walk(property)
	if err != nil {
		return err
	}
	defer release()

	if _, err := oleutil.PutProperty(target, name, value); err != nil {
		return classifyOLEError(e.id+"."+property, err)
	}
	return nil
}

func (e *oleElement) Call(method string, args ...interface{}) (interface{}, error) {
	v, err := oleutil.CallMethod(e.disp, method, args...)
	if err != nil {
		return nil, classifyOLEError(e.id+"."+method, err)
	}
	defer v.Clear()
	return v.Value(), nil
}

func (e *oleElement) Release() {
	if e.disp != nil {
		e.disp.Release()
		e.disp = nil
	}
}

// walk resolves all but the last segment of a dotted property path.
func (e *oleElement) walk(path string) (*ole.IDispatch, string, func(), error) {
	parts := strings.Split(path, ".")
	target := e.disp
	var intermediates []*ole.IDispatch
	release := func() {
		for _, d := range intermediates {
			d.Release()
		}
	}

	for _, part := range parts[:len(parts)-1] {
		v, err := oleutil.GetProperty(target, part)
		if err != nil {
			release()
			return nil, "", nil, classifyOLEError(e.id+"."+path, err)
		}
		next := v.ToIDispatch()
		if next == nil {
			release()
			return nil, "", nil, fmt.Errorf("%s.%s: %w", e.id, part, ErrElementNotFound)
		}
		intermediates = append(intermediates, next)
		target = next
	}

	return target, parts[len(parts)-1], release, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func dispatchCall(disp *ole.IDispatch, method string, args ...interface{}) (*ole.IDispatch, error) {
	v, err := oleutil.CallMethod(disp, method, args...)
	if err != nil {
		return nil, err
	}
	return v.ToIDispatch(), nil
}

func countChildren(disp *ole.IDispatch) (int, error) {
	children, err := oleutil.GetProperty(disp, "Children")
	if err != nil {
		return 0, err
	}
	coll := children.ToIDispatch()
	if coll == nil {
		return 0, nil
	}
	defer coll.Release()

	count, err := oleutil.GetProperty(coll, "Count")
	if err != nil {
		return 0, err
	}
	switch n := count.Value().(type) {
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected Count type %T", n)
	}
}

func childAt(disp *ole.IDispatch, index int) (*ole.IDispatch, error) {
	v, err := oleutil.CallMethod(disp, "Children", int32(index))
	if err != nil {
		return nil, err
	}
	child := v.ToIDispatch()
	if child == nil {
		return nil, fmt.Errorf("child %d: %w", index, ErrElementNotFound)
	}
	return child, nil
}

func boolProperty(disp *ole.IDispatch, name string) (bool, error) {
	v, err := oleutil.GetProperty(disp, name)
	if err != nil {
		return false, err
	}
	b, _ := v.Value().(bool)
	return b, nil
}

func readInfo(sess *ole.IDispatch) Info {
	el := &oleElement{id: "session", disp: sess}
	read := func(name string) string {
		v, err := el.Get("Info." + name)
		if err != nil {
			return ""
		}
		return toString(v)
	}
	return Info{
		SystemName:  read("SystemName"),
		Client:      read("Client"),
		User:        read("User"),
		Transaction: read("Transaction"),
	}
}

// classifyOLEError maps host failures onto the package sentinels.
func classifyOLEError(what string, err error) error {
	var oleErr *ole.OleError
	if errors.As(err, &oleErr) {
		switch oleErr.Code() {
		case hrRPCDisconnected, hrServerUnavailable, hrCallFailed, hrObjectNotConnected:
			return fmt.Errorf("%s: %w: %v", what, ErrSessionLost, err)
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "control could not be found") || strings.Contains(msg, "findbyid") {
		return fmt.Errorf("%s: %w: %v", what, ErrElementNotFound, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
