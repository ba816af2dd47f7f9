package updater

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/sap-date-robot/internal/navigation"
	"github.com/ginjaninja78/sap-date-robot/internal/outcome"
	"github.com/ginjaninja78/sap-date-robot/internal/sapgui"
	"github.com/ginjaninja78/sap-date-robot/internal/sapgui/sapguitest"
	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

var fixedNow = time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)

func newFake() *sapguitest.ME22N {
	return sapguitest.NewME22N(
		sapguitest.NewOrder("4500000001",
			sapguitest.Line{Number: 10, Date: "01.12.2025"},
			sapguitest.Line{Number: 20, Date: "05.12.2025"},
		),
		sapguitest.NewOrder("4500000002",
			sapguitest.Line{Number: 10, Date: "15.01.2026"},
		),
	)
}

func newDriver() *navigation.ME22N {
	return navigation.NewME22N(navigation.DefaultLayout(), navigation.Options{
		WaitAttempts: 2,
		Pause:        func(time.Duration) {},
	})
}

func newUpdater(driver navigation.Driver, maxAttempts int) *Updater {
	return New(driver, Options{
		MaxAttempts: maxAttempts,
		Pause:       func(time.Duration) {},
		Now:         func() time.Time { return fixedNow },
	})
}

func request(order string, line int, date string) types.UpdateRequest {
	return types.UpdateRequest{RowNumber: 2, OrderID: order, LineNumber: line, TargetDate: date}
}

func TestUpdate_Skipped(t *testing.T) {
	fake := newFake()
	u := newUpdater(newDriver(), 1)

	out, err := u.Update(fake, request("4500000001", 10, "01.12.2025"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if out.Status != types.StatusSkipped {
		t.Errorf("Status = %s, want %s (%s)", out.Status, types.StatusSkipped, out.Message)
	}
	if fake.Writes != 0 || fake.Saves != 0 {
		t.Errorf("Writes = %d, Saves = %d, want no write and no save", fake.Writes, fake.Saves)
	}
}

func TestUpdate_Updated(t *testing.T) {
	fake := newFake()
	u := newUpdater(newDriver(), 1)

	req := request("4500000001", 20, "24.12.2025")
	out, err := u.Update(fake, req)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if out.Status != types.StatusUpdated {
		t.Fatalf("Status = %s, want %s (%s)", out.Status, types.StatusUpdated, out.Message)
	}
	if out.Request != req {
		t.Errorf("Request = %+v, want %+v", out.Request, req)
	}
	if out.ID == "" {
		t.Error("outcome has no ID")
	}
	if !out.Timestamp.Equal(fixedNow) {
		t.Errorf("Timestamp = %v, want %v", out.Timestamp, fixedNow)
	}
	if got := fake.Line("4500000001", 20).Date; got != "24.12.2025" {
		t.Errorf("host date = %q, want %q", got, "24.12.2025")
	}
	if fake.Saves != 1 {
		t.Errorf("Saves = %d, want 1", fake.Saves)
	}
}

func TestClassify_StatusBar(t *testing.T) {
	tests := []struct {
		name        string
		line        outcome.StatusLine
		wantStatus  types.Status
		wantMessage string
	}{
		{"blank bar", outcome.StatusLine{}, types.StatusUpdated, "saved"},
		{"whitespace only", outcome.StatusLine{Type: " ", Text: "  "}, types.StatusUpdated, "saved"},
		{"success text", outcome.StatusLine{Type: "S", Text: "Standard PO 4500000001 changed"}, types.StatusUpdated, "Standard PO 4500000001 changed"},
		{"warning", outcome.StatusLine{Type: "W", Text: "Delivery date in the past"}, types.StatusWarning, "Delivery date in the past"},
		{"error without text", outcome.StatusLine{Type: "E"}, types.StatusError, "save rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.line)
			if got.status != tt.wantStatus || got.message != tt.wantMessage {
				t.Errorf("classify(%+v) = %s %q, want %s %q", tt.line, got.status, got.message, tt.wantStatus, tt.wantMessage)
			}
		})
	}
}

func TestUpdate_Warning(t *testing.T) {
	fake := newFake()
	fake.OnSave = func(*sapguitest.Order, *sapguitest.Line, string) (string, string) {
		return "W", "Delivery date in the past"
	}
	u := newUpdater(newDriver(), 1)

	out, err := u.Update(fake, request("4500000001", 10, "01.01.2020"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if out.Status != types.StatusWarning {
		t.Errorf("Status = %s, want %s", out.Status, types.StatusWarning)
	}
	if out.Message != "Delivery date in the past" {
		t.Errorf("Message = %q, want host text", out.Message)
	}
	if got := fake.Line("4500000001", 10).Date; got != "01.01.2020" {
		t.Errorf("host date = %q, want the warned change persisted", got)
	}
}

func TestUpdate_ErrorThenNextItemProceeds(t *testing.T) {
	fake := newFake()
	u := newUpdater(newDriver(), 1)

	out, err := u.Update(fake, request("4599999999", 10, "24.12.2025"))
	if err != nil {
		t.Fatalf("Update() error = %v, want nil for a per-item failure", err)
	}
	if out.Status != types.StatusError {
		t.Fatalf("Status = %s, want %s", out.Status, types.StatusError)
	}
	if !strings.Contains(out.Message, "does not exist") {
		t.Errorf("Message = %q, want the host text", out.Message)
	}

	out, err = u.Update(fake, request("4500000002", 10, "20.01.2026"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if out.Status != types.StatusUpdated {
		t.Errorf("next item Status = %s, want %s (%s)", out.Status, types.StatusUpdated, out.Message)
	}
}

func TestUpdate_SaveRejected(t *testing.T) {
	fake := newFake()
	fake.OnSave = func(*sapguitest.Order, *sapguitest.Line, string) (string, string) {
		return "E", "Delivery date is before the order date"
	}
	u := newUpdater(newDriver(), 3)

	out, err := u.Update(fake, request("4500000001", 10, "01.01.2001"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if out.Status != types.StatusError {
		t.Errorf("Status = %s, want %s", out.Status, types.StatusError)
	}
	if out.Message != "Delivery date is before the order date" {
		t.Errorf("Message = %q", out.Message)
	}
	if fake.Saves != 1 {
		t.Errorf("Saves = %d, want 1 (no retry after save)", fake.Saves)
	}
	if got := fake.Line("4500000001", 10).Date; got != "01.12.2025" {
		t.Errorf("host date = %q, want unchanged", got)
	}
}

func TestUpdate_LineNotFound(t *testing.T) {
	fake := newFake()
	u := newUpdater(newDriver(), 1)

	out, err := u.Update(fake, request("4500000001", 90, "24.12.2025"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if out.Status != types.StatusError {
		t.Errorf("Status = %s, want %s", out.Status, types.StatusError)
	}
	if !strings.Contains(out.Message, "line 90 not found") {
		t.Errorf("Message = %q", out.Message)
	}
	if fake.Writes != 0 {
		t.Errorf("Writes = %d, want 0", fake.Writes)
	}
}

func TestUpdate_ReadBackMismatch(t *testing.T) {
	fake := newFake()
	fake.RejectWrites = true
	u := newUpdater(newDriver(), 1)

	out, err := u.Update(fake, request("4500000001", 10, "24.12.2025"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if out.Status != types.StatusError {
		t.Errorf("Status = %s, want %s", out.Status, types.StatusError)
	}
	if fake.Saves != 0 {
		t.Errorf("Saves = %d, want 0 after a read-back mismatch", fake.Saves)
	}
}

func TestUpdate_SessionLost(t *testing.T) {
	fake := newFake()
	fake.Lost = true
	u := newUpdater(newDriver(), 3)

	out, err := u.Update(fake, request("4500000001", 10, "24.12.2025"))
	if !errors.Is(err, sapgui.ErrSessionLost) {
		t.Fatalf("Update() error = %v, want ErrSessionLost", err)
	}
	if out.Status != types.StatusError {
		t.Errorf("Status = %s, want %s", out.Status, types.StatusError)
	}
}

// flakyDriver fails or panics on the first OpenItemScreen calls.
type flakyDriver struct {
	*navigation.ME22N
	failures int
	panics   bool
	opens    int
}

func (d *flakyDriver) OpenItemScreen(session sapgui.Session, orderID string) (*navigation.ScreenContext, error) {
	d.opens++
	if d.opens <= d.failures {
		if d.panics {
			panic("host binding crashed")
		}
		return nil, &navigation.NavigationError{OrderID: orderID, Reason: "screen not ready"}
	}
	return d.ME22N.OpenItemScreen(session, orderID)
}

func TestUpdate_RetriesBeforeSave(t *testing.T) {
	tests := []struct {
		name        string
		failures    int
		panics      bool
		maxAttempts int
		want        types.Status
		opens       int
	}{
		{"recovers on second attempt", 1, false, 2, types.StatusUpdated, 2},
		{"gives up after max attempts", 3, false, 2, types.StatusError, 2},
		{"single attempt by default", 1, false, 0, types.StatusError, 1},
		{"panic becomes error", 1, true, 1, types.StatusError, 1},
		{"panic is retried", 1, true, 2, types.StatusUpdated, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			driver := &flakyDriver{ME22N: newDriver(), failures: tt.failures, panics: tt.panics}
			u := newUpdater(driver, tt.maxAttempts)

			out, err := u.Update(fake, request("4500000001", 10, "24.12.2025"))
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if out.Status != tt.want {
				t.Errorf("Status = %s, want %s (%s)", out.Status, tt.want, out.Message)
			}
			if driver.opens != tt.opens {
				t.Errorf("opens = %d, want %d", driver.opens, tt.opens)
			}
		})
	}
}

func TestUpdate_PanicMessage(t *testing.T) {
	driver := &flakyDriver{ME22N: newDriver(), failures: 1, panics: true}
	u := newUpdater(driver, 1)

	out, _ := u.Update(newFake(), request("4500000001", 10, "24.12.2025"))
	if !strings.Contains(out.Message, "host binding crashed") {
		t.Errorf("Message = %q, want the panic value", out.Message)
	}
}
