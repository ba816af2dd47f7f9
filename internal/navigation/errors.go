package navigation

import "fmt"

// NavigationError means the order screen could not be reached: the order
// does not exist, is locked, or the host showed a screen the driver does not
// recognize. It is fatal to one item only.
type NavigationError struct {
	OrderID string
	Reason  string
	Err     error
}

func (e *NavigationError) Error() string {
	msg := fmt.Sprintf("order %s: %s", e.OrderID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NavigationError) Unwrap() error { return e.Err }

// LineNotFoundError means the order has no item with the requested number.
type LineNotFoundError struct {
	OrderID string
	Line    int

	// Scanned is how many item rows were inspected.
	Scanned int
}

func (e *LineNotFoundError) Error() string {
	return fmt.Sprintf("order %s: line %d not found (%d item(s) scanned)", e.OrderID, e.Line, e.Scanned)
}
