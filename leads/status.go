package leads

import "fmt"

// StatusHistory pairs the current status with its append-only tracker
type StatusHistory struct {
	Current Status
	Tracker []Status
}

// NewStatusHistory starts a lead in StatusNew with the initial state recorded
func NewStatusHistory() StatusHistory {
	return StatusHistory{Current: StatusNew, Tracker: []Status{StatusNew}}
}

// ParseStatus validates a wire value
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", invalid("status", fmt.Errorf("%w: %q", ErrInvalidStatus, s))
	}
	return st, nil
}

// Transition moves to next. Any status may follow any other; the tracker
// grows by one entry whenever the value actually changes.
func (h *StatusHistory) Transition(next Status) (bool, error) {
	if !next.IsValid() {
		return false, invalid("status", fmt.Errorf("%w: %q", ErrInvalidStatus, next))
	}
	if next == h.Current {
		return false, nil
	}
	h.Current = next
	h.Tracker = append(h.Tracker, next)
	return true, nil
}
