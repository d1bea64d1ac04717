package common

import "errors"

// ErrModulePaused is returned when the circuit breaker blocks a flow.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named flow is currently halted.
type PauseView interface {
	IsPaused(flow string) bool
}

// Guard rejects the call when the named flow is paused. A nil view or empty
// flow name always passes so callers can leave pausing unconfigured.
func Guard(p PauseView, flow string) error {
	if p == nil || flow == "" {
		return nil
	}
	if p.IsPaused(flow) {
		return ErrModulePaused
	}
	return nil
}
