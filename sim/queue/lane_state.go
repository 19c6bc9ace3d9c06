package queue

import "github.com/google/uuid"

// LaneState is a lane's ground-truth open/closed status (spec.md §3),
// derived from a cashier's service-area occupancy hysteresis.
type LaneState struct {
	LaneID         uuid.UUID
	DisplayIndex   int
	IsOpen         bool
	OpenSince      float64
	ClosedSince    float64
	CashierAgentID int64
}

const (
	// DefaultOpenConfirmWindow is how long a cashier must be continuously
	// present in the service area before a lane is confirmed open.
	DefaultOpenConfirmWindow = 120.0
	// DefaultCloseGraceWindow is how long a lane stays open after the
	// cashier leaves the service area before it is confirmed closed.
	DefaultCloseGraceWindow = 180.0
)

// Hysteresis applies spec.md §4.7's asymmetric open/close windows given a
// cashier's accumulated time in and out of its service area.
type Hysteresis struct {
	OpenConfirmWindow float64
	CloseGraceWindow  float64
}

// DefaultHysteresis returns the spec.md §6 default windows.
func DefaultHysteresis() Hysteresis {
	return Hysteresis{OpenConfirmWindow: DefaultOpenConfirmWindow, CloseGraceWindow: DefaultCloseGraceWindow}
}

// Update recomputes IsOpen from the cashier's working status and
// accumulated dwell times, recording the virtual-time transition
// boundaries (spec.md §9: never re-use wall-clock time, only the tick's
// own virtual timestamp).
func (h Hysteresis) Update(ls *LaneState, working bool, timeInArea, timeOutsideArea, now float64) {
	wasOpen := ls.IsOpen
	switch {
	case working && timeInArea >= h.OpenConfirmWindow:
		ls.IsOpen = true
	case ls.IsOpen && timeOutsideArea <= h.CloseGraceWindow:
		ls.IsOpen = true
	default:
		ls.IsOpen = false
	}
	if ls.IsOpen && !wasOpen {
		ls.OpenSince = now
	}
	if !ls.IsOpen && wasOpen {
		ls.ClosedSince = now
	}
}
