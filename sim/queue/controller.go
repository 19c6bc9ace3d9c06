package queue

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// LaneDesired is a manual open/close command target (spec.md §4.8, §6).
type LaneDesired int

const (
	DesiredNone LaneDesired = iota
	DesiredOpen
	DesiredClosed
)

// LaneStatus tracks a lane's observed transition state as commands take
// effect (spec.md §4.8).
type LaneStatus int

const (
	StatusClosed LaneStatus = iota
	StatusOpening
	StatusOpen
	StatusClosing
)

func (s LaneStatus) String() string {
	switch s {
	case StatusOpening:
		return "OPENING"
	case StatusOpen:
		return "OPEN"
	case StatusClosing:
		return "CLOSING"
	default:
		return "CLOSED"
	}
}

type laneEntry struct {
	id      uuid.UUID
	display int
	desired LaneDesired
	status  LaneStatus
}

// DefaultInflowWindow is the default rolling window, in seconds, used for
// LaneStateController's throughput metrics.
const DefaultInflowWindow = 120.0

// LaneStateController is the optional manual-control surface over the
// queue subsystem's lanes (spec.md §4.8). It indexes lanes by both
// queue-zone UUID and by position-sorted display index; commands are
// idempotent. SetLaneState records the desired state and moves an Open
// lane to Closing or a Closed lane to Opening immediately; the settled
// Open/Closed status follows from later Observe calls.
type LaneStateController struct {
	lanes        []*laneEntry
	byUUID       map[uuid.UUID]*laneEntry
	window       float64
	entryTimes   []float64
	threshold    float64
	rateThreshold float64
}

// NewLaneStateController builds a controller over n lanes.
func NewLaneStateController(n int) *LaneStateController {
	c := &LaneStateController{
		byUUID: make(map[uuid.UUID]*laneEntry, n),
		window: DefaultInflowWindow, threshold: 4, rateThreshold: 6,
	}
	for i := 0; i < n; i++ {
		e := &laneEntry{id: uuid.New(), display: i + 1}
		c.lanes = append(c.lanes, e)
		c.byUUID[e.id] = e
	}
	return c
}

// UUID returns lane i's canonical identifier.
func (c *LaneStateController) UUID(i int) uuid.UUID { return c.lanes[i].id }

func (c *LaneStateController) resolve(ref string) (*laneEntry, int, bool) {
	if id, err := uuid.Parse(ref); err == nil {
		if e, ok := c.byUUID[id]; ok {
			for i, l := range c.lanes {
				if l == e {
					return e, i, true
				}
			}
		}
		return nil, 0, false
	}
	if n, err := strconv.Atoi(ref); err == nil {
		for i, l := range c.lanes {
			if l.display == n {
				return l, i, true
			}
		}
	}
	return nil, 0, false
}

// CommandResult is the response to SetLaneState (spec.md §6).
type CommandResult struct {
	OK         bool
	Status     string
	Idempotent bool
	Error      string
}

// SetLaneState applies a manual open/closed command, keyed by either the
// lane's UUID or its 1-based display index (spec.md §4.8, §6, §8's
// idempotence property).
func (c *LaneStateController) SetLaneState(ref string, desired LaneDesired) (CommandResult, int) {
	e, idx, ok := c.resolve(ref)
	if !ok {
		return CommandResult{OK: false, Error: fmt.Sprintf("unknown lane %q", ref)}, -1
	}
	if desired != DesiredOpen && desired != DesiredClosed {
		return CommandResult{OK: false, Error: "invalid desired state"}, -1
	}
	idempotent := e.desired == desired
	e.desired = desired
	if desired == DesiredClosed && e.status == StatusOpen {
		e.status = StatusClosing
	} else if desired == DesiredOpen && e.status == StatusClosed {
		e.status = StatusOpening
	}
	return CommandResult{OK: true, Status: e.status.String(), Idempotent: idempotent}, idx
}

// Desired returns lane i's current desired state.
func (c *LaneStateController) Desired(i int) LaneDesired { return c.lanes[i].desired }

// Status returns lane i's current observed status.
func (c *LaneStateController) Status(i int) LaneStatus { return c.lanes[i].status }

// Observe updates lane i's status from the lane's actual ground-truth
// open/closed flag, called once per tick by the Simulator after the
// cashier FSMs have run (spec.md §4.8: "updates status each tick from the
// cashier's FSM").
func (c *LaneStateController) Observe(i int, isOpen bool) {
	e := c.lanes[i]
	switch {
	case isOpen:
		e.status = StatusOpen
	case e.status == StatusOpening || e.status == StatusOpen:
		e.status = StatusClosing
	default:
		if e.status != StatusClosing {
			e.status = StatusClosed
		} else if !isOpen {
			e.status = StatusClosed
		}
	}
}

// RecordQueueEntry logs a queue-entry event at virtual time now, used for
// the rolling-window inflow-rate metric.
func (c *LaneStateController) RecordQueueEntry(now float64) {
	c.entryTimes = append(c.entryTimes, now)
	c.trim(now)
}

func (c *LaneStateController) trim(now float64) {
	cut := 0
	for cut < len(c.entryTimes) && now-c.entryTimes[cut] > c.window {
		cut++
	}
	if cut > 0 {
		c.entryTimes = c.entryTimes[cut:]
	}
}

// Metrics is the aggregate snapshot exposed by LaneStateController
// (spec.md §4.8).
type Metrics struct {
	OpenLanes      int
	TotalQueueCount int
	AvgQueuePerLane float64
	InflowRate      float64
}

// Metrics computes the aggregate view over the rolling window ending at
// now, given each lane's current waiting-list length.
func (c *LaneStateController) Metrics(now float64, waitingLens []int) Metrics {
	c.trim(now)
	var open, total int
	for i, l := range c.lanes {
		if l.status == StatusOpen {
			open++
		}
		if i < len(waitingLens) {
			total += waitingLens[i]
		}
	}
	avg := 0.0
	if len(c.lanes) > 0 {
		avg = float64(total) / float64(len(c.lanes))
	}
	rate := float64(len(c.entryTimes)) / c.window
	return Metrics{OpenLanes: open, TotalQueueCount: total, AvgQueuePerLane: avg, InflowRate: rate}
}

// Suggestion returns a human-readable suggestion to open another lane
// when queueing pressure crosses the configured thresholds and at least
// one lane remains closed, or "" otherwise (spec.md §4.8).
func (c *LaneStateController) Suggestion(m Metrics) string {
	var closedExists bool
	for _, l := range c.lanes {
		if l.status == StatusClosed {
			closedExists = true
			break
		}
	}
	if !closedExists {
		return ""
	}
	if m.AvgQueuePerLane > c.threshold {
		return "open another lane: average queue per lane exceeds threshold"
	}
	if m.InflowRate > c.rateThreshold {
		return "open another lane: inflow rate exceeds threshold"
	}
	return ""
}
