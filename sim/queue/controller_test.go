package queue

import "testing"

func TestSetLaneStateByDisplayIndex(t *testing.T) {
	c := NewLaneStateController(3)

	res, idx := c.SetLaneState("2", DesiredOpen)
	if !res.OK {
		t.Fatalf("expected OK, got error %q", res.Error)
	}
	if idx != 1 {
		t.Fatalf("display index 2 should resolve to slice index 1, got %d", idx)
	}
	if c.Desired(1) != DesiredOpen {
		t.Error("expected lane 1's desired state to be DesiredOpen")
	}
}

func TestSetLaneStateByUUID(t *testing.T) {
	c := NewLaneStateController(2)
	id := c.UUID(0)

	res, idx := c.SetLaneState(id.String(), DesiredClosed)
	if !res.OK || idx != 0 {
		t.Fatalf("expected lookup by uuid to resolve lane 0, got idx=%d ok=%v", idx, res.OK)
	}
}

func TestSetLaneStateUnknownRef(t *testing.T) {
	c := NewLaneStateController(1)
	res, idx := c.SetLaneState("99", DesiredOpen)
	if res.OK || idx != -1 {
		t.Error("expected failure for an unknown lane reference")
	}
}

func TestSetLaneStateIdempotence(t *testing.T) {
	c := NewLaneStateController(1)

	first, _ := c.SetLaneState("1", DesiredOpen)
	if first.Idempotent {
		t.Error("first command should not be reported idempotent")
	}
	second, _ := c.SetLaneState("1", DesiredOpen)
	if !second.Idempotent {
		t.Error("repeating the same desired state should be reported idempotent")
	}
}

func TestObserveDrivesStatusTransitions(t *testing.T) {
	c := NewLaneStateController(1)
	c.SetLaneState("1", DesiredOpen)

	c.Observe(0, true)
	if c.Status(0) != StatusOpen {
		t.Fatalf("expected StatusOpen once ground truth reports open, got %v", c.Status(0))
	}

	c.Observe(0, false)
	if c.Status(0) != StatusClosing {
		t.Fatalf("expected StatusClosing immediately after losing ground truth, got %v", c.Status(0))
	}

	c.Observe(0, false)
	if c.Status(0) != StatusClosed {
		t.Fatalf("expected StatusClosed on a subsequent still-not-open observation, got %v", c.Status(0))
	}
}

func TestMetricsAggregatesQueueCounts(t *testing.T) {
	c := NewLaneStateController(2)
	c.Observe(0, true)
	c.Observe(1, false)

	m := c.Metrics(100, []int{3, 1})
	if m.OpenLanes != 1 {
		t.Errorf("OpenLanes: got %d, want 1", m.OpenLanes)
	}
	if m.TotalQueueCount != 4 {
		t.Errorf("TotalQueueCount: got %d, want 4", m.TotalQueueCount)
	}
	if m.AvgQueuePerLane != 2 {
		t.Errorf("AvgQueuePerLane: got %v, want 2", m.AvgQueuePerLane)
	}
}

func TestSuggestionRequiresAClosedLane(t *testing.T) {
	c := NewLaneStateController(1)
	c.Observe(0, true)

	m := Metrics{AvgQueuePerLane: 100, InflowRate: 100}
	if got := c.Suggestion(m); got != "" {
		t.Errorf("expected no suggestion with zero closed lanes, got %q", got)
	}
}

func TestSuggestionFiresOverThreshold(t *testing.T) {
	c := NewLaneStateController(2)
	c.Observe(0, true)
	c.Observe(1, false)

	m := Metrics{AvgQueuePerLane: 10, InflowRate: 0}
	if got := c.Suggestion(m); got == "" {
		t.Error("expected a suggestion when average queue per lane exceeds threshold")
	}
}

func TestRecordQueueEntryTrimsOldEvents(t *testing.T) {
	c := NewLaneStateController(1)
	c.RecordQueueEntry(0)
	c.RecordQueueEntry(50)

	m := c.Metrics(300, []int{0})
	if m.InflowRate != 0 {
		t.Errorf("expected entries older than the window to be trimmed, got rate %v", m.InflowRate)
	}
}
