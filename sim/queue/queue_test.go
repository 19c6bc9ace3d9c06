package queue

import (
	"testing"

	"github.com/retailsim/simcore/sim/rng"
	"github.com/retailsim/simcore/sim/world"
)

func testSites(n int) []world.CashierSite {
	sites := make([]world.CashierSite, n)
	for i := range sites {
		sites[i] = world.CashierSite{
			Pos:   world.Vec2(float64(i)*3, 8),
			Width: 1.5,
		}
	}
	return sites
}

func TestStartQueueDecisionFillsServiceSlotFirst(t *testing.T) {
	m := NewManager(testSites(1), DefaultConfig(), rng.New(1))

	idx := m.StartQueueDecision(1)
	if idx != 0 {
		t.Fatalf("lane index: got %d, want 0", idx)
	}
	if m.Lanes()[0].ServiceSlot() != 1 {
		t.Errorf("expected agent 1 to take the empty service slot directly")
	}

	m.StartQueueDecision(2)
	if got := m.Lanes()[0].Waiting(); len(got) != 1 || got[0] != 2 {
		t.Errorf("expected agent 2 to join the waiting list, got %v", got)
	}
}

func TestTargetPositionForServiceVsWaiting(t *testing.T) {
	m := NewManager(testSites(1), DefaultConfig(), rng.New(1))
	m.StartQueueDecision(1)
	m.StartQueueDecision(2)

	servicePos, ok := m.TargetPosition(1)
	if !ok {
		t.Fatal("expected a target position for the serving agent")
	}
	if servicePos.Z() != m.Lanes()[0].ServiceZ {
		t.Errorf("service target z: got %v, want %v", servicePos.Z(), m.Lanes()[0].ServiceZ)
	}

	waitPos, ok := m.TargetPosition(2)
	if !ok {
		t.Fatal("expected a target position for the waiting agent")
	}
	if waitPos.Z() == servicePos.Z() {
		t.Error("waiting agent's target should differ from the service point")
	}
}

func TestIsAtFrontPromotesWaitingHead(t *testing.T) {
	m := NewManager(testSites(1), DefaultConfig(), rng.New(1))
	m.StartQueueDecision(1)
	m.StartQueueDecision(2)

	if m.IsAtFront(2) {
		t.Fatal("agent 2 should not be at front while agent 1 occupies the service slot")
	}

	m.CompleteService(1, world.Vec2(0, 0))
	m.Tick()

	if !m.IsAtFront(2) {
		t.Error("agent 2 should be promoted to the service slot once it frees up")
	}
	if len(m.Lanes()[0].Waiting()) != 0 {
		t.Error("waiting list should be empty after promotion")
	}
}

func TestServiceLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceModel = SimpleService
	cfg.FrictionProbability = 0
	cfg.ServiceDuration = 10
	m := NewManager(testSites(1), cfg, rng.New(1))
	m.StartQueueDecision(1)

	m.StartService(1)
	if m.UpdateService(1, 5) {
		t.Error("service should not complete after only half its duration")
	}
	if !m.UpdateService(1, 5) {
		t.Error("service should complete once elapsed reaches its duration")
	}

	anchor := m.CompleteService(1, world.Vec2(10, 1))
	if anchor.X() != 10 || anchor.Z() != 3 {
		t.Errorf("exit anchor: got %v, want (10,3)", anchor)
	}
	if m.Lanes()[0].ServiceSlot() != 0 {
		t.Error("service slot should be freed after CompleteService")
	}
}

func TestRemoveAgentIsIdempotent(t *testing.T) {
	m := NewManager(testSites(1), DefaultConfig(), rng.New(1))
	m.StartQueueDecision(1)
	m.StartQueueDecision(2)

	m.RemoveAgent(2)
	if got := m.Lanes()[0].Waiting(); len(got) != 0 {
		t.Errorf("expected agent 2 removed from waiting, got %v", got)
	}
	// Removing again, or removing an agent never enqueued, must not panic
	// or corrupt state.
	m.RemoveAgent(2)
	m.RemoveAgent(999)

	if _, ok := m.TargetPosition(2); ok {
		t.Error("removed agent should have no target position")
	}
}

func TestSetInQueueNotifiesTheEntryHook(t *testing.T) {
	m := NewManager(testSites(1), DefaultConfig(), rng.New(1))
	m.StartQueueDecision(1)

	var notifiedAt []float64
	m.SetQueueEntryHook(func(now float64) { notifiedAt = append(notifiedAt, now) })

	m.SetInQueue(1, 12.5)
	if len(notifiedAt) != 1 || notifiedAt[0] != 12.5 {
		t.Fatalf("expected the entry hook to fire once with now=12.5, got %v", notifiedAt)
	}

	// An id never assigned a lane must not notify.
	m.SetInQueue(999, 20)
	if len(notifiedAt) != 1 {
		t.Errorf("expected no additional notification for an unassigned agent, got %v", notifiedAt)
	}
}

func TestNoLaneAvailable(t *testing.T) {
	m := NewManager(nil, DefaultConfig(), rng.New(1))
	if !m.NoLaneAvailable() {
		t.Error("expected NoLaneAvailable for a zero-lane manager")
	}
	if idx := m.StartQueueDecision(1); idx != -1 {
		t.Errorf("expected -1 from StartQueueDecision with no lanes, got %d", idx)
	}
}

func TestPickLanePrefersOpenLanes(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(testSites(3), cfg, rng.New(7))
	m.SetLaneOpenLookup(func(idx int) (bool, bool) {
		return idx == 2, true
	})

	// One agent fills the service slot, the rest fill the waiting list up
	// to its cap; all of them still fit in lane 2 alone.
	n := 1 + cfg.MaxQueueSlots
	for i := 0; i < n; i++ {
		idx := m.StartQueueDecision(AgentID(i + 1))
		if idx != 2 {
			t.Fatalf("expected every agent routed to the only open lane (2), got %d", idx)
		}
	}
}

func TestStartQueueDecisionRejectsOnceLaneIsFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxQueueSlots = 2
	m := NewManager(testSites(1), cfg, rng.New(1))

	m.StartQueueDecision(1) // takes the empty service slot
	m.StartQueueDecision(2) // waiting[0]
	m.StartQueueDecision(3) // waiting[1], lane now at cfg.MaxQueueSlots

	if idx := m.StartQueueDecision(4); idx != -1 {
		t.Fatalf("expected -1 once the only lane's waiting list is at MaxQueueSlots, got %d", idx)
	}
	if got := len(m.Lanes()[0].Waiting()); got != cfg.MaxQueueSlots {
		t.Errorf("expected the waiting list to stay at MaxQueueSlots, got %d", got)
	}
}

func TestStartQueueDecisionSpillsToLaneWithCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxQueueSlots = 1
	m := NewManager(testSites(2), cfg, rng.New(1))

	// With rng.New(1) the uniform draws place the first three agents as:
	m.StartQueueDecision(1) // lane 1 service slot
	m.StartQueueDecision(2) // lane 0 service slot
	m.StartQueueDecision(3) // lane 0 waiting[0], lane 0 now full

	idx := m.StartQueueDecision(4)
	if idx != 1 {
		t.Fatalf("expected the 4th agent to spill into lane 1 (has capacity), got lane %d", idx)
	}
	if got := len(m.Lanes()[1].Waiting()); got != 1 {
		t.Errorf("expected lane 1's waiting list to hold the spilled agent, got %d entries", got)
	}
}
