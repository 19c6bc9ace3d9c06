// Package queue implements the per-lane checkout queue manager: lane
// assignment, ordered waiting lists, the single service slot per lane,
// and service-time progression (spec.md §4.4).
package queue

import (
	"github.com/brentp/intintmap"

	"github.com/retailsim/simcore/sim/rng"
	"github.com/retailsim/simcore/sim/world"
)

// AgentID is a shopper's monotonically increasing, non-zero identifier.
type AgentID = int64

const (
	// DefaultMaxQueueSlots is the default maximum waiting-list length per
	// lane.
	DefaultMaxQueueSlots = 8
	// DefaultSlotSpacing is the default spacing, in meters, between
	// successive waiting positions.
	DefaultSlotSpacing = 0.6
	// DefaultServiceDuration is the default fixed checkout service time,
	// in seconds (spec.md §9's "simple" queue model).
	DefaultServiceDuration = 15.0
	// DefaultFrictionProbability is the probability a service incurs a
	// friction delay.
	DefaultFrictionProbability = 0.08
)

// ServiceTimeModel selects how long a checkout service takes.
type ServiceTimeModel int

const (
	// SimpleService is a fixed duration, the default per spec.md §9's
	// resolution of the Open Question about competing queue models.
	SimpleService ServiceTimeModel = iota
	// BasketWeightedService samples a basket-size-weighted duration, an
	// opt-in refinement (spec.md §6).
	BasketWeightedService
)

// BasketTier is one weighted basket-size service-time bucket.
type BasketTier struct {
	Weight   float64
	MinSecs  float64
	MaxSecs  float64
}

// DefaultBasketTiers mirrors spec.md §6's small/medium/large weights.
var DefaultBasketTiers = []BasketTier{
	{Weight: 0.35, MinSecs: 20, MaxSecs: 60},
	{Weight: 0.45, MinSecs: 45, MaxSecs: 120},
	{Weight: 0.20, MinSecs: 90, MaxSecs: 240},
}

// Config tunes the queue subsystem (spec.md §6).
type Config struct {
	MaxQueueSlots        int
	SlotSpacing          float64
	ServiceDuration      float64
	ServiceModel         ServiceTimeModel
	BasketTiers          []BasketTier
	FrictionProbability  float64
	FrictionMinSecs      float64
	FrictionMaxSecs      float64
}

// DefaultConfig returns the spec.md §6 default tuning.
func DefaultConfig() Config {
	return Config{
		MaxQueueSlots: DefaultMaxQueueSlots, SlotSpacing: DefaultSlotSpacing,
		ServiceDuration: DefaultServiceDuration, ServiceModel: SimpleService,
		BasketTiers: DefaultBasketTiers, FrictionProbability: DefaultFrictionProbability,
		FrictionMinSecs: 15, FrictionMaxSecs: 60,
	}
}

// Lane is a single checkout lane's queue state (spec.md §3).
type Lane struct {
	Index       int
	Site        world.CashierSite
	ServiceZ    float64
	QueueStartZ float64
	SlotSpacing float64

	serviceSlot    AgentID // 0 means empty; agent ids are non-zero
	waiting        []AgentID
	serviceElapsed float64
	serviceTarget  float64
}

// ServiceSlot returns the agent currently in service, or 0 if the slot is
// empty.
func (l *Lane) ServiceSlot() AgentID { return l.serviceSlot }

// Waiting returns the ordered waiting list (head first).
func (l *Lane) Waiting() []AgentID { return l.waiting }

// slotPosition returns the world target for the agent at waiting index i.
func (l *Lane) slotPosition(i int) world.Vector2 {
	return world.Vec2(l.Site.Pos.X(), l.QueueStartZ+float64(i)*l.SlotSpacing)
}

// Manager owns every lane's queue state (spec.md §4.4). agentLane indexes
// agent id -> lane index on the per-tick hot path every queued/serving
// shopper hits via TargetPosition/IsAtFront; brentp/intintmap trades the
// bucket/hash overhead of a generic map for flat int64 storage given the
// keys are the simulator's own monotonically increasing agent ids. The
// library has no delete primitive, so removal tombstones the entry by
// overwriting it with the sentinel noLane rather than freeing it.
type Manager struct {
	lanes     []*Lane
	agentLane *intintmap.Map
	cfg       Config
	rng       *rng.Source

	laneOpen func(laneIndex int) (open bool, known bool)

	// queueEntry is an optional sink notified each time an agent actually
	// arrives in a lane's queue (as opposed to merely being assigned one
	// by StartQueueDecision), used to drive the lane controller's
	// rolling-window inflow-rate metric.
	queueEntry func(now float64)
}

const noLane = -1

// NewManager constructs a queue Manager for the given cashier sites.
func NewManager(sites []world.CashierSite, cfg Config, r *rng.Source) *Manager {
	lanes := make([]*Lane, len(sites))
	for i, s := range sites {
		lanes[i] = &Lane{
			Index: i, Site: s,
			ServiceZ:    s.Pos.Z() + 1.5,
			QueueStartZ: s.Pos.Z() + 3.0,
			SlotSpacing: cfg.SlotSpacing,
		}
	}
	return &Manager{
		lanes: lanes, agentLane: intintmap.New(64, 0.6),
		cfg: cfg, rng: r,
	}
}

// SetLaneOpenLookup wires an optional ground-truth open/closed lookup
// (sourced from the cashier lane states) used to bias lane selection
// toward open lanes.
func (m *Manager) SetLaneOpenLookup(f func(laneIndex int) (open bool, known bool)) {
	m.laneOpen = f
}

// SetQueueEntryHook wires the callback invoked by SetInQueue.
func (m *Manager) SetQueueEntryHook(f func(now float64)) {
	m.queueEntry = f
}

// Lanes returns every lane, in index order.
func (m *Manager) Lanes() []*Lane { return m.lanes }

// NoLaneAvailable reports whether the queue subsystem has zero lanes
// (spec.md §7's "Unknown ROI / missing cashiers" error case).
func (m *Manager) NoLaneAvailable() bool { return len(m.lanes) == 0 }

// StartQueueDecision picks a lane for agent and returns its index, or -1
// if no lane exists or every lane's waiting list is already at
// cfg.MaxQueueSlots (spec.md §4.4, §6's |waiting| <= max_queue_slots
// invariant).
func (m *Manager) StartQueueDecision(agent AgentID) int {
	if len(m.lanes) == 0 {
		return -1
	}
	idx, ok := m.pickLane()
	if !ok {
		return -1
	}
	lane := m.lanes[idx]
	m.agentLane.Put(agent, int64(idx))
	if lane.serviceSlot == 0 && len(lane.waiting) == 0 {
		lane.serviceSlot = agent
	} else {
		lane.waiting = append(lane.waiting, agent)
	}
	return idx
}

// hasCapacity reports whether lane i can accept another waiting agent.
func (m *Manager) hasCapacity(i int) bool {
	l := m.lanes[i]
	if l.serviceSlot == 0 && len(l.waiting) == 0 {
		return true
	}
	return len(l.waiting) < m.cfg.MaxQueueSlots
}

// pickLane chooses uniformly among open lanes with spare queue capacity,
// falling back to uniform over all lanes with spare capacity if none are
// known open. Returns ok=false if every lane is at cfg.MaxQueueSlots
// (spec.md §4.4).
func (m *Manager) pickLane() (int, bool) {
	if m.laneOpen != nil {
		var open []int
		for i := range m.lanes {
			if isOpen, known := m.laneOpen(i); known && isOpen && m.hasCapacity(i) {
				open = append(open, i)
			}
		}
		if len(open) > 0 {
			return open[m.rng.IntN(len(open))], true
		}
	}
	var avail []int
	for i := range m.lanes {
		if m.hasCapacity(i) {
			avail = append(avail, i)
		}
	}
	if len(avail) == 0 {
		return 0, false
	}
	return avail[m.rng.IntN(len(avail))], true
}

func (m *Manager) laneOf(agent AgentID) (*Lane, bool) {
	v, ok := m.agentLane.Get(agent)
	if !ok || v == noLane {
		return nil, false
	}
	return m.lanes[int(v)], true
}

// TargetPosition returns the world point agent should head to: the
// service point if reserved for service, else its waiting slot position
// (spec.md §4.4).
func (m *Manager) TargetPosition(agent AgentID) (world.Vector2, bool) {
	lane, ok := m.laneOf(agent)
	if !ok {
		return world.Vector2{}, false
	}
	if lane.serviceSlot == agent {
		return world.Vec2(lane.Site.Pos.X(), lane.ServiceZ), true
	}
	for i, a := range lane.waiting {
		if a == agent {
			return lane.slotPosition(i), true
		}
	}
	return world.Vector2{}, false
}

// SetInQueue marks agent as having physically arrived at its lane's
// queue (the spec.md §4.4 set_in_queue operation), notifying the queue
// entry hook used for the lane controller's inflow-rate metric. The
// agent is already tracked in the lane's waiting/service-slot state from
// StartQueueDecision; this call only fires the inflow observation at the
// time the agent actually reaches its queue position, not when it was
// merely assigned a lane.
func (m *Manager) SetInQueue(agent AgentID, now float64) {
	if _, ok := m.laneOf(agent); !ok {
		return
	}
	if m.queueEntry != nil {
		m.queueEntry(now)
	}
}

// IsAtFront reports whether agent is in service, promoting the head of
// the waiting list into a free service slot first (spec.md §4.4).
func (m *Manager) IsAtFront(agent AgentID) bool {
	lane, ok := m.laneOf(agent)
	if !ok {
		return false
	}
	m.promote(lane)
	return lane.serviceSlot == agent
}

func (m *Manager) promote(lane *Lane) {
	if lane.serviceSlot == 0 && len(lane.waiting) > 0 {
		lane.serviceSlot = lane.waiting[0]
		lane.waiting = lane.waiting[1:]
	}
}

// StartService opens the service timer for agent, sampling a duration
// per the configured ServiceTimeModel plus an optional friction delay
// (spec.md §4.4, §6).
func (m *Manager) StartService(agent AgentID) {
	lane, ok := m.laneOf(agent)
	if !ok || lane.serviceSlot != agent {
		return
	}
	lane.serviceElapsed = 0
	lane.serviceTarget = m.sampleServiceDuration()
	if m.rng.Bool(m.cfg.FrictionProbability) {
		lane.serviceTarget += m.rng.Range(m.cfg.FrictionMinSecs, m.cfg.FrictionMaxSecs)
	}
}

func (m *Manager) sampleServiceDuration() float64 {
	if m.cfg.ServiceModel == SimpleService || len(m.cfg.BasketTiers) == 0 {
		return m.cfg.ServiceDuration
	}
	weights := make([]float64, len(m.cfg.BasketTiers))
	for i, t := range m.cfg.BasketTiers {
		weights[i] = t.Weight
	}
	tier := m.cfg.BasketTiers[m.rng.WeightedIndex(weights)]
	return m.rng.Range(tier.MinSecs, tier.MaxSecs)
}

// UpdateService advances agent's service timer by dt, returning true once
// the configured duration has elapsed (spec.md §4.4). The comparison
// allows a 1e-9 s tolerance so that summing a fixed dt (e.g. 150 x 0.1)
// completes on the tick whose exact total reaches the target.
func (m *Manager) UpdateService(agent AgentID, dt float64) bool {
	lane, ok := m.laneOf(agent)
	if !ok || lane.serviceSlot != agent {
		return false
	}
	lane.serviceElapsed += dt
	return lane.serviceElapsed >= lane.serviceTarget-1e-9
}

// CompleteService frees agent's service slot and returns an exit anchor
// near the entrance (spec.md §4.4).
func (m *Manager) CompleteService(agent AgentID, entrance world.Vector2) world.Vector2 {
	lane, ok := m.laneOf(agent)
	if ok && lane.serviceSlot == agent {
		lane.serviceSlot = 0
	}
	m.agentLane.Put(agent, noLane)
	return entrance.Add(world.Vec2(0, 2))
}

// RemoveAgent idempotently removes agent from both service and waiting
// (spec.md §4.4's "Queue timeout"/"Service timeout" error paths).
func (m *Manager) RemoveAgent(agent AgentID) {
	lane, ok := m.laneOf(agent)
	if ok {
		if lane.serviceSlot == agent {
			lane.serviceSlot = 0
		}
		for i, a := range lane.waiting {
			if a == agent {
				lane.waiting = append(lane.waiting[:i], lane.waiting[i+1:]...)
				break
			}
		}
	}
	m.agentLane.Put(agent, noLane)
}

// Tick is called once per simulator tick before any shopper or cashier
// ticks, so every shopper observes a consistent snapshot of promotions
// made at the start of the tick (spec.md §5).
func (m *Manager) Tick() {
	for _, lane := range m.lanes {
		m.promote(lane)
	}
}
