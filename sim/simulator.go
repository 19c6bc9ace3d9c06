package sim

import (
	"log/slog"
	"os"

	"github.com/retailsim/simcore/sim/agent"
	"github.com/retailsim/simcore/sim/antiglitch"
	"github.com/retailsim/simcore/sim/confusion"
	"github.com/retailsim/simcore/sim/queue"
	"github.com/retailsim/simcore/sim/rng"
	"github.com/retailsim/simcore/sim/scene"
	"github.com/retailsim/simcore/sim/world"
)

// violationRecord is one logged gate violation, kept in a bounded ring
// (spec.md §7's "bounded ring of recent violations").
type violationRecord struct {
	AgentID int64
	Gate    string
	At      float64
}

const maxViolationRecords = 256

// Simulator owns every subsystem and is the sole mutable state of one
// running venue simulation (spec.md §4.10, §5). All mutation happens
// inside Update or the command/spawn entry points, which the caller must
// serialize externally — the simulator itself is not safe for concurrent
// use.
type Simulator struct {
	cfg Config
	rng *rng.Source
	log *slog.Logger

	Grid    *world.NavGrid
	Planner *world.AStar
	Gates   *world.GateManager
	Queue   *queue.Manager
	Anti    *antiglitch.Detector
	Confuse *confusion.Confuser
	Lanes   *queue.LaneStateController

	entrancePos world.Vector2

	shoppers    []*agent.Shopper
	cashiers    []*agent.Cashier
	laneStates  []*queue.LaneState

	nextShopperID int64
	nextCashierID int64

	totalSpawned int
	totalExited  int

	now  float64
	tick int64

	violations []violationRecord

	heatmap     []float64
	heatmapGW   int
	heatmapGD   int
}

// New constructs a Simulator from a decoded scene. The only zero value it
// fills in is a nil cfg.Log, which becomes a stderr text logger; every
// other field is used as given, so callers start from DefaultConfig()
// and override fields.
func New(sc scene.Scene, cfg Config) *Simulator {
	if cfg.Log == nil {
		cfg.Log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	var seed uint64
	if cfg.HasSeed {
		seed = uint64(cfg.Seed)
	} else {
		seed = uint64(os.Getpid())<<32 ^ 0x2545F4914F6CDD1D
	}

	s := &Simulator{
		cfg: cfg, rng: rng.New(seed), log: cfg.Log,
		nextShopperID: 1, nextCashierID: 1,
	}

	res, infl := cfg.GridResolution, cfg.GridInflation
	s.Grid = world.NewNavGrid(sc.WorldWidth, sc.WorldDepth, res, infl)
	s.Grid.Build(sc.Objects, sc.ROIs)
	s.Planner = world.NewAStar(s.Grid, cfg.ShopperConfig.AgentRadius)
	s.Gates = world.NewGateManager(s.Grid.Bounds)
	s.entrancePos = s.Grid.EntrancePos

	s.Queue = queue.NewManager(s.Grid.Cashiers, cfg.QueueConfig, s.rng)
	s.Anti = antiglitch.NewDetector(cfg.AntiGlitch)
	if cfg.EnableConfusion {
		s.Confuse = confusion.NewConfuser(cfg.Confusion, s.rng)
	}

	n := len(s.Grid.Cashiers)
	if cfg.EnableLaneControl {
		s.Lanes = queue.NewLaneStateController(n)
	}
	s.laneStates = make([]*queue.LaneState, n)
	for i := range s.laneStates {
		ls := &queue.LaneState{DisplayIndex: i + 1}
		if s.Lanes != nil {
			ls.LaneID = s.Lanes.UUID(i)
		}
		s.laneStates[i] = ls
	}

	if cfg.SpawnCashiers {
		for i, site := range s.Grid.Cashiers {
			c := agent.NewCashier(s.nextCashierID, i, site, cfg.CashierConfig, s.rng)
			s.nextCashierID++
			c.Command(agent.CommandOpen)
			s.cashiers = append(s.cashiers, c)
		}
	}

	s.Queue.SetLaneOpenLookup(func(idx int) (bool, bool) {
		if idx < 0 || idx >= len(s.laneStates) {
			return false, false
		}
		return s.laneStates[idx].IsOpen, true
	})
	if s.Lanes != nil {
		s.Queue.SetQueueEntryHook(s.Lanes.RecordQueueEntry)
	}

	return s
}

// SpawnAgent admits a new shopper, returning its id, or ok=false if
// max_occupancy has been reached (spec.md §4.10, §7).
func (s *Simulator) SpawnAgent() (id int64, ok bool) {
	if s.liveShopperCount() >= s.cfg.MaxOccupancy {
		return 0, false
	}
	id = s.nextShopperID
	s.nextShopperID++
	sh := agent.NewShopper(id, s.cfg.ShopperConfig, s.cfg.Personas, s.rng, s.entrancePos)
	sh.SetWorldBounds(s.Grid.WorldW, s.Grid.WorldD)
	s.shoppers = append(s.shoppers, sh)
	s.totalSpawned++
	return id, true
}

func (s *Simulator) liveShopperCount() int {
	n := 0
	for _, sh := range s.shoppers {
		if !sh.IsDone() {
			n++
		}
	}
	return n
}

// SetLaneState dispatches a manual open/closed command (spec.md §4.8,
// §6).
func (s *Simulator) SetLaneState(ref string, open bool) queue.CommandResult {
	if s.Lanes == nil {
		return queue.CommandResult{OK: false, Error: "lane control disabled"}
	}
	desired := queue.DesiredClosed
	if open {
		desired = queue.DesiredOpen
	}
	res, idx := s.Lanes.SetLaneState(ref, desired)
	if res.OK && idx >= 0 && idx < len(s.cashiers) {
		cmd := agent.CommandClose
		if open {
			cmd = agent.CommandOpen
		}
		s.cashiers[idx].Command(cmd)
	}
	return res
}

// Update advances the simulator by one tick of dt seconds, in the fixed
// order of spec.md §4.10.
func (s *Simulator) Update(dt float64) {
	s.tick++
	s.now += dt

	s.Queue.Tick()

	neighbors := s.buildNeighbors()
	ctx := &agent.Context{
		Grid: s.Grid, Planner: s.Planner, Gates: s.Gates, Queue: s.Queue,
		Anti: s.Anti, RNG: s.rng, Log: s.log,
		Now: s.now, DT: dt, WorldW: s.Grid.WorldW, WorldD: s.Grid.WorldD,
		Neighbors: neighbors, NeighborIndex: agent.NewNeighborIndex(neighbors),
		ViolationLog: func(agentID int64, gate string, now float64) {
			s.recordViolation(agentID, gate, now)
		},
	}
	in := agent.FSMInputs{EntrancePos: s.entrancePos}

	for _, sh := range s.shoppers {
		if sh.IsDone() {
			continue
		}
		if sh.Tick(ctx, in) {
			s.totalExited++
			s.Anti.Forget(sh.ID)
		}
	}

	for i, c := range s.cashiers {
		c.Tick(ctx)
		ls := s.laneStates[i]
		s.cfg.Hysteresis.Update(ls, c.State == agent.Working, c.TimeInServiceArea(), c.TimeOutsideServiceArea(), s.now)
		if s.Lanes != nil {
			s.Lanes.Observe(i, ls.IsOpen)
		}
	}

	if s.cfg.EnableConfusion && s.Confuse != nil {
		s.Confuse.Tick(s.buildProximities(), s.now, dt)
	}

	if s.rng.Bool(0.01) {
		s.housekeeping()
	}

	if s.cfg.EnableHeatmap {
		s.accumulateHeatmap(dt)
	}
}

func (s *Simulator) buildNeighbors() []agent.Neighbor {
	out := make([]agent.Neighbor, 0, len(s.shoppers)+len(s.cashiers))
	for _, sh := range s.shoppers {
		if sh.IsDone() {
			continue
		}
		out = append(out, agent.Neighbor{ID: sh.ID, Pos: sh.Pos, Radius: sh.Radius})
	}
	for _, c := range s.cashiers {
		out = append(out, agent.Neighbor{ID: -c.ID, Pos: c.Pos, Radius: 0.3})
	}
	return out
}

func (s *Simulator) buildProximities() []confusion.Proximity {
	var out []confusion.Proximity
	for _, sh := range s.shoppers {
		if sh.IsDone() {
			continue
		}
		for _, c := range s.cashiers {
			out = append(out, confusion.Proximity{
				ShopperID: sh.ID, CashierID: c.ID, Dist: sh.Pos.Dist(c.Pos),
			})
		}
	}
	return out
}

func (s *Simulator) recordViolation(agentID int64, gate string, now float64) {
	s.violations = append(s.violations, violationRecord{AgentID: agentID, Gate: gate, At: now})
	if len(s.violations) > maxViolationRecords {
		s.violations = s.violations[len(s.violations)-maxViolationRecords:]
	}
}

// housekeeping trims anti-glitch history to live agents and drops
// violation records older than 60s, per spec.md §4.10 step 5 / §7.
func (s *Simulator) housekeeping() {
	active := make(map[int64]bool, len(s.shoppers))
	for _, sh := range s.shoppers {
		if !sh.IsDone() {
			active[sh.ID] = true
		}
	}
	s.Anti.Trim(active)

	cut := 0
	for cut < len(s.violations) && s.now-s.violations[cut].At > 60 {
		cut++
	}
	if cut > 0 {
		s.violations = s.violations[cut:]
	}
}

func (s *Simulator) accumulateHeatmap(dt float64) {
	if s.heatmap == nil {
		s.heatmapGW, s.heatmapGD = s.Grid.GW, s.Grid.GD
		s.heatmap = make([]float64, s.heatmapGW*s.heatmapGD)
	}
	for _, sh := range s.shoppers {
		if sh.IsDone() {
			continue
		}
		gx, gz := s.Grid.WorldToGrid(sh.Pos)
		if gx < 0 || gz < 0 || gx >= s.heatmapGW || gz >= s.heatmapGD {
			continue
		}
		s.heatmap[gz*s.heatmapGW+gx] += dt
	}
}
