package agent

import (
	"log/slog"

	"github.com/retailsim/simcore/sim/antiglitch"
	"github.com/retailsim/simcore/sim/queue"
	"github.com/retailsim/simcore/sim/rng"
	"github.com/retailsim/simcore/sim/world"
)

// Neighbor is a read-only snapshot of one other live agent, used for
// local avoidance. The Simulator builds the neighbor list once per tick
// from its flat shopper/cashier slices; agents never mutate each other
// directly during a tick (spec.md §5: "neighbor lookups for avoidance are
// read-only scans... no concurrent mutation").
type Neighbor struct {
	ID     int64
	Pos    world.Vector2
	Radius float64
}

// Context bundles the mutable and read-only subsystem handles a Shopper
// or Cashier needs during its tick, per spec.md §9's redesign note:
// "a 'context' struct bundling the mutable borrows is idiomatic" in place
// of captured closures over shared state.
type Context struct {
	Grid    *world.NavGrid
	Planner *world.AStar
	Gates   *world.GateManager
	Queue   *queue.Manager
	Anti    *antiglitch.Detector
	RNG     *rng.Source
	Log     *slog.Logger

	Now, DT        float64
	WorldW, WorldD float64

	Neighbors []Neighbor
	// NeighborIndex buckets Neighbors spatially so avoidance() need not
	// scan every live agent every tick; nil falls back to a full scan.
	NeighborIndex *NeighborIndex

	// ViolationLog is an optional sink for gate-violation diagnostics
	// (spec.md §7's "bounded ring of recent violations").
	ViolationLog func(agentID int64, gate string, now float64)
}
