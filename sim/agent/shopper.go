package agent

import (
	"math"

	"github.com/retailsim/simcore/sim/rng"
	"github.com/retailsim/simcore/sim/world"
)

// Config tunes shopper kinematics and timeouts (spec.md §6).
type Config struct {
	BrowsingDwellMin, BrowsingDwellMax float64
	MaxSpeed, MinSpeed                 float64
	PersonalSpaceRadius                float64
	AgentRadius                        float64
	QueueWalkTimeout                   float64
	QueueWaitTimeout                   float64
	ServiceTimeout                     float64
	ExitSpeedMultiplier                float64
	ExitCorridorZ                      float64
	WaypointReachedRadius              float64
	BlockedFramesReplanThreshold       int
}

// DefaultConfig returns spec.md §6's default shopper tuning.
func DefaultConfig() Config {
	return Config{
		BrowsingDwellMin: 3, BrowsingDwellMax: 15,
		MaxSpeed: 1.5, MinSpeed: 0.3,
		PersonalSpaceRadius: 0.5, AgentRadius: 0.25,
		QueueWalkTimeout: 30, QueueWaitTimeout: 120, ServiceTimeout: 60,
		ExitSpeedMultiplier: 1.5, ExitCorridorZ: 3,
		WaypointReachedRadius: 0.5, BlockedFramesReplanThreshold: 10,
	}
}

// Shopper is one simulated customer (spec.md §3, §4.6).
type Shopper struct {
	ID             int64
	Persona        Persona
	BaseSpeed      float64
	NumStops       int
	TargetStayTime float64
	WillCheckout   bool

	Pos, Vel world.Vector2
	Heading  float64
	Speed    float64

	State world.AgentState

	path    []world.Vector2
	pathIdx int

	browseTargets []world.Vector2
	browseIdx     int
	browsingTime  float64

	isDwelling    bool
	dwellTimer    float64
	dwellDuration float64

	laneIndex int // -1 once queuing is done or never started

	Radius float64
	Color  Color
	BBox   BoundingBox

	spawnDelay float64
	Spawned    bool

	queuePhaseTimer float64
	blockedFrames   int
	wobblePhase     float64
	wobbleFreq      float64

	avoidSmoothed world.Vector2

	worldW, worldD float64

	cfg Config
}

// NewShopper spawns a shopper, sampling its persona and persona-derived
// attributes once from the single seeded RNG in a fixed order (spec.md
// §3, §9).
func NewShopper(id int64, cfg Config, personas PersonaSet, r *rng.Source, entrance world.Vector2) *Shopper {
	persona := samplePersona(personas, r)
	pc := personas[persona]
	numStops := pc.Stops[0]
	if pc.Stops[1] > pc.Stops[0] {
		numStops = pc.Stops[0] + r.IntN(pc.Stops[1]-pc.Stops[0]+1)
	}
	baseSpeed := r.Range(pc.Speed.Min, pc.Speed.Max)
	stay := r.Range(pc.Stay.Min, pc.Stay.Max)
	willCheckout := r.Bool(pc.CheckoutProbability)
	width := r.Range(0.4, 0.6)
	height := r.Range(1.6, 1.9)
	spawnDelay := r.Range(0, 2)
	wobbleFreq := r.Range(1.5, 2.5)
	wobblePhase := r.Range(0, 2*math.Pi)

	return &Shopper{
		ID: id, Persona: persona, BaseSpeed: baseSpeed, NumStops: numStops,
		TargetStayTime: stay, WillCheckout: willCheckout,
		Pos: entrance, State: world.Spawn,
		Radius: 0.5, Color: personaColor(persona),
		BBox:       BoundingBox{Width: width, Height: height, Depth: width},
		spawnDelay: spawnDelay, laneIndex: -1,
		wobbleFreq: wobbleFreq, wobblePhase: wobblePhase,
		cfg: cfg,
	}
}

// samplePersona draws a persona weighted by PersonaConfig.Probability,
// iterating Order (a fixed order) so the draw is reproducible (spec.md
// §9).
func samplePersona(personas PersonaSet, r *rng.Source) Persona {
	weights := make([]float64, len(Order))
	for i, p := range Order {
		weights[i] = personas[p].Probability
	}
	return Order[r.WeightedIndex(weights)]
}

// IsDone reports whether the shopper has reached the terminal state.
func (s *Shopper) IsDone() bool { return s.State == world.Done }

// hasPath reports whether the shopper is still following an assigned
// path.
func (s *Shopper) hasPath() bool { return s.pathIdx < len(s.path) }

// currentTarget returns the shopper's current path waypoint.
func (s *Shopper) currentTarget() (world.Vector2, bool) {
	if !s.hasPath() {
		return world.Vector2{}, false
	}
	return s.path[s.pathIdx], true
}

// advanceWaypoint reports "path complete" once the cursor passes the end,
// per spec.md §4.6's "Waypoint reached" rule.
func (s *Shopper) advanceWaypoint() (complete bool) {
	target, ok := s.currentTarget()
	if !ok {
		return true
	}
	if s.Pos.Dist(target) < s.cfg.WaypointReachedRadius {
		s.pathIdx++
	}
	return !s.hasPath()
}

func (s *Shopper) setPath(path []world.Vector2) {
	s.path = path
	s.pathIdx = 0
}

func (s *Shopper) clearPath() {
	s.path = nil
	s.pathIdx = 0
}
