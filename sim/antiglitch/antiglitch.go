// Package antiglitch implements the stuck/oscillation detector and its
// graduated recovery ladder (spec.md §4.5). Recovery is expressed as a
// pure RecoveryAction value the caller applies, per spec.md §9's
// "object-oriented apply-recovery-in-place" redesign note.
package antiglitch

import (
	"math"

	"github.com/retailsim/simcore/sim/rng"
	"github.com/retailsim/simcore/sim/world"
)

// Config tunes the detector (spec.md §6).
type Config struct {
	StuckSpeed          float64
	StuckTime           float64
	OscillationWindow   int
	OscillationStdDev   float64
	OscillationMinSpan  float64
	MaxAttempts         float64
	RecoveryCooldown    float64
	NearCheckoutZ       float64
}

// DefaultConfig returns spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{
		StuckSpeed: 0.05, StuckTime: 2.0, OscillationWindow: 10,
		OscillationStdDev: 0.3, OscillationMinSpan: 3.0, MaxAttempts: 10,
		RecoveryCooldown: 0.5, NearCheckoutZ: 12.0,
	}
}

// ActionKind tags a RecoveryAction's variant.
type ActionKind int

const (
	NoAction ActionKind = iota
	Nudge
	NudgeReplan
	Warp
	ResetPath
)

// RecoveryAction is the pure result of evaluating one agent's stuck
// state; it carries only the data relevant to its Kind.
type RecoveryAction struct {
	Kind   ActionKind
	Dx, Dz float64 // Nudge, NudgeReplan
	X, Z   float64 // Warp
}

type sample struct {
	pos world.Vector2
	t   float64
}

type history struct {
	ring                []sample
	head                int
	count               int
	lowSpeedTime        float64
	stuckCounter        float64
	lastRecoveryAt      float64
	attempts            int
	personalSpaceMult   float64
	personalSpaceUntil  float64
}

func newHistory(window int) *history {
	return &history{ring: make([]sample, window), personalSpaceMult: 1.0, lastRecoveryAt: -1e9}
}

func (h *history) push(s sample, window int) {
	h.ring[h.head] = s
	h.head = (h.head + 1) % window
	if h.count < window {
		h.count++
	}
}

func (h *history) stddev() float64 {
	if h.count == 0 {
		return 0
	}
	var mx, mz float64
	for i := 0; i < h.count; i++ {
		mx += h.ring[i].pos.X()
		mz += h.ring[i].pos.Z()
	}
	mx /= float64(h.count)
	mz /= float64(h.count)
	var vx, vz float64
	for i := 0; i < h.count; i++ {
		dx := h.ring[i].pos.X() - mx
		dz := h.ring[i].pos.Z() - mz
		vx += dx * dx
		vz += dz * dz
	}
	vx /= float64(h.count)
	vz /= float64(h.count)
	return math.Sqrt(vx + vz)
}

func (h *history) span() float64 {
	if h.count < 2 {
		return 0
	}
	oldestIdx := h.head
	if h.count < len(h.ring) {
		oldestIdx = 0
	}
	newestIdx := (h.head - 1 + len(h.ring)) % len(h.ring)
	return h.ring[newestIdx].t - h.ring[oldestIdx].t
}

// Detector tracks every live agent's recent motion and escalates through
// the recovery ladder (spec.md §4.5).
type Detector struct {
	cfg   Config
	hist  map[int64]*history
}

// NewDetector returns a Detector using cfg.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg, hist: make(map[int64]*history)}
}

func (d *Detector) entry(agentID int64) *history {
	h, ok := d.hist[agentID]
	if !ok {
		h = newHistory(d.cfg.OscillationWindow)
		d.hist[agentID] = h
	}
	return h
}

// PersonalSpaceMultiplier returns the agent's current personal-space
// radius multiplier, shrunk temporarily by a NudgeReplan recovery.
func (d *Detector) PersonalSpaceMultiplier(agentID int64, now float64) float64 {
	h, ok := d.hist[agentID]
	if !ok {
		return 1.0
	}
	if now > h.personalSpaceUntil {
		h.personalSpaceMult = 1.0
	}
	return h.personalSpaceMult
}

// Input bundles one tick's observation of an agent for Evaluate.
type Input struct {
	AgentID      int64
	Pos          world.Vector2
	Vel          world.Vector2
	State        world.AgentState
	DT, Now      float64
	Grid         *world.NavGrid
	RNG          *rng.Source
	PreferredDir world.Vector2 // zero vector if the agent has no macro objective
}

// Evaluate updates agent bookkeeping and returns the recovery action, if
// any, the caller should apply this tick (spec.md §4.5).
func (d *Detector) Evaluate(in Input) RecoveryAction {
	h := d.entry(in.AgentID)
	h.push(sample{pos: in.Pos, t: in.Now}, d.cfg.OscillationWindow)

	speed := in.Vel.Len()
	if speed < d.cfg.StuckSpeed {
		h.lowSpeedTime += in.DT
	} else {
		h.lowSpeedTime -= 2 * in.DT
		if h.lowSpeedTime < 0 {
			h.lowSpeedTime = 0
		}
	}

	oscillating := h.stddev() < d.cfg.OscillationStdDev && h.span() >= d.cfg.OscillationMinSpan
	stuck := h.lowSpeedTime > d.cfg.StuckTime || oscillating
	if stuck {
		h.stuckCounter++
	} else {
		h.stuckCounter -= 0.5
		if h.stuckCounter < 0 {
			h.stuckCounter = 0
		}
	}

	nearCheckoutExiting := in.State == world.Exiting && in.Pos.Z() < d.cfg.NearCheckoutZ
	if nearCheckoutExiting && h.stuckCounter > 3 {
		h.stuckCounter = 3
	}

	if in.Now-h.lastRecoveryAt < d.cfg.RecoveryCooldown {
		return RecoveryAction{Kind: NoAction}
	}
	if h.stuckCounter <= 0 {
		return RecoveryAction{Kind: NoAction}
	}

	h.lastRecoveryAt = in.Now
	h.attempts++

	switch {
	case h.stuckCounter <= 3:
		return RecoveryAction{Kind: Nudge, Dx: in.RNG.Range(-0.5, 0.5), Dz: in.RNG.Range(-0.5, 0.5)}
	case h.stuckCounter <= 6:
		h.personalSpaceMult = 0.5
		h.personalSpaceUntil = in.Now + 2.0
		return RecoveryAction{Kind: NudgeReplan, Dx: in.RNG.Range(-0.5, 0.5), Dz: in.RNG.Range(-0.5, 0.5)}
	case h.stuckCounter <= d.cfg.MaxAttempts:
		if nearCheckoutExiting {
			return RecoveryAction{Kind: Nudge, Dx: in.RNG.Range(-0.5, 0.5), Dz: in.RNG.Range(-0.5, 0.5)}
		}
		if p, ok := d.warpTarget(in); ok {
			return RecoveryAction{Kind: Warp, X: p.X(), Z: p.Z()}
		}
		if p, ok := in.Grid.FindNearestWalkable(in.Pos, 15); ok {
			return RecoveryAction{Kind: Warp, X: p.X(), Z: p.Z()}
		}
		return RecoveryAction{Kind: NoAction}
	default:
		h.stuckCounter = 0
		h.lowSpeedTime = 0
		return RecoveryAction{Kind: ResetPath}
	}
}

// warpTarget selects a safe waypoint 3-15m away, preferring directions
// aligned with the agent's macro objective (spec.md §4.5).
func (d *Detector) warpTarget(in Input) (world.Vector2, bool) {
	candidates := in.Grid.Waypoints.All()
	best := world.Vector2{}
	bestScore := -1e18
	found := false
	hasPreferred := in.PreferredDir.Len() > 1e-9
	for _, c := range candidates {
		dist := c.Dist(in.Pos)
		if dist < 3 || dist > 15 {
			continue
		}
		score := -dist // closer within range is fine, but alignment dominates
		if hasPreferred {
			dir := c.Sub(in.Pos).Normalize()
			score += 10 * dir.Dot(in.PreferredDir)
		}
		if score > bestScore {
			bestScore = score
			best = c
			found = true
		}
	}
	return best, found
}

// Trim drops history for agents no longer in active, bounding memory
// growth (spec.md §4.10 step 5's periodic housekeeping).
func (d *Detector) Trim(active map[int64]bool) {
	for id := range d.hist {
		if !active[id] {
			delete(d.hist, id)
		}
	}
}

// Forget removes a single agent's history immediately (used when an
// agent reaches DONE).
func (d *Detector) Forget(agentID int64) { delete(d.hist, agentID) }
