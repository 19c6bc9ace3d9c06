package agent

import (
	"math"

	"github.com/retailsim/simcore/sim/world"
)

// steerToward computes the desired velocity toward target at the given
// speed, adding a small per-agent sinusoidal wobble and neighbor
// avoidance, per spec.md §4.6's "Steering within followed path".
func (s *Shopper) steerToward(ctx *Context, target world.Vector2, speed float64) world.Vector2 {
	dir := target.Sub(s.Pos)
	if dir.Len() < 1e-9 {
		return world.Vector2{}
	}
	dir = dir.Normalize()
	base := dir.Mul(speed)

	wobbleAngle := s.wobblePhase + ctx.Now*2*math.Pi*s.wobbleFreq
	wobble := dir.Perp().Mul(0.08 * math.Sin(wobbleAngle))

	avoid := s.avoidance(ctx)
	return base.Add(wobble).Add(avoid)
}

// avoidance accumulates a low-passed repulsion vector from nearby live
// agents (spec.md §4.6).
func (s *Shopper) avoidance(ctx *Context) world.Vector2 {
	spaceMult := ctx.Anti.PersonalSpaceMultiplier(s.ID, ctx.Now)
	myRadius := s.Radius * spaceMult

	candidates := ctx.Neighbors
	if ctx.NeighborIndex != nil {
		candidates = ctx.NeighborIndex.Near(s.Pos)
	}

	var raw world.Vector2
	neighborCount := 0
	for _, n := range candidates {
		if n.ID == s.ID {
			continue
		}
		minDist := myRadius + n.Radius
		d := s.Pos.Dist(n.Pos)
		if d >= minDist || d < 1e-9 {
			continue
		}
		neighborCount++
		away := s.Pos.Sub(n.Pos).Normalize()
		overlap := (minDist - d) / minDist
		strength := 0.5 + 1.0*overlap
		raw = raw.Add(away.Mul(strength * overlap))
	}

	s.avoidSmoothed = s.avoidSmoothed.Mul(0.5).Add(raw.Mul(0.5))
	if neighborCount >= 3 {
		return s.avoidSmoothed.Mul(0.3)
	}
	return s.avoidSmoothed
}

// resolveStep performs §4.6's "Step resolution": propose a move, check
// the directional gate, then the body-radius walkability test with
// axis-slide fallback.
func (s *Shopper) resolveStep(ctx *Context) {
	proposed := s.Pos.Add(s.Vel.Mul(ctx.DT))

	if ok, gate := ctx.Gates.Check(s.Pos, proposed, s.State); !ok {
		s.Vel = world.Vector2{}
		s.requestReplan(ctx, gate)
		return
	}

	if accepted, final := s.bodyRadiusMove(ctx, proposed); accepted {
		s.applyMove(final)
		s.blockedFrames = 0
		return
	}

	s.blockedFrames++
	if s.blockedFrames >= s.cfg.BlockedFramesReplanThreshold {
		s.clearPath()
		s.blockedFrames = 0
	}
}

// bodyRadiusMove tests whether p is acceptable (strictly walkable at
// center and both axis offsets by agent radius); on failure it attempts
// an axis-only slide before giving up (spec.md §4.6).
func (s *Shopper) bodyRadiusMove(ctx *Context, p world.Vector2) (bool, world.Vector2) {
	if s.bodyRadiusOK(ctx, p) {
		return true, p
	}
	xOnly := world.Vec2(p.X(), s.Pos.Z())
	if xOnly != s.Pos && s.bodyRadiusOK(ctx, xOnly) {
		return true, xOnly
	}
	zOnly := world.Vec2(s.Pos.X(), p.Z())
	if zOnly != s.Pos && s.bodyRadiusOK(ctx, zOnly) {
		return true, zOnly
	}
	return false, s.Pos
}

func (s *Shopper) bodyRadiusOK(ctx *Context, p world.Vector2) bool {
	r := s.cfg.AgentRadius
	return ctx.Grid.IsWalkableWorld(p) &&
		ctx.Grid.IsWalkableWorld(p.Add(world.Vec2(r, 0))) &&
		ctx.Grid.IsWalkableWorld(p.Sub(world.Vec2(r, 0))) &&
		ctx.Grid.IsWalkableWorld(p.Add(world.Vec2(0, r))) &&
		ctx.Grid.IsWalkableWorld(p.Sub(world.Vec2(0, r)))
}

func (s *Shopper) applyMove(p world.Vector2) {
	delta := p.Sub(s.Pos)
	if delta.Len() > 1e-9 {
		s.Heading = delta.Angle()
	}
	s.Pos = clampToWorld(p, s.worldW, s.worldD)
}

// worldW/worldD are set by the Simulator once at construction via
// SetWorldBounds; kept on the shopper so applyMove can clamp without
// threading bounds through every call site.
func (s *Shopper) SetWorldBounds(w, d float64) { s.worldW, s.worldD = w, d }

func clampToWorld(p world.Vector2, w, d float64) world.Vector2 {
	x := math.Min(math.Max(p.X(), 0.5), w-0.5)
	z := math.Min(math.Max(p.Z(), 0.5), d-0.5)
	return world.Vec2(x, z)
}

// requestReplan marks the shopper for a fresh plan via the gate's bypass
// point and logs the violation (spec.md §4.3, §7).
func (s *Shopper) requestReplan(ctx *Context, gate *world.Gate) {
	if ctx.ViolationLog != nil {
		ctx.ViolationLog(s.ID, gate.Name, ctx.Now)
	}
	if ctx.Log != nil {
		ctx.Log.Debug("gate violation", "agent", s.ID, "gate", gate.Name, "state", s.State.String())
	}
	s.clearPath()
	s.setPath([]world.Vector2{gate.BypassPoint})
}
