package agent

import (
	"github.com/retailsim/simcore/sim/antiglitch"
	"github.com/retailsim/simcore/sim/world"
)

// antiglitchInput builds the detector's per-tick observation from the
// shopper's current kinematics.
func antiglitchInput(s *Shopper, ctx *Context, preferredDir world.Vector2) antiglitch.Input {
	return antiglitch.Input{
		AgentID: s.ID, Pos: s.Pos, Vel: s.Vel, State: s.State,
		DT: ctx.DT, Now: ctx.Now, Grid: ctx.Grid, RNG: ctx.RNG,
		PreferredDir: preferredDir,
	}
}

// applyRecovery performs the RecoveryAction the detector returned, per the
// graduated ladder of spec.md §4.5: Nudge/NudgeReplan offset the position
// directly, Warp teleports to a safe waypoint, ResetPath drops the current
// path so the next tick replans from scratch.
func (s *Shopper) applyRecovery(ctx *Context, action antiglitch.RecoveryAction) {
	switch action.Kind {
	case antiglitch.NoAction:
		return
	case antiglitch.Nudge, antiglitch.NudgeReplan:
		p := s.Pos.Add(world.Vec2(action.Dx, action.Dz))
		if s.bodyRadiusOK(ctx, p) {
			s.Pos = clampToWorld(p, s.worldW, s.worldD)
		}
		if action.Kind == antiglitch.NudgeReplan {
			s.clearPath()
		}
	case antiglitch.Warp:
		s.Pos = clampToWorld(world.Vec2(action.X, action.Z), s.worldW, s.worldD)
		s.clearPath()
	case antiglitch.ResetPath:
		s.clearPath()
		s.browseTargets = nil
		s.isDwelling = false
	}
}
