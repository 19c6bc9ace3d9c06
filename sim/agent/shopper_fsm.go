package agent

import (
	"github.com/retailsim/simcore/sim/world"
)

// FSMInputs carries the scene-derived EntrancePos, supplied by the
// Simulator rather than persona config; Tick takes it as an explicit
// parameter alongside Context to avoid a cyclic dependency on the
// scene-owning package. ExitCorridorZ is read from the shopper's Config.
type FSMInputs struct {
	EntrancePos world.Vector2
}

// Tick advances the shopper's FSM by one tick (spec.md §4.6). It returns
// true the single tick the shopper transitions into Done, so the
// Simulator can increment total_exited exactly once per shopper.
func (s *Shopper) Tick(ctx *Context, in FSMInputs) (becameDone bool) {
	if !s.Spawned {
		s.spawnDelay -= ctx.DT
		s.Pos = in.EntrancePos
		if s.spawnDelay <= 0 {
			s.Spawned = true
			s.transitionTo(world.Entering)
		}
		return false
	}

	wasDone := s.State == world.Done
	switch s.State {
	case world.Entering:
		s.tickEntering(ctx, in)
	case world.Browsing:
		s.tickBrowsing(ctx)
	case world.WalkingToQueue:
		s.tickWalkingToQueue(ctx)
	case world.InQueue:
		s.tickInQueue(ctx)
	case world.Service:
		s.tickService(ctx, in)
	case world.Exiting:
		s.tickExiting(ctx, in)
	case world.Done:
		s.Vel = world.Vector2{}
	}
	if !ctx.queuedOrServing(s.State) {
		s.runAntiGlitch(ctx, in)
	}
	return !wasDone && s.State == world.Done
}

// queuedOrServing reports whether state is one AntiGlitch should skip,
// per spec.md §4.5's "on a non-queued, non-service agent".
func (c *Context) queuedOrServing(s world.AgentState) bool {
	return s == world.InQueue || s == world.Service
}

func (s *Shopper) transitionTo(next world.AgentState) {
	s.State = next
	s.queuePhaseTimer = 0
	s.clearPath()
}

func (s *Shopper) tickEntering(ctx *Context, in FSMInputs) {
	if len(s.path) == 0 && s.pathIdx == 0 {
		bypassX := ctx.Grid.Bounds.BypassCorridorX
		waypoints := []world.Vector2{
			world.Vec2(bypassX, 3),
			world.Vec2(bypassX, ctx.Grid.Bounds.ShoppingMinZ),
		}
		path := ctx.Planner.FindPath(s.Pos, waypoints[0])
		if path == nil {
			path = []world.Vector2{waypoints[0]}
		}
		path = append(path, waypoints[1])
		s.setPath(path)
	}
	s.followPath(ctx, s.BaseSpeed)
	if s.advanceWaypoint() && !s.hasPath() {
		s.State = world.Browsing
		s.clearPath()
		s.browseTargets = nil
		s.browsingTime = 0
	}
}

func (s *Shopper) tickBrowsing(ctx *Context) {
	s.browsingTime += ctx.DT
	if s.browseTargets == nil {
		s.sampleBrowseTargets(ctx)
	}
	if s.isDwelling {
		s.Vel = world.Vector2{}
		s.dwellTimer += ctx.DT
		if s.dwellTimer >= s.dwellDuration {
			s.isDwelling = false
			s.browseIdx++
			s.clearPath()
		}
	} else if s.browseIdx < len(s.browseTargets) {
		if !s.hasPath() {
			target := s.browseTargets[s.browseIdx]
			path := ctx.Planner.FindPath(s.Pos, target)
			if path == nil {
				s.browseIdx++
				return
			}
			s.setPath(path)
		}
		s.followPath(ctx, s.BaseSpeed)
		if s.advanceWaypoint() {
			s.isDwelling = true
			s.dwellTimer = 0
			s.dwellDuration = ctx.RNG.Range(s.cfg.BrowsingDwellMin, s.cfg.BrowsingDwellMax)
			s.Vel = world.Vector2{}
		}
	}
	if s.browsingTime > s.TargetStayTime {
		if s.WillCheckout && !ctx.Queue.NoLaneAvailable() {
			s.State = world.WalkingToQueue
			s.clearPath()
		} else {
			s.State = world.Exiting
			s.clearPath()
		}
	}
}

func (s *Shopper) sampleBrowseTargets(ctx *Context) {
	pool := append([]world.Vector2{}, ctx.Grid.Waypoints.Shopping...)
	pool = append(pool, ctx.Grid.Waypoints.Aisles...)
	ctx.RNG.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	n := s.NumStops
	if n > len(pool) {
		n = len(pool)
	}
	s.browseTargets = pool[:n]
	s.browseIdx = 0
}

func (s *Shopper) tickWalkingToQueue(ctx *Context) {
	s.queuePhaseTimer += ctx.DT
	if s.laneIndex < 0 {
		s.laneIndex = ctx.Queue.StartQueueDecision(s.ID)
		if s.laneIndex < 0 {
			s.State = world.Exiting
			s.clearPath()
			return
		}
	}
	target, ok := ctx.Queue.TargetPosition(s.ID)
	if !ok {
		s.State = world.Exiting
		s.clearPath()
		return
	}
	if !s.hasPath() {
		path := ctx.Planner.FindPath(s.Pos, target)
		if path == nil {
			path = []world.Vector2{target}
		}
		s.setPath(path)
	}
	s.followPath(ctx, s.BaseSpeed)
	s.advanceWaypoint()
	if s.Pos.Dist(target) < s.cfg.WaypointReachedRadius {
		s.State = world.InQueue
		s.clearPath()
		s.Vel = world.Vector2{}
		ctx.Queue.SetInQueue(s.ID, ctx.Now)
		return
	}
	if s.queuePhaseTimer > s.cfg.QueueWalkTimeout {
		ctx.Queue.RemoveAgent(s.ID)
		s.State = world.Exiting
		s.clearPath()
	}
}

func (s *Shopper) tickInQueue(ctx *Context) {
	s.queuePhaseTimer += ctx.DT
	target, ok := ctx.Queue.TargetPosition(s.ID)
	if !ok {
		s.State = world.Exiting
		s.clearPath()
		return
	}
	s.Vel = s.steerToward(ctx, target, 1.0)
	s.resolveStep(ctx)

	if ctx.Queue.IsAtFront(s.ID) {
		ctx.Queue.StartService(s.ID)
		s.State = world.Service
		s.Vel = world.Vector2{}
		return
	}
	if s.queuePhaseTimer > s.cfg.QueueWaitTimeout {
		ctx.Queue.RemoveAgent(s.ID)
		s.State = world.Exiting
		s.clearPath()
	}
}

func (s *Shopper) tickService(ctx *Context, in FSMInputs) {
	s.queuePhaseTimer += ctx.DT
	s.Vel = world.Vector2{}
	done := ctx.Queue.UpdateService(s.ID, ctx.DT)
	if done || s.queuePhaseTimer > s.cfg.ServiceTimeout {
		ctx.Queue.CompleteService(s.ID, in.EntrancePos)
		s.State = world.Exiting
		s.clearPath()
	}
}

func (s *Shopper) tickExiting(ctx *Context, in FSMInputs) {
	if len(s.path) == 0 && s.pathIdx == 0 {
		stage := world.Vec2(s.Pos.X(), s.cfg.ExitCorridorZ)
		path := ctx.Planner.FindPath(s.Pos, stage)
		if path == nil {
			path = []world.Vector2{stage}
		}
		path = append(path, in.EntrancePos)
		s.setPath(path)
	}
	s.followPath(ctx, s.BaseSpeed*s.cfg.ExitSpeedMultiplier)
	if s.advanceWaypoint() && !s.hasPath() {
		s.State = world.Done
		s.Vel = world.Vector2{}
	}
}

// followPath steers toward the current path waypoint at speed and
// resolves the proposed step (spec.md §4.6).
func (s *Shopper) followPath(ctx *Context, speed float64) {
	target, ok := s.currentTarget()
	if !ok {
		s.Vel = world.Vector2{}
		return
	}
	if speed > s.cfg.MaxSpeed*s.cfg.ExitSpeedMultiplier {
		speed = s.cfg.MaxSpeed * s.cfg.ExitSpeedMultiplier
	}
	s.Vel = s.steerToward(ctx, target, speed)
	s.resolveStep(ctx)
}

// runAntiGlitch evaluates the stuck/oscillation detector and applies any
// recovery action (spec.md §4.5).
func (s *Shopper) runAntiGlitch(ctx *Context, in FSMInputs) {
	preferred := world.Vector2{}
	switch {
	case s.State == world.Exiting:
		preferred = in.EntrancePos.Sub(s.Pos).Normalize()
	case ctx.Grid != nil:
		lineZ := ctx.Grid.Bounds.CashierLineZ
		if s.Pos.Z() >= lineZ {
			preferred = world.Vec2(0, 1)
		} else {
			preferred = world.Vec2(0, -1)
		}
	}
	action := ctx.Anti.Evaluate(antiglitchInput(s, ctx, preferred))
	s.applyRecovery(ctx, action)
}
