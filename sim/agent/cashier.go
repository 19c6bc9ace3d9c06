package agent

import (
	"math"

	"github.com/retailsim/simcore/sim/rng"
	"github.com/retailsim/simcore/sim/world"
)

// CashierState is the cashier shift FSM state (spec.md §3, §4.7).
type CashierState int

const (
	OffShift CashierState = iota
	Arrive
	Working
	Break
	Return
	Leave
	CashierDone
)

// String renders the state name used in track metadata.
func (c CashierState) String() string {
	switch c {
	case OffShift:
		return "offshift"
	case Arrive:
		return "arrive"
	case Working:
		return "working"
	case Break:
		return "break"
	case Return:
		return "return"
	case Leave:
		return "leave"
	case CashierDone:
		return "done"
	default:
		return "unknown"
	}
}

// ManualCommand is an operator-issued open/close request (spec.md §4.7).
type ManualCommand int

const (
	CommandNone ManualCommand = iota
	CommandOpen
	CommandClose
)

// CashierConfig tunes cashier shift/break/micro-motion behavior (spec.md
// §6).
type CashierConfig struct {
	ShiftMin, ShiftMax                 float64 // seconds
	BreakCheckInterval                 float64
	BreakPerHourProbability            float64
	BreakMin, BreakMax                 float64
	JitterSigma                        float64
	ServiceAreaHalfWidth               float64
	ServiceAreaHalfDepth               float64
	MicroShiftRadius                   float64
	MicroShiftIntervalMin, MicroShiftIntervalMax float64
	MicroShiftDurationMin, MicroShiftDurationMax float64
	WalkSpeedMin, WalkSpeedMax         float64
	MicroShiftSpeed                    float64
}

// DefaultCashierConfig returns spec.md §6's cashier defaults.
func DefaultCashierConfig() CashierConfig {
	return CashierConfig{
		ShiftMin: 30 * 60, ShiftMax: 180 * 60,
		BreakCheckInterval: 60, BreakPerHourProbability: 0.15,
		BreakMin: 2 * 60, BreakMax: 10 * 60,
		JitterSigma: 0.04, ServiceAreaHalfWidth: 0.75, ServiceAreaHalfDepth: 0.75,
		MicroShiftRadius: 0.2, MicroShiftIntervalMin: 30, MicroShiftIntervalMax: 180,
		MicroShiftDurationMin: 2, MicroShiftDurationMax: 6,
		WalkSpeedMin: 0.7, WalkSpeedMax: 1.3, MicroShiftSpeed: 0.1,
	}
}

// Cashier is one simulated checkout worker (spec.md §3, §4.7).
type Cashier struct {
	ID      int64
	LaneIdx int

	Anchor     world.Vector2
	StaffExit  world.Vector2

	Pos, Vel world.Vector2
	State    CashierState

	shiftDuration   float64
	shiftElapsed    float64
	breakTimer      float64
	breakDuration   float64
	breakElapsedSec float64

	timeInServiceArea    float64
	timeOutsideArea      float64

	microShiftTarget   world.Vector2
	microShiftTimer    float64
	microShiftInterval float64
	microShiftActive   bool

	walkTo world.Vector2
	walkSpeed        float64

	pendingClose bool

	cfg CashierConfig
}

// NewCashier constructs an off-shift cashier bound to lane laneIdx, sampling
// its shift duration once from r (spec.md §3).
func NewCashier(id int64, laneIdx int, site world.CashierSite, cfg CashierConfig, r *rng.Source) *Cashier {
	anchor := site.Pos.Add(world.Vec2(0, 0.5))
	return &Cashier{
		ID: id, LaneIdx: laneIdx,
		Anchor: anchor, StaffExit: site.Pos.Add(world.Vec2(0, -3.0)),
		Pos: site.Pos.Add(world.Vec2(0, -3.0)), State: OffShift,
		shiftDuration:      r.Range(cfg.ShiftMin, cfg.ShiftMax),
		microShiftInterval: r.Range(cfg.MicroShiftIntervalMin, cfg.MicroShiftIntervalMax),
		cfg:                cfg,
	}
}

// serviceAreaContains reports whether p lies inside the cashier's
// service_area rectangle.
func (c *Cashier) serviceAreaContains(p world.Vector2) bool {
	return math.Abs(p.X()-c.Anchor.X()) <= c.cfg.ServiceAreaHalfWidth &&
		math.Abs(p.Z()-c.Anchor.Z()) <= c.cfg.ServiceAreaHalfDepth
}

func (c *Cashier) clampToServiceArea(p world.Vector2) world.Vector2 {
	x := math.Min(math.Max(p.X(), c.Anchor.X()-c.cfg.ServiceAreaHalfWidth), c.Anchor.X()+c.cfg.ServiceAreaHalfWidth)
	z := math.Min(math.Max(p.Z(), c.Anchor.Z()-c.cfg.ServiceAreaHalfDepth), c.Anchor.Z()+c.cfg.ServiceAreaHalfDepth)
	return world.Vec2(x, z)
}

// Command handles a manual open/close request (spec.md §4.7). It returns
// false if the command is rejected in the cashier's current state.
func (c *Cashier) Command(cmd ManualCommand) bool {
	switch cmd {
	case CommandOpen:
		switch c.State {
		case OffShift, CashierDone:
			c.State = Arrive
			c.walkTo = c.Anchor
			return true
		case Leave, Break:
			c.State = Return
			c.walkTo = c.Anchor
			return true
		}
		return false
	case CommandClose:
		switch c.State {
		case Working:
			c.pendingClose = true
			return true
		case Arrive, Return:
			c.State = Leave
			c.walkTo = c.StaffExit
			return true
		}
		return false
	}
	return false
}

// IsOpenGroundTruth reports the hysteresis-free instantaneous ground
// truth: Working and inside the service area (spec.md §3's lane-state
// section). Simulator.Update feeds queue.Hysteresis.Update from the
// cashier's state and the service-area accumulators below, not from
// this method.
func (c *Cashier) IsOpenGroundTruth() bool {
	return c.State == Working && c.serviceAreaContains(c.Pos)
}

// TimeInServiceArea and TimeOutsideServiceArea expose the accumulators
// that drive the lane-open hysteresis (spec.md §3).
func (c *Cashier) TimeInServiceArea() float64    { return c.timeInServiceArea }
func (c *Cashier) TimeOutsideServiceArea() float64 { return c.timeOutsideArea }

// Tick advances the cashier FSM by one tick (spec.md §4.7).
func (c *Cashier) Tick(ctx *Context) {
	switch c.State {
	case OffShift, CashierDone:
		c.Vel = world.Vector2{}
	case Arrive:
		c.walkAlong(ctx, c.walkTo, c.cfg.WalkSpeedMin, c.cfg.WalkSpeedMax, func() {
			c.State = Working
			c.shiftElapsed = 0
			c.breakTimer = 0
		})
	case Return:
		c.walkAlong(ctx, c.walkTo, c.cfg.WalkSpeedMin, c.cfg.WalkSpeedMax, func() {
			c.State = Working
		})
	case Working:
		c.tickWorking(ctx)
	case Break:
		c.tickBreak(ctx)
	case Leave:
		c.walkAlong(ctx, c.walkTo, c.cfg.WalkSpeedMin, c.cfg.WalkSpeedMax, func() {
			c.State = CashierDone
			c.pendingClose = false
		})
	}

	if c.serviceAreaContains(c.Pos) && c.State == Working {
		c.timeInServiceArea += ctx.DT
		c.timeOutsideArea = 0
	} else {
		c.timeOutsideArea += ctx.DT
		c.timeInServiceArea = 0
	}
}

func (c *Cashier) tickWorking(ctx *Context) {
	c.shiftElapsed += ctx.DT
	c.breakTimer += ctx.DT

	if c.microShiftActive {
		c.Pos = c.steadyWalk(ctx, c.Pos, c.microShiftTarget, c.cfg.MicroShiftSpeed)
		c.microShiftTimer -= ctx.DT
		if c.microShiftTimer <= 0 || c.Pos.Dist(c.microShiftTarget) < 0.02 {
			c.microShiftActive = false
		}
	} else {
		c.microShiftInterval -= ctx.DT
		if c.microShiftInterval <= 0 {
			angle := ctx.RNG.Range(0, 2*math.Pi)
			radius := ctx.RNG.Range(0, c.cfg.MicroShiftRadius)
			c.microShiftTarget = c.Anchor.Add(world.Vec2(radius*math.Cos(angle), radius*math.Sin(angle)))
			c.microShiftActive = true
			c.microShiftTimer = ctx.RNG.Range(c.cfg.MicroShiftDurationMin, c.cfg.MicroShiftDurationMax)
			c.microShiftInterval = ctx.RNG.Range(c.cfg.MicroShiftIntervalMin, c.cfg.MicroShiftIntervalMax)
		} else {
			jx := ctx.RNG.NormFloat64() * c.cfg.JitterSigma
			jz := ctx.RNG.NormFloat64() * c.cfg.JitterSigma
			c.Pos = c.Pos.Add(world.Vec2(jx, jz))
		}
	}
	c.Pos = c.clampToServiceArea(c.Pos)
	c.Vel = world.Vector2{}

	if c.pendingClose || c.shiftElapsed >= c.shiftDuration {
		if c.laneBusy(ctx) {
			return
		}
		c.State = Leave
		c.walkTo = c.StaffExit
		c.pendingClose = false
		return
	}

	if c.breakTimer >= c.cfg.BreakCheckInterval {
		c.breakTimer = 0
		hourlyProb := c.cfg.BreakPerHourProbability
		perCheckProb := 1 - math.Pow(1-hourlyProb, c.cfg.BreakCheckInterval/3600.0)
		if ctx.RNG.Bool(perCheckProb) && !c.laneBusy(ctx) {
			c.State = Break
			c.breakDuration = ctx.RNG.Range(c.cfg.BreakMin, c.cfg.BreakMax)
			c.breakElapsedSec = 0
		}
	}
}

func (c *Cashier) laneBusy(ctx *Context) bool {
	return ctx.Queue.Lanes()[c.LaneIdx].ServiceSlot() != 0
}

func (c *Cashier) tickBreak(ctx *Context) {
	c.Vel = world.Vector2{}
	c.breakElapsedSec += ctx.DT
	if c.breakElapsedSec >= c.breakDuration {
		c.State = Return
		c.walkTo = c.Anchor
	}
}

// walkAlong steers the cashier in a straight line toward to at a random
// speed drawn from [min,max) on the first tick of each walk leg and kept
// until arrival, invoking onArrive once the target is reached.
func (c *Cashier) walkAlong(ctx *Context, to world.Vector2, min, max float64, onArrive func()) {
	if c.walkSpeed == 0 {
		c.walkSpeed = ctx.RNG.Range(min, max)
	}
	c.Pos = c.steadyWalk(ctx, c.Pos, to, c.walkSpeed)
	if c.Pos.Dist(to) < 0.05 {
		c.walkSpeed = 0
		onArrive()
	}
}

func (c *Cashier) steadyWalk(ctx *Context, from, to world.Vector2, speed float64) world.Vector2 {
	dir := to.Sub(from)
	d := dir.Len()
	step := speed * ctx.DT
	if d <= step || d < 1e-9 {
		c.Vel = world.Vector2{}
		return to
	}
	dir = dir.Normalize()
	c.Vel = dir.Mul(speed)
	return from.Add(dir.Mul(step))
}
