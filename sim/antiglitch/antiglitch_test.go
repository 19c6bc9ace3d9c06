package antiglitch

import (
	"testing"

	"github.com/retailsim/simcore/sim/rng"
	"github.com/retailsim/simcore/sim/world"
)

func testGrid() *world.NavGrid {
	g := world.NewNavGrid(20, 20, 0.5, 0.0)
	g.Build(nil, nil)
	return g
}

func stuckInput(id int64, now float64, r *rng.Source, grid *world.NavGrid) Input {
	return Input{
		AgentID: id, Pos: world.Vec2(5, 5), Vel: world.Vector2{},
		State: world.Browsing, DT: 0.5, Now: now, Grid: grid, RNG: r,
	}
}

func TestEvaluateNoActionWhenMoving(t *testing.T) {
	d := NewDetector(DefaultConfig())
	r := rng.New(1)
	grid := testGrid()

	in := Input{
		AgentID: 1, Pos: world.Vec2(5, 5), Vel: world.Vec2(1, 0),
		State: world.Browsing, DT: 0.5, Now: 1.0, Grid: grid, RNG: r,
	}
	if got := d.Evaluate(in); got.Kind != NoAction {
		t.Errorf("expected NoAction for a moving agent, got %v", got.Kind)
	}
}

func TestEvaluateEscalatesFromNudgeToReplan(t *testing.T) {
	d := NewDetector(DefaultConfig())
	r := rng.New(1)
	grid := testGrid()

	now := 0.0
	var lastKind ActionKind
	sawNudge, sawReplanAfterNudge := false, false
	// Drive the agent stationary for enough ticks to accumulate stuckTime
	// past StuckTime (2.0s) and walk the ladder up through several rungs.
	// Each tick advances past RecoveryCooldown (0.5s) so every call can
	// produce a fresh action once stuck.
	for i := 0; i < 40; i++ {
		now += 0.6
		action := d.Evaluate(stuckInput(1, now, r, grid))
		if action.Kind != NoAction {
			lastKind = action.Kind
		}
		if action.Kind == Nudge {
			sawNudge = true
		}
		if action.Kind == NudgeReplan && sawNudge {
			sawReplanAfterNudge = true
		}
	}
	if lastKind == NoAction {
		t.Fatal("expected the ladder to escalate past NoAction over 40 stuck ticks")
	}
	if !sawReplanAfterNudge {
		t.Error("expected a Nudge to be followed by a NudgeReplan as the ladder escalates")
	}
}

func TestEvaluateRecoveryCooldownSuppressesImmediateRepeat(t *testing.T) {
	d := NewDetector(DefaultConfig())
	r := rng.New(1)
	grid := testGrid()

	// First call establishes stuckCounter > 0 after enough low-speed time;
	// seed the history directly by calling Evaluate repeatedly within the
	// cooldown window and confirming no two actions fire back to back
	// faster than RecoveryCooldown apart.
	now := 0.0
	for i := 0; i < 5; i++ {
		now += 2.5 // exceed StuckTime in one step
		d.Evaluate(stuckInput(1, now, r, grid))
	}
	first := d.Evaluate(stuckInput(1, now+0.1, r, grid))
	second := d.Evaluate(stuckInput(1, now+0.1+0.01, r, grid))
	if first.Kind != NoAction && second.Kind != NoAction {
		t.Error("expected the cooldown to suppress a repeat action within RecoveryCooldown seconds")
	}
}

func TestNearCheckoutExitingCapsStuckCounter(t *testing.T) {
	d := NewDetector(DefaultConfig())
	r := rng.New(1)
	grid := testGrid()

	now := 0.0
	for i := 0; i < 30; i++ {
		now += 0.6
		in := Input{
			AgentID: 2, Pos: world.Vec2(5, 5), Vel: world.Vector2{},
			State: world.Exiting, DT: 0.6, Now: now, Grid: grid, RNG: r,
		}
		action := d.Evaluate(in)
		if action.Kind == Warp || action.Kind == ResetPath {
			t.Errorf("near-checkout exiting should never escalate past Nudge, got %v", action.Kind)
		}
	}
}

func TestForgetAndTrimRemoveHistory(t *testing.T) {
	d := NewDetector(DefaultConfig())
	r := rng.New(1)
	grid := testGrid()

	d.Evaluate(stuckInput(1, 1.0, r, grid))
	d.Evaluate(stuckInput(2, 1.0, r, grid))

	d.Forget(1)
	if _, ok := d.hist[1]; ok {
		t.Error("expected Forget to remove agent 1's history")
	}

	d.Trim(map[int64]bool{2: true})
	if _, ok := d.hist[2]; !ok {
		t.Error("expected Trim to keep active agent 2's history")
	}
}

func TestPersonalSpaceMultiplierResetsAfterWindow(t *testing.T) {
	d := NewDetector(DefaultConfig())
	r := rng.New(1)
	grid := testGrid()

	now := 0.0
	var sawReplan bool
	for i := 0; i < 40 && !sawReplan; i++ {
		now += 0.6
		action := d.Evaluate(stuckInput(5, now, r, grid))
		if action.Kind == NudgeReplan {
			sawReplan = true
		}
	}
	if !sawReplan {
		t.Skip("ladder did not reach NudgeReplan within the test's tick budget")
	}
	if mult := d.PersonalSpaceMultiplier(5, now); mult != 0.5 {
		t.Errorf("expected a shrunk personal-space multiplier right after NudgeReplan, got %v", mult)
	}
	if mult := d.PersonalSpaceMultiplier(5, now+10); mult != 1.0 {
		t.Errorf("expected the multiplier to reset once past its window, got %v", mult)
	}
}
