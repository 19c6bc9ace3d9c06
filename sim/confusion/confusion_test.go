package confusion

import (
	"testing"

	"github.com/retailsim/simcore/sim/rng"
)

func TestTickCreatesEventsOnlyWithinProximity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProbabilityPerSecond = 1.0 // force a roll every tick for a deterministic test
	c := NewConfuser(cfg, rng.New(1))

	far := []Proximity{{ShopperID: 1, CashierID: 100, Dist: 5.0}}
	c.Tick(far, 1.0, 1.0)
	if len(c.events) != 0 {
		t.Fatalf("expected no event for a far pair, got %d", len(c.events))
	}

	near := []Proximity{{ShopperID: 1, CashierID: 100, Dist: 0.1}}
	c.Tick(near, 2.0, 1.0)
	if len(c.events) != 1 {
		t.Fatalf("expected one event for a close pair, got %d", len(c.events))
	}
}

func TestEmitIDIsSelfInverseDuringSwap(t *testing.T) {
	cfg := DefaultConfig()
	c := NewConfuser(cfg, rng.New(1))
	c.events[pairKey(1, 100)] = &event{kind: swapEvent, a: 1, b: 100, expiresAt: 1000}

	swapped := c.EmitID(1, ShopperKind)
	if swapped != 100 {
		t.Fatalf("expected shopper 1's id to swap to 100, got %d", swapped)
	}
	if back := c.EmitID(swapped, CashierKind); back != 1 {
		t.Errorf("expected EmitID to be its own inverse, got %d", back)
	}
}

func TestEmitIDUnaffectedOutsideSwap(t *testing.T) {
	c := NewConfuser(DefaultConfig(), rng.New(1))
	if got := c.EmitID(42, ShopperKind); got != 42 {
		t.Errorf("expected an untouched id to pass through unchanged, got %d", got)
	}
}

func TestEmitIDDoesNotCollideAcrossKinds(t *testing.T) {
	c := NewConfuser(DefaultConfig(), rng.New(1))
	c.events[pairKey(3, 100)] = &event{kind: swapEvent, a: 3, b: 100, expiresAt: 1000}

	if got := c.EmitID(3, CashierKind); got != 3 {
		t.Errorf("expected cashier id 3 to be unaffected by a swap event keyed on shopper id 3, got %d", got)
	}
}

func TestDroppedDuringOcclusion(t *testing.T) {
	c := NewConfuser(DefaultConfig(), rng.New(1))
	c.events[pairKey(2, 200)] = &event{kind: occlusionEvent, a: 2, b: 200, expiresAt: 1000}

	if !c.Dropped(2, ShopperKind) {
		t.Error("expected shopper 2 to be dropped during an active occlusion event")
	}
	if !c.Dropped(200, CashierKind) {
		t.Error("expected cashier 200 to also be dropped during the same occlusion event")
	}
	if c.Dropped(3, ShopperKind) {
		t.Error("expected an unrelated id not to be dropped")
	}
}

func TestDroppedDoesNotCollideAcrossKinds(t *testing.T) {
	c := NewConfuser(DefaultConfig(), rng.New(1))
	c.events[pairKey(3, 100)] = &event{kind: occlusionEvent, a: 3, b: 100, expiresAt: 1000}

	if c.Dropped(3, CashierKind) {
		t.Error("expected cashier id 3 not to be dropped by an occlusion event keyed on shopper id 3")
	}
}

func TestEventsExpireOnTick(t *testing.T) {
	c := NewConfuser(DefaultConfig(), rng.New(1))
	key := pairKey(1, 100)
	c.events[key] = &event{kind: swapEvent, a: 1, b: 100, expiresAt: 5.0}

	c.Tick(nil, 10.0, 1.0)
	if _, ok := c.events[key]; ok {
		t.Error("expected the event to expire once now passes expiresAt")
	}
}

func TestTickNeverDuplicatesActiveEvent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProbabilityPerSecond = 1.0
	c := NewConfuser(cfg, rng.New(1))
	pairs := []Proximity{{ShopperID: 1, CashierID: 100, Dist: 0.1}}

	c.Tick(pairs, 1.0, 1.0)
	if len(c.events) != 1 {
		t.Fatalf("expected exactly one event after the first tick, got %d", len(c.events))
	}
	c.Tick(pairs, 1.5, 0.5)
	if len(c.events) != 1 {
		t.Errorf("expected the same active pair not to spawn a second event, got %d", len(c.events))
	}
}
