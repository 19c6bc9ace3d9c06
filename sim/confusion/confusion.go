// Package confusion implements the optional LiDAR-noise / ID-confusion
// layer: swaps and dropouts applied to the outgoing track stream when two
// agents pass close together (spec.md §4.9).
package confusion

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/retailsim/simcore/sim/rng"
)

// Config tunes the confusion layer (spec.md §4.9).
type Config struct {
	Proximity           float64
	ProbabilityPerSecond float64
	SwapMinSecs         float64
	SwapMaxSecs         float64
	OcclusionMinSecs    float64
	OcclusionMaxSecs    float64
}

// DefaultConfig returns spec.md §4.9's defaults.
func DefaultConfig() Config {
	return Config{
		Proximity: 0.6, ProbabilityPerSecond: 0.03,
		SwapMinSecs: 1, SwapMaxSecs: 3,
		OcclusionMinSecs: 0.5, OcclusionMaxSecs: 2,
	}
}

type eventKind int

const (
	swapEvent eventKind = iota
	occlusionEvent
)

type event struct {
	kind      eventKind
	a, b      int64 // a is always the shopper id, b the cashier id
	expiresAt float64
}

// Confuser is a table of active confusion events keyed by the unordered
// (shopperID, cashierID) pair, hashed with xxhash so the table can be a
// plain map without a custom struct-key type (spec.md §4.9: "a table of
// active events keyed by the unordered pair").
type Confuser struct {
	cfg    Config
	events map[uint64]*event
	rng    *rng.Source
}

// NewConfuser returns a Confuser using cfg.
func NewConfuser(cfg Config, r *rng.Source) *Confuser {
	return &Confuser{cfg: cfg, events: make(map[uint64]*event), rng: r}
}

func pairKey(a, b int64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(a))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(b))
	return xxhash.Sum64(buf[:])
}

// Proximity is one (shopper, cashier) pair observed this tick.
type Proximity struct {
	ShopperID, CashierID int64
	Dist                 float64
}

// Tick expires stale events and rolls for new ones among pairs closer
// than Config.Proximity (spec.md §4.9).
func (c *Confuser) Tick(pairs []Proximity, now, dt float64) {
	for k, e := range c.events {
		if now >= e.expiresAt {
			delete(c.events, k)
		}
	}
	p := 1 - math.Pow(1-c.cfg.ProbabilityPerSecond, dt)
	for _, pr := range pairs {
		if pr.Dist >= c.cfg.Proximity {
			continue
		}
		key := pairKey(pr.ShopperID, pr.CashierID)
		if _, active := c.events[key]; active {
			continue
		}
		if !c.rng.Bool(p) {
			continue
		}
		if c.rng.Bool(0.5) {
			c.events[key] = &event{kind: swapEvent, a: pr.ShopperID, b: pr.CashierID,
				expiresAt: now + c.rng.Range(c.cfg.SwapMinSecs, c.cfg.SwapMaxSecs)}
		} else {
			c.events[key] = &event{kind: occlusionEvent, a: pr.ShopperID, b: pr.CashierID,
				expiresAt: now + c.rng.Range(c.cfg.OcclusionMinSecs, c.cfg.OcclusionMaxSecs)}
		}
	}
}

// Kind tags whether a participant id belongs to the shopper or cashier id
// space. Shopper and cashier ids are independently monotonic counters
// (spec.md §4.10), so a bare id is ambiguous once both spaces are
// populated; EmitID/Dropped require the caller to say which space id
// refers to.
type Kind int

const (
	ShopperKind Kind = iota
	CashierKind
)

// EmitID returns the track id that should be emitted in place of id: the
// other member of an active swap pair, or id unchanged. EmitID is its
// own inverse while the event remains active — EmitID(EmitID(id)) == id —
// satisfying spec.md §8's round-trip property without a separate unswap
// call.
func (c *Confuser) EmitID(id int64, kind Kind) int64 {
	for _, e := range c.events {
		if e.kind != swapEvent {
			continue
		}
		if kind == ShopperKind && e.a == id {
			return e.b
		}
		if kind == CashierKind && e.b == id {
			return e.a
		}
	}
	return id
}

// Dropped reports whether id's track message should be omitted this tick
// due to an active occlusion event.
func (c *Confuser) Dropped(id int64, kind Kind) bool {
	for _, e := range c.events {
		if e.kind != occlusionEvent {
			continue
		}
		if kind == ShopperKind && e.a == id {
			return true
		}
		if kind == CashierKind && e.b == id {
			return true
		}
	}
	return false
}
