package world

import "github.com/bits-and-blooms/bitset"

// Gate is a directional line segment that forbids crossings in certain
// directions unless the crossing agent is in an allowed state (spec.md
// §4.3). allowedStates is a bitset keyed by AgentState, per spec.md §9's
// note that lane/state exclusion sets map to small bitsets.
type Gate struct {
	Name          string
	A, B          Vector2
	AllowedDir    Vector2
	allowedStates *bitset.BitSet
	BypassPoint   Vector2
}

// NewGate constructs a gate with the given allowed states.
func NewGate(name string, a, b, allowedDir, bypass Vector2, allowed ...AgentState) *Gate {
	bs := bitset.New(uint(Done) + 1)
	for _, s := range allowed {
		bs.Set(uint(s))
	}
	return &Gate{Name: name, A: a, B: b, AllowedDir: allowedDir, allowedStates: bs, BypassPoint: bypass}
}

func (g *Gate) allows(s AgentState) bool { return g.allowedStates.Test(uint(s)) }

// GateManager holds the set of directional gates (principally the
// cashier line) and enforces crossing rules per shopper movement step.
type GateManager struct {
	Gates []*Gate
}

// NewGateManager returns a manager seeded with the default cashier-line
// gate described in spec.md §4.3.
func NewGateManager(bounds ZoneBounds) *GateManager {
	line := NewGate(
		"cashier_line",
		Vec2(bounds.CheckoutMinX, bounds.CashierLineZ),
		Vec2(bounds.CheckoutMaxX, bounds.CashierLineZ),
		Vec2(0, -1),
		Vec2(bounds.BypassCorridorX, bounds.CashierLineZ+10),
		Service, Exiting,
	)
	return &GateManager{Gates: []*Gate{line}}
}

// Check evaluates a proposed movement step from p to q by an agent in
// state s. It returns true if the step is allowed, or false plus the
// violated gate otherwise.
func (m *GateManager) Check(p, q Vector2, s AgentState) (bool, *Gate) {
	for _, g := range m.Gates {
		if !segmentsIntersect(p, q, g.A, g.B) {
			continue
		}
		dir := q.Sub(p)
		if dir.Dot(g.AllowedDir) > 0 && g.allows(s) {
			continue
		}
		return false, g
	}
	return true, nil
}

// segmentsIntersect reports whether segments p1p2 and p3p4 intersect.
func segmentsIntersect(p1, p2, p3, p4 Vector2) bool {
	d1 := cross(p4.Sub(p3), p1.Sub(p3))
	d2 := cross(p4.Sub(p3), p2.Sub(p3))
	d3 := cross(p2.Sub(p1), p3.Sub(p1))
	d4 := cross(p2.Sub(p1), p4.Sub(p1))
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

func cross(a, b Vector2) float64 { return a.X()*b.Z() - a.Z()*b.X() }
