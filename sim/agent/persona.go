// Package agent implements the Shopper and Cashier FSMs: persona-driven
// kinematics, path following, local avoidance, and checkout interaction
// (spec.md §4.6, §4.7). Grounded on other_examples' Lallassu-snejk
// Pedestrian/PedestrianSystem (per-agent stuck timer, spatial avoidance
// buckets, persona-driven palette), reworked into spec.md's exhaustive
// FSMs.
package agent

// Persona is the one-time persona draw at spawn (spec.md §3, §6).
type Persona int

const (
	FastBuyer Persona = iota
	Browser
	Family
	Staff
)

// String renders the persona name used in track metadata.
func (p Persona) String() string {
	switch p {
	case FastBuyer:
		return "fast_buyer"
	case Browser:
		return "browser"
	case Family:
		return "family"
	case Staff:
		return "staff"
	default:
		return "unknown"
	}
}

// Range is a half-open [Min,Max) sampling range (rng.Source.Range).
type Range struct{ Min, Max float64 }

// PersonaConfig is one persona's spawn-time sampling distribution
// (spec.md §6).
type PersonaConfig struct {
	Probability        float64
	Stops              [2]int
	Speed              Range
	Stay               Range
	CheckoutProbability float64
}

// PersonaSet maps every persona to its config. Personas are iterated in
// a fixed order (FastBuyer, Browser, Family, Staff) wherever randomness
// is consumed, per spec.md §9's determinism requirement.
type PersonaSet map[Persona]PersonaConfig

// Order is the fixed iteration order used for deterministic persona
// sampling.
var Order = [4]Persona{FastBuyer, Browser, Family, Staff}

// DefaultPersonas returns spec.md §6's default persona configuration.
func DefaultPersonas() PersonaSet {
	return PersonaSet{
		FastBuyer: {Probability: 0.3, Stops: [2]int{1, 3}, Speed: Range{1.0, 1.3}, Stay: Range{2, 5}, CheckoutProbability: 0.9},
		Browser:   {Probability: 0.4, Stops: [2]int{4, 8}, Speed: Range{0.7, 1.0}, Stay: Range{5, 15}, CheckoutProbability: 0.85},
		Family:    {Probability: 0.2, Stops: [2]int{3, 6}, Speed: Range{0.5, 0.8}, Stay: Range{8, 20}, CheckoutProbability: 0.95},
		Staff:     {Probability: 0.1, Stops: [2]int{0, 2}, Speed: Range{1.0, 1.2}, Stay: Range{30, 60}, CheckoutProbability: 0.0},
	}
}

// Color is the shopper's persona-tagged appearance color.
type Color struct{ R, G, B uint8 }

// personaColor returns a representative color tag per persona, used in
// track message metadata.
func personaColor(p Persona) Color {
	switch p {
	case FastBuyer:
		return Color{R: 230, G: 80, B: 60}
	case Browser:
		return Color{R: 60, G: 140, B: 220}
	case Family:
		return Color{R: 60, G: 200, B: 120}
	case Staff:
		return Color{R: 220, G: 200, B: 60}
	default:
		return Color{R: 200, G: 200, B: 200}
	}
}

// BoundingBox is a shopper or cashier's footprint, in meters.
type BoundingBox struct{ Width, Height, Depth float64 }
