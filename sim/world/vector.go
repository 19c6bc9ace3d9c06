// Package world implements the static occupancy grid, A* planner and
// directional gate constraints that shoppers and cashiers navigate on top
// of.
package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vector2 is an ordered pair of reals (x, z) in world meters. All geometry
// in the simulator is planar; the y axis never appears.
type Vector2 struct {
	v mgl64.Vec2
}

// Vec2 builds a Vector2 from its x and z components.
func Vec2(x, z float64) Vector2 { return Vector2{v: mgl64.Vec2{x, z}} }

// X returns the x component.
func (p Vector2) X() float64 { return p.v[0] }

// Z returns the z component.
func (p Vector2) Z() float64 { return p.v[1] }

// Add returns p + q.
func (p Vector2) Add(q Vector2) Vector2 { return Vector2{v: p.v.Add(q.v)} }

// Sub returns p - q.
func (p Vector2) Sub(q Vector2) Vector2 { return Vector2{v: p.v.Sub(q.v)} }

// Mul returns p scaled by f.
func (p Vector2) Mul(f float64) Vector2 { return Vector2{v: p.v.Mul(f)} }

// Len returns the Euclidean length of p.
func (p Vector2) Len() float64 { return p.v.Len() }

// Dist returns the Euclidean distance between p and q.
func (p Vector2) Dist(q Vector2) float64 { return p.Sub(q).Len() }

// Dot returns the dot product of p and q.
func (p Vector2) Dot(q Vector2) float64 { return p.v.Dot(q.v) }

// Normalize returns p scaled to unit length. The zero vector is returned
// unchanged.
func (p Vector2) Normalize() Vector2 {
	l := p.Len()
	if l < 1e-9 {
		return p
	}
	return p.Mul(1 / l)
}

// Perp returns p rotated 90 degrees counter-clockwise, used to find the
// normal of a direction of travel.
func (p Vector2) Perp() Vector2 { return Vec2(-p.v[1], p.v[0]) }

// Angle returns the angle of p from the positive x axis, in radians.
func (p Vector2) Angle() float64 { return math.Atan2(p.v[1], p.v[0]) }

// ApproxEqual reports whether p and q are within eps of one another on
// both axes.
func (p Vector2) ApproxEqual(q Vector2, eps float64) bool {
	return math.Abs(p.v[0]-q.v[0]) <= eps && math.Abs(p.v[1]-q.v[1]) <= eps
}
