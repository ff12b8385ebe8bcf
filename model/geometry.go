package model

import "math"

// Vec2 is a world position in map units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (a Vec2) Add(b Vec2) Vec2      { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2      { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Scale(k float64) Vec2 { return Vec2{a.X * k, a.Y * k} }
func (a Vec2) Len() float64         { return math.Hypot(a.X, a.Y) }

// DistSq is the squared distance, the comparison key used everywhere ranges matter.
func (a Vec2) DistSq(b Vec2) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

func (a Vec2) Dist(b Vec2) float64 { return math.Sqrt(a.DistSq(b)) }

// Toward moves from a toward b by at most step, stopping on b.
func (a Vec2) Toward(b Vec2, step float64) Vec2 {
	d := b.Sub(a)
	l := d.Len()
	if l <= step || l == 0 {
		return b
	}
	return a.Add(d.Scale(step / l))
}

// Centroid returns the mean position; ok is false for an empty slice.
func Centroid(ps []Vec2) (c Vec2, ok bool) {
	if len(ps) == 0 {
		return Vec2{}, false
	}
	for _, p := range ps {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(ps))
	return Vec2{c.X / n, c.Y / n}, true
}
