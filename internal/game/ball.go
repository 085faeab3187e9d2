package game

import "math"

// Ball is a player's marble. The simulating process owns it; peers hold mirrors.
type Ball struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slot     int     `json:"slot"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius"`
	Color    string  `json:"color"`
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
	IsWinner bool    `json:"isWinner"`
}

func (b *Ball) Position() Vec2 {
	return Vec2{X: b.X, Y: b.Y}
}

func (b *Ball) Velocity() Vec2 {
	return Vec2{X: b.DX, Y: b.DY}
}

func (b *Ball) SetVelocity(v Vec2) {
	b.DX, b.DY = v.X, v.Y
}

// Reset puts the ball back on (x, y) at rest and clears the win flag.
func (b *Ball) Reset(x, y float64) {
	b.X, b.Y = x, y
	b.DX, b.DY = 0, 0
	b.IsWinner = false
}

// Hole is the goal the balls race toward.
type Hole struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
}

// WinPolicy selects how much of the ball must be inside the hole.
type WinPolicy string

const (
	// WinContained requires the whole ball inside the hole.
	WinContained WinPolicy = "contained"
	// WinOverlap accepts any overlap between ball and hole.
	WinOverlap WinPolicy = "overlap"
)

// InHole reports whether b satisfies the win predicate for h under policy.
func InHole(b *Ball, h Hole, policy WinPolicy) bool {
	d := math.Hypot(b.X-h.X, b.Y-h.Y)
	if policy == WinOverlap {
		return d < h.Radius+b.Radius
	}
	return d < h.Radius-b.Radius
}
