package game

import (
	"math"

	"github.com/tiltmaze/backend/internal/maze"
)

// WallResponse selects what happens to the velocity component that hits a wall.
type WallResponse string

const (
	// WallStop zeroes the component.
	WallStop WallResponse = "stop"
	// WallBounce reflects the component scaled by the restitution.
	WallBounce WallResponse = "bounce"
)

// CollisionEvent records a ball-ball contact resolved during a tick.
type CollisionEvent struct {
	BallA string  `json:"ball_a"`
	BallB string  `json:"ball_b"`
	Speed float64 `json:"speed"`
}

// PhysicsEngine moves balls through a maze grid. It only reads the grid.
type PhysicsEngine struct {
	Grid        *maze.Grid
	Width       float64
	Height      float64
	Substeps    int
	Response    WallResponse
	Restitution float64
	Win         WinPolicy
}

// NewPhysicsEngine creates an engine whose playfield matches the grid.
func NewPhysicsEngine(g *maze.Grid, substeps int, response WallResponse, restitution float64, win WinPolicy) *PhysicsEngine {
	if substeps < 1 {
		substeps = 1
	}
	if response == "" {
		response = WallStop
	}
	if win == "" {
		win = WinContained
	}
	return &PhysicsEngine{
		Grid:        g,
		Width:       g.Width(),
		Height:      g.Height(),
		Substeps:    substeps,
		Response:    response,
		Restitution: restitution,
		Win:         win,
	}
}

// Step sets the ball's velocity to (dx, dy) and advances it one tick.
// It returns true only on the tick the ball first enters the hole.
func (pe *PhysicsEngine) Step(b *Ball, dx, dy float64, hole Hole) bool {
	b.DX, b.DY = dx, dy
	return pe.Advance(b, hole)
}

// Advance moves the ball one tick using its current velocity, split into
// Substeps equal moves with wall resolution after each one.
func (pe *PhysicsEngine) Advance(b *Ball, hole Hole) bool {
	n := float64(pe.Substeps)
	for i := 0; i < pe.Substeps; i++ {
		nextX := b.X + b.DX/n
		nextY := b.Y + b.DY/n
		nextX, nextY = pe.clampToField(nextX, nextY, b.Radius)
		b.X, b.Y = pe.resolveWalls(b, nextX, nextY)
	}
	return pe.CheckGoal(b, hole)
}

// CheckGoal applies the win predicate and marks the ball. It returns true
// only when the ball was not already a winner.
func (pe *PhysicsEngine) CheckGoal(b *Ball, hole Hole) bool {
	if b.IsWinner || !InHole(b, hole, pe.Win) {
		return false
	}
	b.IsWinner = true
	return true
}

func (pe *PhysicsEngine) clampToField(x, y, radius float64) (float64, float64) {
	return clamp(x, radius, pe.Width-radius), clamp(y, radius, pe.Height-radius)
}

// resolveWalls checks the four walls of the cell holding the candidate position.
// Each direction is tested independently so corner approaches resolve both axes.
func (pe *PhysicsEngine) resolveWalls(b *Ball, nextX, nextY float64) (float64, float64) {
	col, row, ok := pe.Grid.CellAt(nextX, nextY)
	if !ok {
		return nextX, nextY
	}
	cell := pe.Grid.Cells[col][row]
	size := pe.Grid.CellSize
	top := float64(row) * size
	bottom := float64(row+1) * size
	left := float64(col) * size
	right := float64(col+1) * size

	if b.DY < 0 && cell.Walls.Top && nextY-b.Radius < top {
		nextY = top + b.Radius
		b.DY = pe.respond(b.DY)
	}
	if b.DY > 0 && cell.Walls.Bottom && nextY+b.Radius > bottom {
		nextY = bottom - b.Radius
		b.DY = pe.respond(b.DY)
	}
	if b.DX < 0 && cell.Walls.Left && nextX-b.Radius < left {
		nextX = left + b.Radius
		b.DX = pe.respond(b.DX)
	}
	if b.DX > 0 && cell.Walls.Right && nextX+b.Radius > right {
		nextX = right - b.Radius
		b.DX = pe.respond(b.DX)
	}
	return nextX, nextY
}

func (pe *PhysicsEngine) respond(v float64) float64 {
	if pe.Response == WallBounce {
		return -v * pe.Restitution
	}
	return 0
}

// ResolveCollisions separates every overlapping pair and swaps their velocities.
// Coincident centres are pushed apart along the x axis (atan2(0,0) = 0).
func ResolveCollisions(balls []*Ball) []CollisionEvent {
	var events []CollisionEvent
	for i := 0; i < len(balls); i++ {
		for j := i + 1; j < len(balls); j++ {
			a, b := balls[i], balls[j]
			delta := b.Position().Minus(a.Position())
			distance := delta.Magnitude()
			minDist := a.Radius + b.Radius
			if distance >= minDist {
				continue
			}

			speed := b.Velocity().Minus(a.Velocity()).Magnitude()
			va, vb := a.Velocity(), b.Velocity()
			a.SetVelocity(vb)
			b.SetVelocity(va)

			angle := delta.Angle()
			cos, sin := math.Cos(angle), math.Sin(angle)
			overlap := 0.5 * (minDist - distance)
			a.X -= overlap * cos
			a.Y -= overlap * sin
			b.X += overlap * cos
			b.Y += overlap * sin

			events = append(events, CollisionEvent{BallA: a.ID, BallB: b.ID, Speed: speed})
		}
	}
	return events
}
