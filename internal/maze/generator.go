package maze

import (
	"time"

	"golang.org/x/exp/rand"
)

// Intner is the uniform random source used while carving.
// *rand.Rand from golang.org/x/exp/rand satisfies it.
type Intner interface {
	Intn(n int) int
}

// NewRand returns a seeded generator. A zero seed picks one from the clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewSource(seed))
}

type neighbor struct {
	dir  Direction
	cell *Cell
}

// Generate carves a perfect maze over a fresh cols x rows grid using an
// iterative randomized depth-first backtracker starting at (0,0).
func Generate(cols, rows int, cellSize float64, rng Intner) *Grid {
	g := NewGrid(cols, rows, cellSize)
	Carve(g, rng)
	return g
}

// Carve runs the backtracker over g. Every cell of g must start with all walls present.
func Carve(g *Grid, rng Intner) {
	start := g.Cells[0][0]
	start.visited = true
	stack := []*Cell{start}

	candidates := make([]neighbor, 0, 4)
	for len(stack) > 0 {
		current := stack[len(stack)-1]

		candidates = candidates[:0]
		for _, d := range Directions {
			next := g.Neighbor(current.Col, current.Row, d)
			if next != nil && !next.visited {
				candidates = append(candidates, neighbor{dir: d, cell: next})
			}
		}

		if len(candidates) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		pick := candidates[rng.Intn(len(candidates))]
		g.RemoveWall(current.Col, current.Row, pick.dir)
		pick.cell.visited = true
		stack = append(stack, pick.cell)
	}

	for c := range g.Cells {
		for _, cell := range g.Cells[c] {
			cell.visited = false
		}
	}
}
