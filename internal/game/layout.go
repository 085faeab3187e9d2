package game

import "github.com/tiltmaze/backend/internal/maze"

// SpawnSlot is a predefined starting cell and the color that comes with it.
type SpawnSlot struct {
	Col   int
	Row   int
	Color string
}

// DefaultSpawnSlots returns the four reference slots: top-left, top-right,
// bottom-left and top-centre.
func DefaultSpawnSlots(cols, rows int) []SpawnSlot {
	return []SpawnSlot{
		{Col: 0, Row: 0, Color: SlotColors[0]},
		{Col: cols - 1, Row: 0, Color: SlotColors[1]},
		{Col: 0, Row: rows - 1, Color: SlotColors[2]},
		{Col: cols / 2, Row: 0, Color: SlotColors[3]},
	}
}

// SpawnPoint returns the pixel centre of slot s on grid g.
func SpawnPoint(g *maze.Grid, s SpawnSlot) (float64, float64) {
	return g.CellCenter(s.Col, s.Row)
}

// DefaultHole places the goal in the centre of the bottom-right cell.
func DefaultHole(g *maze.Grid, radius float64) Hole {
	x, y := g.CellCenter(g.Cols-1, g.Rows-1)
	return Hole{X: x, Y: y, Radius: radius, Color: DefaultHoleColor}
}

// RandomHole places the goal in the centre of a random cell not used by a spawn slot.
// It falls back to the default position when every cell is a spawn cell.
func RandomHole(g *maze.Grid, radius float64, slots []SpawnSlot, rng maze.Intner) Hole {
	taken := make(map[[2]int]bool, len(slots))
	for _, s := range slots {
		taken[[2]int{s.Col, s.Row}] = true
	}
	free := make([][2]int, 0, g.Cols*g.Rows)
	for c := 0; c < g.Cols; c++ {
		for r := 0; r < g.Rows; r++ {
			if !taken[[2]int{c, r}] {
				free = append(free, [2]int{c, r})
			}
		}
	}
	if len(free) == 0 {
		return DefaultHole(g, radius)
	}
	pick := free[rng.Intn(len(free))]
	x, y := g.CellCenter(pick[0], pick[1])
	return Hole{X: x, Y: y, Radius: radius, Color: DefaultHoleColor}
}
