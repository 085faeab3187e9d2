package maze

import "encoding/json"

// Direction indexes a cell wall. The order matches the carving order used by the generator.
type Direction int

const (
	Top Direction = iota
	Right
	Bottom
	Left
)

// Directions lists every wall direction in carving order.
var Directions = [4]Direction{Top, Right, Bottom, Left}

// Opposite returns the wall facing d on the neighbouring cell.
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// Offset returns the column/row delta of the neighbour across wall d.
func (d Direction) Offset() (int, int) {
	switch d {
	case Top:
		return 0, -1
	case Right:
		return 1, 0
	case Bottom:
		return 0, 1
	default:
		return -1, 0
	}
}

func (d Direction) String() string {
	switch d {
	case Top:
		return "top"
	case Right:
		return "right"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Walls holds the four directional wall flags of a cell.
type Walls struct {
	Top    bool `json:"top"`
	Right  bool `json:"right"`
	Bottom bool `json:"bottom"`
	Left   bool `json:"left"`
}

// Has reports whether the wall in direction d is present.
func (w Walls) Has(d Direction) bool {
	switch d {
	case Top:
		return w.Top
	case Right:
		return w.Right
	case Bottom:
		return w.Bottom
	case Left:
		return w.Left
	}
	return false
}

func (w *Walls) set(d Direction, present bool) {
	switch d {
	case Top:
		w.Top = present
	case Right:
		w.Right = present
	case Bottom:
		w.Bottom = present
	case Left:
		w.Left = present
	}
}

// Cell is a single maze tile.
type Cell struct {
	Col   int
	Row   int
	Walls Walls

	visited bool
}

// MarshalJSON keeps the {x, y, walls} shape clients draw from.
func (c *Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X     int   `json:"x"`
		Y     int   `json:"y"`
		Walls Walls `json:"walls"`
	}{c.Col, c.Row, c.Walls})
}

// UnmarshalJSON reads the {x, y, walls} shape.
func (c *Cell) UnmarshalJSON(b []byte) error {
	var raw struct {
		X     int   `json:"x"`
		Y     int   `json:"y"`
		Walls Walls `json:"walls"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.Col, c.Row, c.Walls = raw.X, raw.Y, raw.Walls
	return nil
}

// Grid is a cols x rows matrix of cells, indexed Cells[col][row].
// It is immutable once generation returns and safe for concurrent readers.
type Grid struct {
	Cols     int       `json:"cols"`
	Rows     int       `json:"rows"`
	CellSize float64   `json:"cellSize"`
	Cells    [][]*Cell `json:"cells"`
}

// NewGrid creates a grid where every cell has all four walls.
func NewGrid(cols, rows int, cellSize float64) *Grid {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	cells := make([][]*Cell, cols)
	for c := 0; c < cols; c++ {
		cells[c] = make([]*Cell, rows)
		for r := 0; r < rows; r++ {
			cells[c][r] = &Cell{
				Col:   c,
				Row:   r,
				Walls: Walls{Top: true, Right: true, Bottom: true, Left: true},
			}
		}
	}
	return &Grid{Cols: cols, Rows: rows, CellSize: cellSize, Cells: cells}
}

// Width is the playfield width in pixels.
func (g *Grid) Width() float64 {
	return float64(g.Cols) * g.CellSize
}

// Height is the playfield height in pixels.
func (g *Grid) Height() float64 {
	return float64(g.Rows) * g.CellSize
}

// InBounds reports whether (col, row) addresses a cell.
func (g *Grid) InBounds(col, row int) bool {
	return col >= 0 && row >= 0 && col < g.Cols && row < g.Rows
}

// Cell returns the cell at (col, row), or nil when out of bounds.
func (g *Grid) Cell(col, row int) *Cell {
	if !g.InBounds(col, row) {
		return nil
	}
	return g.Cells[col][row]
}

// Neighbor returns the cell across wall d from (col, row), or nil at the boundary.
func (g *Grid) Neighbor(col, row int, d Direction) *Cell {
	dc, dr := d.Offset()
	return g.Cell(col+dc, row+dr)
}

// HasWall reports whether the wall in direction d of (col, row) is present.
// Out-of-bounds cells report every wall as present.
func (g *Grid) HasWall(col, row int, d Direction) bool {
	cell := g.Cell(col, row)
	if cell == nil {
		return true
	}
	return cell.Walls.Has(d)
}

// CellAt maps a continuous position to the containing cell coordinates.
// ok is false when the position lies outside the grid.
func (g *Grid) CellAt(x, y float64) (col, row int, ok bool) {
	if g.CellSize <= 0 || x < 0 || y < 0 {
		return 0, 0, false
	}
	col = int(x / g.CellSize)
	row = int(y / g.CellSize)
	return col, row, g.InBounds(col, row)
}

// CellCenter returns the pixel centre of (col, row).
func (g *Grid) CellCenter(col, row int) (float64, float64) {
	return (float64(col) + 0.5) * g.CellSize, (float64(row) + 0.5) * g.CellSize
}

// RemoveWall opens the wall between (col, row) and its neighbour in direction d,
// clearing both sides. It returns false when d points out of the grid.
func (g *Grid) RemoveWall(col, row int, d Direction) bool {
	cur := g.Cell(col, row)
	next := g.Neighbor(col, row, d)
	if cur == nil || next == nil {
		return false
	}
	cur.Walls.set(d, false)
	next.Walls.set(d.Opposite(), false)
	return true
}

// RemovedWalls counts interior walls that are open.
func (g *Grid) RemovedWalls() int {
	n := 0
	for c := 0; c < g.Cols; c++ {
		for r := 0; r < g.Rows; r++ {
			cell := g.Cells[c][r]
			if c+1 < g.Cols && !cell.Walls.Right {
				n++
			}
			if r+1 < g.Rows && !cell.Walls.Bottom {
				n++
			}
		}
	}
	return n
}
