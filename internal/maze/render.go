package maze

import "strings"

// String renders the grid as ASCII art, one text row per wall line.
func (g *Grid) String() string {
	var b strings.Builder
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			b.WriteByte('+')
			if g.Cells[c][r].Walls.Top {
				b.WriteString("---")
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString("+\n")
		for c := 0; c < g.Cols; c++ {
			if g.Cells[c][r].Walls.Left {
				b.WriteByte('|')
			} else {
				b.WriteByte(' ')
			}
			b.WriteString("   ")
		}
		if g.Cells[g.Cols-1][r].Walls.Right {
			b.WriteByte('|')
		}
		b.WriteByte('\n')
	}
	for c := 0; c < g.Cols; c++ {
		b.WriteByte('+')
		if g.Cells[c][g.Rows-1].Walls.Bottom {
			b.WriteString("---")
		} else {
			b.WriteString("   ")
		}
	}
	b.WriteString("+\n")
	return b.String()
}
