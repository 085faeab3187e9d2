package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/tiltmaze/backend/internal/config"
	"github.com/tiltmaze/backend/internal/game"
	"github.com/tiltmaze/backend/internal/maze"
)

func main() {
	// Defaults come from the same environment the server reads
	cfg := config.Load()

	cols := flag.Int("cols", cfg.MazeCols, "maze columns")
	rows := flag.Int("rows", cfg.MazeRows, "maze rows")
	seed := flag.Uint64("seed", cfg.MazeSeed, "generator seed (0 = random)")
	asJSON := flag.Bool("json", false, "print the grid payload as JSON instead of ASCII")
	flag.Parse()

	if *cols < 1 || *rows < 1 {
		log.Fatalf("cols and rows must be positive, got %dx%d", *cols, *rows)
	}

	g := maze.Generate(*cols, *rows, cfg.CellSize, maze.NewRand(*seed))
	hole := game.DefaultHole(g, cfg.HoleRadius)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			*maze.Grid
			Hole game.Hole `json:"hole"`
		}{g, hole}); err != nil {
			log.Fatalf("Failed to encode grid: %v", err)
		}
		return
	}

	fmt.Print(g.String())
	fmt.Printf("size: %dx%d  seed: %d  removed walls: %d (perfect: %d)\n",
		g.Cols, g.Rows, *seed, g.RemovedWalls(), g.Cols*g.Rows-1)
	for _, s := range game.DefaultSpawnSlots(g.Cols, g.Rows) {
		x, y := game.SpawnPoint(g, s)
		fmt.Printf("spawn %-6s cell (%d,%d) at (%.0f, %.0f)\n", s.Color, s.Col, s.Row, x, y)
	}
	fmt.Printf("hole          at (%.0f, %.0f) r=%.0f\n", hole.X, hole.Y, hole.Radius)
}
