package solver

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
)

// LevelReport combines layout statistics with the search result for one level
type LevelReport struct {
	Index         int
	Name          string
	MovableBlocks int
	StaticBlocks  int
	TeleportPairs int
	KeyToDoor     int // Manhattan distance in cells
	KeyWedged     bool
	DoorOnWall    bool
	Result        *Result
	Undecided     bool
}

// Analyze reports on every level of set. The search is bounded by opts, so
// a huge level is reported as undecided rather than hanging.
func Analyze(ctx context.Context, set *engine.LevelSet, def engine.Grid, opts Options) ([]LevelReport, error) {
	results, err := SolveSet(ctx, set, def, opts)
	if err != nil {
		return nil, err
	}
	grid := set.Grid(def)

	reports := make([]LevelReport, len(set.Levels))
	for i := range set.Levels {
		lvl := &set.Levels[i]
		r := LevelReport{
			Index:         i,
			Name:          lvl.Name,
			TeleportPairs: len(lvl.Teleports),
			KeyToDoor:     cellDistance(grid, lvl.KeyStart, lvl.DoorStart),
			DoorOnWall:    !grid.InBounds(lvl.DoorStart),
			Result:        results[i],
		}
		for _, b := range lvl.Blocks {
			if b.Movable {
				r.MovableBlocks++
			} else {
				r.StaticBlocks++
			}
		}
		r.KeyWedged = keyWedged(grid, lvl)
		r.Undecided = !results[i].Exhausted
		reports[i] = r
	}
	return reports, nil
}

// WriteReport prints reports in a human-readable form
func WriteReport(w io.Writer, set *engine.LevelSet, reports []LevelReport) {
	fmt.Fprintf(w, "Name: %s\n", set.Name)
	if set.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", set.Description)
	}
	fmt.Fprintf(w, "Levels: %d\n", len(set.Levels))

	for _, r := range reports {
		title := fmt.Sprintf("Level %d", r.Index+1)
		if r.Name != "" {
			title += ": " + r.Name
		}
		fmt.Fprintf(w, "\n--- %s ---\n", title)
		fmt.Fprintf(w, "Blocks: %d movable, %d static\n", r.MovableBlocks, r.StaticBlocks)
		fmt.Fprintf(w, "Teleport pairs: %d\n", r.TeleportPairs)
		fmt.Fprintf(w, "Key to door: %d cells", r.KeyToDoor)
		if r.DoorOnWall {
			fmt.Fprint(w, " (door on the wall)")
		}
		fmt.Fprintln(w)

		if r.KeyWedged {
			fmt.Fprintf(w, "⚠️  WARNING: the key starts wedged in a corner\n")
		}

		switch {
		case r.Result.Solvable:
			fmt.Fprintf(w, "✅ Solvable in %d moves (%d states explored)\n", r.Result.Len(), r.Result.Explored)
			fmt.Fprintf(w, "   Solution: %s\n", formatMoves(r.Result.Moves))
		case r.Undecided:
			fmt.Fprintf(w, "⚠️  Undecided: search stopped after %d states\n", r.Result.Explored)
		default:
			fmt.Fprintf(w, "❌ CRITICAL: unsolvable (%d states explored)\n", r.Result.Explored)
		}
	}
}

// formatMoves run-length encodes a move list, e.g. "right x3, up"
func formatMoves(moves []engine.Direction) string {
	var parts []string
	for i := 0; i < len(moves); {
		j := i
		for j < len(moves) && moves[j] == moves[i] {
			j++
		}
		if n := j - i; n > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", moves[i], n))
		} else {
			parts = append(parts, string(moves[i]))
		}
		i = j
	}
	return strings.Join(parts, ", ")
}

func cellDistance(grid engine.Grid, a, b engine.Position) int {
	ac, ar := grid.Cell(a)
	bc, br := grid.Cell(b)
	return abs(ac-bc) + abs(ar-br)
}

// keyWedged reports whether the key starts with a blocked neighbour on both
// axes, which means it can never be pushed
func keyWedged(grid engine.Grid, lvl *engine.Level) bool {
	static := make(map[engine.Position]bool)
	for _, b := range lvl.Blocks {
		if !b.Movable {
			static[b.Pos()] = true
		}
	}
	blocked := func(dir engine.Direction) bool {
		p := lvl.KeyStart.Add(grid.Delta(dir))
		if p == lvl.DoorStart {
			return false
		}
		return !grid.InBounds(p) || static[p]
	}
	return (blocked(engine.Left) || blocked(engine.Right)) && (blocked(engine.Up) || blocked(engine.Down))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
