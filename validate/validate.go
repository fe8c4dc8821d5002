// Package validate checks level set JSON files before they are served. It
// checks:
//   - JSON structure in either the set form or the editor's bare array form
//   - Grid dimensions and cell alignment of every entity
//   - Overlapping entities and teleport pads
//   - Connectivity: the player can walk next to the key, following teleports
//   - Optionally, solvability via a bounded solver run
package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/solver"
)

// Options tunes a validation run
type Options struct {
	Grid engine.Grid
	// Solve runs the solver on every level and reports unsolvable ones
	Solve     bool
	MaxStates int
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// File loads and validates a single level set file
func File(ctx context.Context, filePath string, opts Options) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}
	return Data(ctx, result.File, data, opts)
}

// Data validates an in-memory level set
func Data(ctx context.Context, name string, data []byte, opts Options) ValidationResult {
	result := ValidationResult{
		File:   name,
		Valid:  true,
		Errors: []string{},
	}
	if opts.Grid == (engine.Grid{}) {
		opts.Grid = engine.DefaultGrid()
	}

	set, err := engine.ParseLevelSet(data)
	if err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if len(set.Levels) == 0 {
		result.fail("Level set has no levels")
		return result
	}

	grid := set.Grid(opts.Grid)
	if err := grid.Validate(); err != nil {
		result.fail("Invalid grid: %v", err)
		return result
	}

	for i := range set.Levels {
		lvl := &set.Levels[i]
		if err := engine.ValidateLevel(grid, lvl); err != nil {
			result.fail("Level %d: %s", i+1, strings.TrimPrefix(err.Error(), engine.ErrInvalidLevel.Error()+": "))
			continue
		}
		if !keyReachable(grid, lvl) {
			result.fail("Level %d: connectivity failure: the player cannot reach the key", i+1)
		}
	}

	if result.Valid && opts.Solve {
		results, err := solver.SolveSet(ctx, set, opts.Grid, solver.Options{MaxStates: opts.MaxStates})
		if err != nil {
			result.fail("Solver failed: %v", err)
		}
		for _, res := range results {
			switch {
			case res.Solvable:
				result.info("Level %d solvable in %d moves", res.Level+1, res.Len())
			case !res.Exhausted:
				result.info("Level %d undecided after %d states", res.Level+1, res.Explored)
			default:
				result.fail("Level %d is unsolvable", res.Level+1)
			}
		}
	}

	if result.Valid {
		name := set.Name
		if name == "" {
			name = "(unnamed)"
		}
		result.info("Name: %s", name)
		result.info("Grid: %dx%d, block size %d", grid.Size, grid.Size, grid.BlockSize)
		result.info("Levels: %d", len(set.Levels))
		pairs := 0
		for _, lvl := range set.Levels {
			pairs += len(lvl.Teleports)
		}
		result.info("Teleport pairs: %d", pairs)
	}

	return result
}

// Dir validates every *.json file in dir, sorted by name
func Dir(ctx context.Context, dir string, opts Options) ([]ValidationResult, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("error finding level files: %w", err)
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, File(ctx, file, opts))
	}
	return results, nil
}

// ErrInvalid is returned by Report when any file failed validation
var ErrInvalid = errors.New("some level sets have errors")

// Report prints a concise report and returns ErrInvalid if any result is
// invalid
func Report(w io.Writer, results []ValidationResult) error {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		fmt.Fprintln(w, "❌ Some level sets have errors")
		return ErrInvalid
	}
	fmt.Fprintln(w, "✅ All level sets are valid!")
	return nil
}

// keyReachable flood fills from the player start over cells not held by
// walls or static blocks, following teleport hops, and reports whether the
// player can stand next to the key. Movable blocks are treated as passable.
func keyReachable(grid engine.Grid, lvl *engine.Level) bool {
	static := make(map[engine.Position]bool)
	for _, b := range lvl.Blocks {
		if !b.Movable {
			static[b.Pos()] = true
		}
	}
	passable := func(p engine.Position) bool {
		return grid.InBounds(p) && !static[p]
	}
	sibling := func(p engine.Position) (engine.Position, bool) {
		for _, t := range lvl.Teleports {
			if s, ok := t.Sibling(p); ok {
				return s, true
			}
		}
		return engine.Position{}, false
	}

	visited := map[engine.Position]bool{lvl.PlayerStart: true}
	queue := []engine.Position{lvl.PlayerStart}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dir := range engine.Directions {
			d := grid.Delta(dir)
			next := current.Add(d)
			if next == lvl.KeyStart {
				return true
			}
			if !passable(next) {
				continue
			}
			if s, ok := sibling(next); ok {
				if landing := s.Add(d); landing == lvl.KeyStart {
					return true
				} else if passable(landing) {
					next = landing
				}
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
