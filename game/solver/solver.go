package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zyedidia/generic/mapset"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
)

// DefaultMaxStates bounds the search when Options.MaxStates is zero
const DefaultMaxStates = 250000

// ErrSearchLimit is returned when the state budget runs out before the
// search space is exhausted
var ErrSearchLimit = errors.New("search limit reached")

// Options bounds a search
type Options struct {
	MaxStates int
}

// Result describes the outcome of solving one level
type Result struct {
	Level    int                `json:"level"`
	Name     string             `json:"name,omitempty"`
	Solvable bool               `json:"solvable"`
	Moves    []engine.Direction `json:"moves,omitempty"`
	Explored int                `json:"explored"`
	// Exhausted is false when the search stopped at the state budget
	Exhausted bool `json:"exhausted"`
}

// Len returns the length of the shortest solution
func (r *Result) Len() int {
	return len(r.Moves)
}

type node struct {
	board *engine.Board
	path  []engine.Direction
}

// Solve runs a breadth-first search over player moves from the level's
// starting layout. The first solution found is a shortest one.
func Solve(ctx context.Context, grid engine.Grid, level *engine.Level, opts Options) (*Result, error) {
	if err := engine.ValidateLevel(grid, level); err != nil {
		return nil, err
	}
	limit := opts.MaxStates
	if limit <= 0 {
		limit = DefaultMaxStates
	}

	start := engine.NewBoard(grid, level)
	result := &Result{Name: level.Name}

	visited := mapset.New[string]()
	visited.Put(stateKey(start))
	queue := []node{{board: start}}

	for len(queue) > 0 {
		if result.Explored%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}
		if result.Explored >= limit {
			return result, fmt.Errorf("%w after %d states", ErrSearchLimit, result.Explored)
		}

		current := queue[0]
		queue = queue[1:]
		result.Explored++

		for _, dir := range engine.Directions {
			next := current.board.Clone()
			if out := next.AttemptMove(next.Player, dir); !out.Committed {
				continue
			}
			path := append(append([]engine.Direction(nil), current.path...), dir)
			if next.LevelComplete() {
				result.Solvable = true
				result.Exhausted = true
				result.Moves = path
				return result, nil
			}

			key := stateKey(next)
			if visited.Has(key) {
				continue
			}
			visited.Put(key)
			forget(next)
			queue = append(queue, node{board: next, path: path})
		}
	}

	result.Exhausted = true
	return result, nil
}

// SolveSet solves every level of set in order. A level that hits the state
// budget is reported with Exhausted false rather than failing the whole set.
func SolveSet(ctx context.Context, set *engine.LevelSet, def engine.Grid, opts Options) ([]*Result, error) {
	if err := engine.ValidateLevelSet(set, def); err != nil {
		return nil, err
	}
	grid := set.Grid(def)

	results := make([]*Result, 0, len(set.Levels))
	for i := range set.Levels {
		res, err := Solve(ctx, grid, &set.Levels[i], opts)
		if err != nil && !errors.Is(err, ErrSearchLimit) {
			return results, fmt.Errorf("level %d: %w", i+1, err)
		}
		res.Level = i
		results = append(results, res)
	}
	return results, nil
}

// stateKey identifies a board by entity positions and door state. History
// is ignored, so two boards reached by different paths compare equal.
func stateKey(b *engine.Board) string {
	var sb strings.Builder
	for _, e := range b.Entities() {
		if e.Kind == engine.KindBlock && e.Static {
			continue
		}
		switch {
		case e.Deleted:
			sb.WriteString("x;")
		case e.IsOpen():
			fmt.Fprintf(&sb, "o%d,%d;", e.Pos.X, e.Pos.Y)
		default:
			fmt.Fprintf(&sb, "%d,%d;", e.Pos.X, e.Pos.Y)
		}
	}
	return sb.String()
}

// forget drops move history, which the search never undoes. Start is moved
// along so the history still sums to Pos - Start.
func forget(b *engine.Board) {
	for _, e := range b.Entities() {
		e.History = nil
		e.Start = e.Pos
	}
}
