package engine

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrInvalidLevel is wrapped by every level validation failure
var ErrInvalidLevel = errors.New("invalid level")

// Options configures a GameEngine
type Options struct {
	// GridSize and BlockSize apply when the level set does not set its own
	GridSize  int
	BlockSize int
	// Clock is used for elapsed-time tracking; defaults to time.Now
	Clock func() time.Time
	// Autosave is called after every state-mutating event. It must not block.
	Autosave func(Progress)
}

func (o Options) withDefaults() Options {
	if o.GridSize == 0 {
		o.GridSize = DefaultGridSize
	}
	if o.BlockSize == 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Grid returns the default grid described by the options
func (o Options) Grid() Grid {
	o = o.withDefaults()
	return Grid{Size: o.GridSize, BlockSize: o.BlockSize}
}

// ValidateLevelSet validates every level of set against its grid
func ValidateLevelSet(set *LevelSet, def Grid) error {
	if set == nil {
		return fmt.Errorf("%w: level set is nil", ErrInvalidLevel)
	}
	if len(set.Levels) == 0 {
		return fmt.Errorf("%w: level set %q has no levels", ErrInvalidLevel, set.Name)
	}
	grid := set.Grid(def)
	if err := grid.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	for i := range set.Levels {
		if err := ValidateLevel(grid, &set.Levels[i]); err != nil {
			return fmt.Errorf("level %d: %w", i+1, err)
		}
	}
	return nil
}

// ValidateLevel checks a level before any entity is built from it: every
// position must be cell aligned and inside the grid (the door may sit on the
// wall ring), no two entities may share a cell and teleport pads must be
// distinct free cells.
func ValidateLevel(grid Grid, lvl *Level) error {
	if len(lvl.Blocks) == 0 {
		return fmt.Errorf("%w: block list is empty", ErrInvalidLevel)
	}

	occupied := make(map[Position]string)
	place := func(name string, p Position, inside func(Position) bool) error {
		if !grid.Aligned(p) {
			return fmt.Errorf("%w: %s at (%d, %d) is not aligned to block size %d", ErrInvalidLevel, name, p.X, p.Y, grid.BlockSize)
		}
		if !inside(p) {
			return fmt.Errorf("%w: %s at (%d, %d) is outside the grid", ErrInvalidLevel, name, p.X, p.Y)
		}
		if other, ok := occupied[p]; ok {
			return fmt.Errorf("%w: %s overlaps %s at (%d, %d)", ErrInvalidLevel, name, other, p.X, p.Y)
		}
		occupied[p] = name
		return nil
	}

	if err := place("player", lvl.PlayerStart, grid.InBounds); err != nil {
		return err
	}
	if err := place("key", lvl.KeyStart, grid.InBounds); err != nil {
		return err
	}
	if err := place("door", lvl.DoorStart, grid.InFrame); err != nil {
		return err
	}
	for i, b := range lvl.Blocks {
		if (b.W != 0 && b.W != grid.BlockSize) || (b.H != 0 && b.H != grid.BlockSize) {
			return fmt.Errorf("%w: block %d is %dx%d, expected %dx%d", ErrInvalidLevel, i, b.W, b.H, grid.BlockSize, grid.BlockSize)
		}
		if err := place(fmt.Sprintf("block %d", i), b.Pos(), grid.InBounds); err != nil {
			return err
		}
	}

	pads := make(map[Position]int)
	for i, t := range lvl.Teleports {
		if t.A == t.B {
			return fmt.Errorf("%w: teleport %d links a pad to itself", ErrInvalidLevel, i)
		}
		for _, p := range []Position{t.A, t.B} {
			if !grid.Aligned(p) || !grid.InBounds(p) {
				return fmt.Errorf("%w: teleport %d pad (%d, %d) is not a grid cell", ErrInvalidLevel, i, p.X, p.Y)
			}
			if j, ok := pads[p]; ok {
				return fmt.Errorf("%w: teleport %d pad (%d, %d) is already used by teleport %d", ErrInvalidLevel, i, p.X, p.Y, j)
			}
			if p == lvl.DoorStart {
				return fmt.Errorf("%w: teleport %d pad (%d, %d) is under the door", ErrInvalidLevel, i, p.X, p.Y)
			}
			pads[p] = i
		}
	}
	for i, b := range lvl.Blocks {
		if _, ok := pads[b.Pos()]; ok && !b.Movable {
			return fmt.Errorf("%w: static block %d sits on a teleport pad", ErrInvalidLevel, i)
		}
	}
	return nil
}

// LoadLevelSetFile reads, parses and validates a level set file
func LoadLevelSetFile(path string, def Grid) (*LevelSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set, err := ParseLevelSet(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse level set '%s': %w", path, err)
	}
	if err := ValidateLevelSet(set, def); err != nil {
		return nil, fmt.Errorf("invalid level set '%s': %w", path, err)
	}
	return set, nil
}
