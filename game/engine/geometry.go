package engine

import (
	"fmt"
	"strings"
)

// Direction is one of the four unit grid directions
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists every direction in a stable order
var Directions = []Direction{Up, Down, Left, Right}

// ParseDirection accepts the direction names plus the WASD keys
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "w", "north":
		return Up, nil
	case "down", "s", "south":
		return Down, nil
	case "left", "a", "west":
		return Left, nil
	case "right", "d", "east":
		return Right, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Grid describes the playable bounds. Cells are BlockSize pixels wide; the
// outer ring of cells (index 0 and index Size) is the wall where an exit door
// may be placed.
type Grid struct {
	Size      int `json:"grid_size"`
	BlockSize int `json:"block_size"`
}

// DefaultGrid returns the 10x80 grid used when nothing else is configured
func DefaultGrid() Grid {
	return Grid{Size: DefaultGridSize, BlockSize: DefaultBlockSize}
}

// Validate checks the grid dimensions
func (g Grid) Validate() error {
	if g.Size < MinGridSize || g.Size > MaxGridSize {
		return fmt.Errorf("grid size must be between %d and %d, got %d", MinGridSize, MaxGridSize, g.Size)
	}
	if g.BlockSize <= 0 {
		return fmt.Errorf("block size must be positive, got %d", g.BlockSize)
	}
	return nil
}

// Delta returns the pixel displacement of one step in dir
func (g Grid) Delta(dir Direction) Position {
	switch dir {
	case Up:
		return Position{Y: -g.BlockSize}
	case Down:
		return Position{Y: g.BlockSize}
	case Left:
		return Position{X: -g.BlockSize}
	case Right:
		return Position{X: g.BlockSize}
	}
	return Position{}
}

// InBounds reports whether p lies inside [BlockSize, Size*BlockSize) on both axes
func (g Grid) InBounds(p Position) bool {
	max := g.Size * g.BlockSize
	return p.X >= g.BlockSize && p.X < max && p.Y >= g.BlockSize && p.Y < max
}

// InFrame reports whether p lies on the playable area or its surrounding wall ring
func (g Grid) InFrame(p Position) bool {
	max := g.Size * g.BlockSize
	return p.X >= 0 && p.X <= max && p.Y >= 0 && p.Y <= max
}

// Aligned reports whether p sits exactly on a cell corner
func (g Grid) Aligned(p Position) bool {
	return p.X%g.BlockSize == 0 && p.Y%g.BlockSize == 0
}

// Cell converts a pixel position to column/row indices
func (g Grid) Cell(p Position) (col, row int) {
	return floorDiv(p.X, g.BlockSize), floorDiv(p.Y, g.BlockSize)
}

// At converts column/row indices to the pixel position of that cell
func (g Grid) At(col, row int) Position {
	return Position{X: col * g.BlockSize, Y: row * g.BlockSize}
}

// Snap rounds p down to the containing cell corner
func (g Grid) Snap(p Position) Position {
	col, row := g.Cell(p)
	return g.At(col, row)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
