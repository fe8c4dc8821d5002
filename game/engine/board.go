package engine

import (
	"fmt"
	"sort"
)

// TeleportPair links two pads. Arriving on one pad relocates the arriving
// entity one step past the other pad.
type TeleportPair struct {
	A Position `json:"a"`
	B Position `json:"b"`
}

// Sibling returns the pad paired with p
func (t TeleportPair) Sibling(p Position) (Position, bool) {
	switch p {
	case t.A:
		return t.B, true
	case t.B:
		return t.A, true
	}
	return Position{}, false
}

// Board holds every entity of the level currently being played
type Board struct {
	Grid      Grid
	Player    *Entity
	Key       *Entity
	Door      *Entity
	Blocks    []*Entity
	Teleports []TeleportPair
}

// NewBoard builds a board from a validated level
func NewBoard(grid Grid, level *Level) *Board {
	b := &Board{
		Grid:   grid,
		Player: NewPlayer(level.PlayerStart),
		Key:    NewKey(level.KeyStart),
		Door:   NewDoor(level.DoorStart),
	}
	for i, spec := range level.Blocks {
		b.Blocks = append(b.Blocks, NewBlock(i, spec.Pos(), spec.Movable))
	}
	b.Teleports = append(b.Teleports, level.Teleports...)
	return b
}

// Entities returns every entity in a stable order: player, key, door, blocks
func (b *Board) Entities() []*Entity {
	out := make([]*Entity, 0, 3+len(b.Blocks))
	out = append(out, b.Player, b.Key, b.Door)
	return append(out, b.Blocks...)
}

// EntityByID finds an entity by its identifier
func (b *Board) EntityByID(id string) *Entity {
	for _, e := range b.Entities() {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// OccupantAt returns the occupying entity at p, or nil
func (b *Board) OccupantAt(p Position) *Entity {
	return b.occupantAt(p, nil)
}

func (b *Board) occupantAt(p Position, except *Entity) *Entity {
	for _, e := range b.Entities() {
		if e != except && e.Occupies() && e.Pos == p {
			return e
		}
	}
	return nil
}

// PadAt returns the pair owning the pad at p
func (b *Board) PadAt(p Position) (TeleportPair, bool) {
	for _, t := range b.Teleports {
		if t.A == p || t.B == p {
			return t, true
		}
	}
	return TeleportPair{}, false
}

// enterable reports whether e may stand on p, ignoring occupants. The open
// door cell admits only the player; a closed door cell always admits the key.
func (b *Board) enterable(e *Entity, p Position) bool {
	if p == b.Door.Pos {
		if b.Door.IsOpen() {
			return e.Kind == KindPlayer
		}
		if e.Kind == KindKey {
			return true
		}
	}
	return b.Grid.InBounds(p)
}

// Clone returns a deep copy of the board
func (b *Board) Clone() *Board {
	c := &Board{
		Grid:   b.Grid,
		Player: b.Player.clone(),
		Key:    b.Key.clone(),
		Door:   b.Door.clone(),
	}
	c.Blocks = make([]*Entity, len(b.Blocks))
	for i, blk := range b.Blocks {
		c.Blocks[i] = blk.clone()
	}
	c.Teleports = b.Teleports
	return c
}

// adopt copies every entity of src into b in place, so pointers held by
// callers keep observing the committed state
func (b *Board) adopt(src *Board) {
	dst := b.Entities()
	for i, e := range src.Entities() {
		*dst[i] = *e
	}
}

// Reset restores every entity to its authored start and clears all history
func (b *Board) Reset() {
	for _, e := range b.Entities() {
		e.reset()
	}
}

// Snapshot returns the rendering projection of every entity
func (b *Board) Snapshot() []EntityView {
	entities := b.Entities()
	out := make([]EntityView, len(entities))
	for i, e := range entities {
		out[i] = e.View()
	}
	return out
}

// CheckInvariants verifies the board after a committed operation: no shared
// cells, every position in bounds (open door and deleted key excepted), the
// door never moved after opening and history sums match displacements.
func (b *Board) CheckInvariants() error {
	seen := make(map[Position]string)
	for _, e := range b.Entities() {
		switch {
		case e.Deleted:
			if e.Pos != SentinelPosition {
				return fmt.Errorf("deleted %s not parked at sentinel: %+v", e.ID, e.Pos)
			}
			continue
		case e.IsOpen():
			if !b.Grid.InFrame(e.Pos) {
				return fmt.Errorf("open %s outside frame: %+v", e.ID, e.Pos)
			}
		case e.Kind == KindDoor:
			if !b.Grid.InFrame(e.Pos) {
				return fmt.Errorf("%s outside frame: %+v", e.ID, e.Pos)
			}
		default:
			if !b.Grid.InBounds(e.Pos) {
				return fmt.Errorf("%s out of bounds: %+v", e.ID, e.Pos)
			}
		}
		if got := e.Start.Add(e.Displacement()); got != e.Pos {
			return fmt.Errorf("%s history sums to %+v but position is %+v", e.ID, got, e.Pos)
		}
		if !e.Occupies() {
			continue
		}
		if other, ok := seen[e.Pos]; ok {
			return fmt.Errorf("%s and %s share cell %+v", other, e.ID, e.Pos)
		}
		seen[e.Pos] = e.ID
	}
	return nil
}

// Rows renders the board as text rows, one rune per cell including the wall
// ring. Used by the terminal frontend, the analyzer and MCP state output.
func (b *Board) Rows() []string {
	n := b.Grid.Size + 1
	cells := make([][]rune, n)
	for y := range cells {
		cells[y] = make([]rune, n)
		for x := range cells[y] {
			if x == 0 || y == 0 || x == n-1 || y == n-1 {
				cells[y][x] = '#'
			} else {
				cells[y][x] = '.'
			}
		}
	}
	put := func(p Position, r rune) {
		col, row := b.Grid.Cell(p)
		if row >= 0 && row < n && col >= 0 && col < n {
			cells[row][col] = r
		}
	}
	for _, t := range b.Teleports {
		put(t.A, 'O')
		put(t.B, 'O')
	}
	for _, blk := range b.Blocks {
		if blk.Static {
			put(blk.Pos, 'X')
		} else {
			put(blk.Pos, 'B')
		}
	}
	if b.Door.IsOpen() {
		put(b.Door.Pos, 'E')
	} else {
		put(b.Door.Pos, 'D')
	}
	if !b.Key.Deleted {
		put(b.Key.Pos, 'K')
	}
	put(b.Player.Pos, 'P')

	out := make([]string, n)
	for y, row := range cells {
		out[y] = string(row)
	}
	return out
}

func sortedIDs(ids []string) []string {
	sort.Strings(ids)
	return ids
}
