package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Level is the immutable authored layout of one puzzle
type Level struct {
	Name        string         `json:"name,omitempty"`
	PlayerStart Position       `json:"playerStart"`
	KeyStart    Position       `json:"keyStart"`
	DoorStart   Position       `json:"doorStart"`
	Blocks      []BlockSpec    `json:"blocks"`
	Teleports   []TeleportPair `json:"teleports,omitempty"`
}

// BlockSpec is one authored block: [x, y, w, h, movable]. The level editor
// writes the four-element form, in which case the block is static.
type BlockSpec struct {
	X       int
	Y       int
	W       int
	H       int
	Movable bool
}

// Pos returns the block's top-left corner
func (b BlockSpec) Pos() Position {
	return Position{X: b.X, Y: b.Y}
}

// LevelSet is an ordered sequence of levels played one after the other
type LevelSet struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	GridSize    int     `json:"grid_size,omitempty"`
	BlockSize   int     `json:"block_size,omitempty"`
	Levels      []Level `json:"levels"`
}

// Grid returns the level set's grid, falling back to def for unset fields
func (s *LevelSet) Grid(def Grid) Grid {
	g := def
	if s.GridSize > 0 {
		g.Size = s.GridSize
	}
	if s.BlockSize > 0 {
		g.BlockSize = s.BlockSize
	}
	return g
}

// rawLevel accepts both the camelCase keys and the snake_case keys written by
// the level editor
type rawLevel struct {
	Name        string         `json:"name"`
	PlayerStart *[2]int        `json:"playerStart"`
	PlayerSnake *[2]int        `json:"player_start"`
	KeyStart    *[2]int        `json:"keyStart"`
	KeySnake    *[2]int        `json:"key_start"`
	DoorStart   *[2]int        `json:"doorStart"`
	DoorSnake   *[2]int        `json:"door_start"`
	Blocks      *[]BlockSpec   `json:"blocks"`
	Teleports   []TeleportPair `json:"teleports"`
}

func pick(a, b *[2]int) *[2]int {
	if a != nil {
		return a
	}
	return b
}

// UnmarshalJSON decodes a level record. Missing entities or a missing block
// list are reported as ErrInvalidLevel.
func (l *Level) UnmarshalJSON(data []byte) error {
	var raw rawLevel
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	required := []struct {
		name string
		val  *[2]int
		dst  *Position
	}{
		{"playerStart", pick(raw.PlayerStart, raw.PlayerSnake), &l.PlayerStart},
		{"keyStart", pick(raw.KeyStart, raw.KeySnake), &l.KeyStart},
		{"doorStart", pick(raw.DoorStart, raw.DoorSnake), &l.DoorStart},
	}
	for _, r := range required {
		if r.val == nil {
			return fmt.Errorf("%w: missing %s", ErrInvalidLevel, r.name)
		}
		*r.dst = Position{X: r.val[0], Y: r.val[1]}
	}
	if raw.Blocks == nil {
		return fmt.Errorf("%w: missing blocks", ErrInvalidLevel)
	}

	l.Name = raw.Name
	l.Blocks = *raw.Blocks
	l.Teleports = raw.Teleports
	return nil
}

// MarshalJSON writes the camelCase level format
func (l Level) MarshalJSON() ([]byte, error) {
	out := struct {
		Name        string         `json:"name,omitempty"`
		PlayerStart [2]int         `json:"playerStart"`
		KeyStart    [2]int         `json:"keyStart"`
		DoorStart   [2]int         `json:"doorStart"`
		Blocks      []BlockSpec    `json:"blocks"`
		Teleports   []TeleportPair `json:"teleports"`
	}{
		Name:        l.Name,
		PlayerStart: [2]int{l.PlayerStart.X, l.PlayerStart.Y},
		KeyStart:    [2]int{l.KeyStart.X, l.KeyStart.Y},
		DoorStart:   [2]int{l.DoorStart.X, l.DoorStart.Y},
		Blocks:      l.Blocks,
		Teleports:   l.Teleports,
	}
	if out.Blocks == nil {
		out.Blocks = []BlockSpec{}
	}
	if out.Teleports == nil {
		out.Teleports = []TeleportPair{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes [x, y, w, h] or [x, y, w, h, movable]
func (b *BlockSpec) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("block must be an array: %w", err)
	}
	if len(parts) != 4 && len(parts) != 5 {
		return fmt.Errorf("%w: block must have 4 or 5 elements, got %d", ErrInvalidLevel, len(parts))
	}
	dims := []*int{&b.X, &b.Y, &b.W, &b.H}
	for i, dst := range dims {
		if err := json.Unmarshal(parts[i], dst); err != nil {
			return fmt.Errorf("block element %d: %w", i, err)
		}
	}
	b.Movable = false
	if len(parts) == 5 {
		if err := json.Unmarshal(parts[4], &b.Movable); err != nil {
			// the editor sometimes writes 0/1
			var n int
			if json.Unmarshal(parts[4], &n) != nil {
				return fmt.Errorf("block movable flag: %w", err)
			}
			b.Movable = n != 0
		}
	}
	return nil
}

// MarshalJSON writes the five-element block form
func (b BlockSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{b.X, b.Y, b.W, b.H, b.Movable})
}

// UnmarshalJSON decodes [[x1, y1], [x2, y2]]
func (t *TeleportPair) UnmarshalJSON(data []byte) error {
	var pads [][2]int
	if err := json.Unmarshal(data, &pads); err != nil {
		return fmt.Errorf("teleport must be a pair of [x, y] pads: %w", err)
	}
	if len(pads) != 2 {
		return fmt.Errorf("%w: teleport must have exactly 2 pads, got %d", ErrInvalidLevel, len(pads))
	}
	t.A = Position{X: pads[0][0], Y: pads[0][1]}
	t.B = Position{X: pads[1][0], Y: pads[1][1]}
	return nil
}

// MarshalJSON writes [[x1, y1], [x2, y2]]
func (t TeleportPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2][2]int{{t.A.X, t.A.Y}, {t.B.X, t.B.Y}})
}

// ParseLevelSet decodes a level set. A bare JSON array of level records, as
// written by the level editor, is accepted as an unnamed set.
func ParseLevelSet(data []byte) (*LevelSet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var levels []Level
		if err := json.Unmarshal(trimmed, &levels); err != nil {
			return nil, err
		}
		return &LevelSet{Levels: levels}, nil
	}
	var set LevelSet
	if err := json.Unmarshal(trimmed, &set); err != nil {
		return nil, err
	}
	return &set, nil
}
