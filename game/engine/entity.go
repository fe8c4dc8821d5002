package engine

import "fmt"

// Entity is a single positioned object on the board. Behaviour is driven by
// the entity's capability set rather than by its concrete kind, so the move
// resolver treats players, keys, doors and blocks through one code path.
type Entity struct {
	ID    string     `json:"id"`
	Kind  EntityKind `json:"kind"`
	Pos   Position   `json:"pos"`
	Start Position   `json:"start"`

	// Static marks an authored immovable block
	Static bool `json:"static,omitempty"`
	// Door is only meaningful for KindDoor
	Door DoorState `json:"door,omitempty"`
	// Deleted is set on a key once it has unlocked the door
	Deleted bool `json:"deleted,omitempty"`

	// History holds one displacement per committed move of this entity.
	// The sum of all entries equals Pos - Start.
	History []Position `json:"history,omitempty"`
}

// NewPlayer creates the player entity at start
func NewPlayer(start Position) *Entity {
	return &Entity{ID: string(KindPlayer), Kind: KindPlayer, Pos: start, Start: start}
}

// NewKey creates the key entity at start
func NewKey(start Position) *Entity {
	return &Entity{ID: string(KindKey), Kind: KindKey, Pos: start, Start: start}
}

// NewDoor creates a closed door at start
func NewDoor(start Position) *Entity {
	return &Entity{ID: string(KindDoor), Kind: KindDoor, Pos: start, Start: start, Door: DoorClosed}
}

// NewBlock creates the index-th block of a level
func NewBlock(index int, start Position, movable bool) *Entity {
	return &Entity{
		ID:     fmt.Sprintf("block-%d", index),
		Kind:   KindBlock,
		Pos:    start,
		Start:  start,
		Static: !movable,
	}
}

// Capabilities returns the entity's current capability set. A door loses
// CapMovable and gains CapOpenableExit when it opens; a deleted key has none.
func (e *Entity) Capabilities() Capability {
	switch e.Kind {
	case KindPlayer:
		return CapMovable | CapTeleportTarget
	case KindKey:
		if e.Deleted {
			return 0
		}
		return CapMovable | CapTeleportTarget | CapDeletable
	case KindDoor:
		if e.Door == DoorOpen {
			return CapOpenableExit
		}
		return CapMovable | CapTeleportTarget
	case KindBlock:
		if e.Static {
			return 0
		}
		return CapMovable | CapTeleportTarget
	}
	return 0
}

// Has reports whether every capability in c is present
func (e *Entity) Has(c Capability) bool {
	return e.Capabilities()&c == c
}

// Movable reports whether the entity can currently be displaced
func (e *Entity) Movable() bool {
	return e.Has(CapMovable)
}

// IsOpen reports whether e is an opened door
func (e *Entity) IsOpen() bool {
	return e.Kind == KindDoor && e.Door == DoorOpen
}

// Occupies reports whether the entity takes part in collision checks. An open
// door is a walkable exit and a deleted key is inert.
func (e *Entity) Occupies() bool {
	return !e.Deleted && !e.IsOpen()
}

// Displacement returns the sum of all recorded history entries
func (e *Entity) Displacement() Position {
	var sum Position
	for _, d := range e.History {
		sum = sum.Add(d)
	}
	return sum
}

// LastMove returns the most recent history entry
func (e *Entity) LastMove() (Position, bool) {
	if len(e.History) == 0 {
		return Position{}, false
	}
	return e.History[len(e.History)-1], true
}

func (e *Entity) record(d Position) {
	e.Pos = e.Pos.Add(d)
	e.History = append(e.History, d)
}

// extend folds an extra displacement into the last history entry
func (e *Entity) extend(d Position) {
	e.Pos = e.Pos.Add(d)
	if n := len(e.History); n > 0 {
		e.History[n-1] = e.History[n-1].Add(d)
		return
	}
	e.History = append(e.History, d)
}

func (e *Entity) pop() {
	n := len(e.History)
	e.Pos = e.Pos.Sub(e.History[n-1])
	e.History = e.History[:n-1]
}

func (e *Entity) remove() {
	e.Deleted = true
	e.Pos = SentinelPosition
	e.History = nil
}

func (e *Entity) reset() {
	e.Pos = e.Start
	e.History = nil
	e.Deleted = false
	if e.Kind == KindDoor {
		e.Door = DoorClosed
	}
}

func (e *Entity) clone() *Entity {
	c := *e
	if e.History != nil {
		c.History = make([]Position, len(e.History))
		copy(c.History, e.History)
	}
	return &c
}

// View returns the rendering projection of the entity
func (e *Entity) View() EntityView {
	return EntityView{
		ID:      e.ID,
		Kind:    e.Kind,
		Pos:     e.Pos,
		Movable: e.Movable(),
		Open:    e.IsOpen(),
		Deleted: e.Deleted,
		Depth:   len(e.History),
	}
}
