package engine

import "github.com/zyedidia/generic/mapset"

// moveTx stages a move on a private copy of the board. Nothing touches the
// live board until the whole chain has resolved.
type moveTx struct {
	board      *Board
	blamed     mapset.Set[string]
	moved      []string
	teleported []string
	doorOpened bool
	visited    map[padVisit]bool
}

type padVisit struct {
	id  string
	pad Position
}

func newMoveTx(b *Board) *moveTx {
	return &moveTx{
		board:   b.Clone(),
		blamed:  mapset.New[string](),
		visited: make(map[padVisit]bool),
	}
}

// fork stages a nested attempt on top of tx
func (tx *moveTx) fork() *moveTx {
	n := newMoveTx(tx.board)
	for k := range tx.visited {
		n.visited[k] = true
	}
	return n
}

// merge commits a successful nested attempt into tx
func (tx *moveTx) merge(n *moveTx) {
	tx.board.adopt(n.board)
	tx.moved = append(tx.moved, n.moved...)
	tx.teleported = append(tx.teleported, n.teleported...)
	tx.doorOpened = tx.doorOpened || n.doorOpened
	for k := range n.visited {
		tx.visited[k] = true
	}
}

func (tx *moveTx) blame(es ...*Entity) {
	for _, e := range es {
		tx.blamed.Put(e.ID)
	}
}

func (tx *moveTx) blamedIDs() []string {
	ids := make([]string, 0, tx.blamed.Size())
	tx.blamed.Each(func(id string) {
		ids = append(ids, id)
	})
	return sortedIDs(ids)
}

// AttemptMove displaces e by one cell in dir, pushing whatever occupies the
// destination. The move either commits in full or leaves the board untouched.
func (b *Board) AttemptMove(e *Entity, dir Direction) MoveOutcome {
	d := b.Grid.Delta(dir)
	if e == nil || d == (Position{}) {
		return MoveOutcome{Reason: ReasonInvalidAction}
	}

	tx := newMoveTx(b)
	mover := tx.board.EntityByID(e.ID)
	if mover == nil {
		return MoveOutcome{Reason: ReasonInvalidAction}
	}

	if reason := tx.push(mover, d); reason != ReasonNone {
		return MoveOutcome{Reason: reason, Blamed: tx.blamedIDs()}
	}

	b.adopt(tx.board)
	return MoveOutcome{
		Committed:  true,
		Moved:      tx.moved,
		Teleported: tx.teleported,
		DoorOpened: tx.doorOpened,
	}
}

// push is the recursive chain push. The deepest occupant commits first, then
// each entity up the chain records its own step.
func (tx *moveTx) push(e *Entity, d Position) RejectReason {
	if !e.Movable() {
		tx.blame(e)
		return ReasonBlocked
	}

	origin := e.Pos
	target := origin.Add(d)
	if !tx.board.enterable(e, target) {
		tx.blame(e)
		return ReasonOutOfBounds
	}

	if occ := tx.board.occupantAt(target, e); occ != nil && !keyMeetsDoor(e, occ) {
		if !occ.Movable() {
			tx.blame(e, occ)
			return ReasonBlocked
		}
		if tx.push(occ, d) != ReasonNone {
			tx.blame(e)
			return ReasonBlocked
		}
		// a teleport further down the chain can land back on our path
		if e.Pos != origin || tx.board.occupantAt(target, e) != nil {
			tx.blame(e)
			return ReasonBlocked
		}
	}

	e.record(d)
	tx.moved = append(tx.moved, e.ID)
	tx.settle(e, d)
	return ReasonNone
}

// settle runs the post-move rules for an entity that just arrived
func (tx *moveTx) settle(e *Entity, d Position) {
	if tx.board.unlock() {
		tx.doorOpened = true
		return
	}
	tx.resolveArrival(e, d)
}

// CanMove reports whether AttemptMove would commit, without mutating b
func (b *Board) CanMove(e *Entity, dir Direction) bool {
	if e == nil {
		return false
	}
	c := b.Clone()
	return c.AttemptMove(c.EntityByID(e.ID), dir).Committed
}
