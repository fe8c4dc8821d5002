package engine

// ResolveArrival applies the teleport rule to an entity that has just arrived
// on its current cell by moving in dir. It is a no-op when the cell is not a
// pad. A relocation that cannot complete leaves e on the pad.
func (b *Board) ResolveArrival(e *Entity, dir Direction) RelocationOutcome {
	d := b.Grid.Delta(dir)
	if e == nil || d == (Position{}) {
		return RelocationOutcome{}
	}
	tx := newMoveTx(b)
	mover := tx.board.EntityByID(e.ID)
	if mover == nil {
		return RelocationOutcome{}
	}
	out := tx.resolveArrival(mover, d)
	if out.Teleported {
		b.adopt(tx.board)
	}
	return out
}

// resolveArrival relocates e from the pad it stands on to one cell past the
// sibling pad. Pushes needed to clear the destination are staged on a nested
// transaction so a failed relocation leaves no trace.
func (tx *moveTx) resolveArrival(e *Entity, d Position) RelocationOutcome {
	out := RelocationOutcome{From: e.Pos, To: e.Pos}
	pair, ok := tx.board.PadAt(e.Pos)
	if !ok {
		return out
	}
	out.OnPad = true

	visit := padVisit{id: e.ID, pad: e.Pos}
	if !e.Has(CapTeleportTarget) || tx.visited[visit] {
		return out
	}
	sibling, _ := pair.Sibling(e.Pos)

	nested := tx.fork()
	nested.visited[visit] = true
	if !nested.relocate(nested.board.EntityByID(e.ID), sibling.Add(d), d) {
		return out
	}
	tx.merge(nested)

	out.Teleported = true
	out.To = e.Pos
	return out
}

func (tx *moveTx) relocate(e *Entity, dest, d Position) bool {
	if !tx.board.enterable(e, dest) {
		return false
	}
	pad := e.Pos
	if occ := tx.board.occupantAt(dest, e); occ != nil && !keyMeetsDoor(e, occ) {
		if !occ.Movable() || tx.push(occ, d) != ReasonNone {
			return false
		}
		if e.Pos != pad || tx.board.occupantAt(dest, e) != nil {
			return false
		}
	}

	// the hop is folded into the step that reached the pad, so a single
	// undo returns the entity to where it stood before the move
	e.extend(dest.Sub(pad))
	tx.teleported = append(tx.teleported, e.ID)
	tx.settle(e, d)
	return true
}
