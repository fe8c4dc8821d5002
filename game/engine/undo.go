package engine

import "github.com/zyedidia/generic/mapset"

// Undo reverts the last recorded step of every movable entity at once. The
// hypothetical configuration is validated as a whole first; if any two
// entities would collide or any entity would leave the grid, nothing changes
// and the offending entities are reported.
//
// A door that has opened and a key that has been consumed are no longer
// movable, so undo never closes the door again.
func (b *Board) Undo() UndoOutcome {
	hypo := make(map[*Entity]Position)
	var staged []*Entity
	for _, e := range b.Entities() {
		if !e.Occupies() {
			continue
		}
		hypo[e] = e.Pos
		if last, ok := e.LastMove(); ok && e.Movable() {
			hypo[e] = e.Pos.Sub(last)
			staged = append(staged, e)
		}
	}
	if len(staged) == 0 {
		return UndoOutcome{Reason: ReasonNothingToUndo}
	}

	blamed := mapset.New[string]()
	reason := ReasonNone

	cells := make(map[Position][]*Entity)
	for _, e := range b.Entities() {
		if p, ok := hypo[e]; ok {
			cells[p] = append(cells[p], e)
		}
	}
	for _, es := range cells {
		if len(es) < 2 {
			continue
		}
		for _, e := range es {
			blamed.Put(e.ID)
		}
		reason = ReasonConflict
	}

	for _, e := range staged {
		if !b.enterable(e, hypo[e]) {
			blamed.Put(e.ID)
			if reason == ReasonNone {
				reason = ReasonOutOfBounds
			}
		}
	}

	if blamed.Size() > 0 {
		ids := make([]string, 0, blamed.Size())
		blamed.Each(func(id string) {
			ids = append(ids, id)
		})
		return UndoOutcome{Reason: reason, Blamed: sortedIDs(ids)}
	}

	reverted := make([]string, 0, len(staged))
	for _, e := range staged {
		e.pop()
		reverted = append(reverted, e.ID)
	}
	return UndoOutcome{Committed: true, Reverted: reverted}
}

// CanUndo reports whether Undo would commit
func (b *Board) CanUndo() bool {
	return b.Clone().Undo().Committed
}
