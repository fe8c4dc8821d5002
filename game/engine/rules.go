package engine

// keyMeetsDoor reports whether mover is the key entering the closed door
func keyMeetsDoor(mover, occupant *Entity) bool {
	return mover.Kind == KindKey && occupant.Kind == KindDoor && !occupant.IsOpen()
}

// unlock opens the door and deletes the key when they share a cell. The
// transition is one-way until the level is reset.
func (b *Board) unlock() bool {
	if b.Key.Deleted || b.Door.IsOpen() || b.Key.Pos != b.Door.Pos {
		return false
	}
	b.Door.Door = DoorOpen
	b.Key.remove()
	return true
}

// LevelComplete reports whether the player stands on the open door
func (b *Board) LevelComplete() bool {
	return b.Door.IsOpen() && b.Player.Pos == b.Door.Pos
}
