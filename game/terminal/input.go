package terminal

import (
	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
)

// Action represents a player-requested game action
type Action uint8

const (
	ActionNone Action = iota
	ActionUp
	ActionDown
	ActionLeft
	ActionRight
	ActionUndo
	ActionReset
	ActionStart
	ActionContinue
	ActionChallenge
	ActionSelectLevel
	ActionQuit
	ActionAcknowledge
	ActionExit
)

// keyToAction maps a key event to an action. Keys mean different things on
// each screen; level is set for ActionSelectLevel only.
func keyToAction(state engine.SessionState, ev *tcell.EventKey) (action Action, level int) {
	if ev.Key() == tcell.KeyCtrlC {
		return ActionExit, 0
	}

	switch state {
	case engine.StateInProgress:
		switch ev.Key() {
		case tcell.KeyUp:
			return ActionUp, 0
		case tcell.KeyDown:
			return ActionDown, 0
		case tcell.KeyLeft:
			return ActionLeft, 0
		case tcell.KeyRight:
			return ActionRight, 0
		case tcell.KeyEscape:
			return ActionQuit, 0
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			return ActionUndo, 0
		}
		switch ev.Rune() {
		case 'w', 'W':
			return ActionUp, 0
		case 's', 'S':
			return ActionDown, 0
		case 'a', 'A':
			return ActionLeft, 0
		case 'd', 'D':
			return ActionRight, 0
		case 'z', 'Z', 'u', 'U':
			return ActionUndo, 0
		case 'r', 'R':
			return ActionReset, 0
		case 'q', 'Q':
			return ActionQuit, 0
		}

	case engine.StateNotStarted:
		switch ev.Key() {
		case tcell.KeyEnter:
			return ActionStart, 0
		case tcell.KeyEscape:
			return ActionExit, 0
		}
		switch ev.Rune() {
		case 's', 'S', ' ':
			return ActionStart, 0
		case 'c', 'C':
			return ActionContinue, 0
		case 'l', 'L':
			return ActionChallenge, 0
		case 'q', 'Q':
			return ActionExit, 0
		}

	case engine.StateChallengeMenu:
		if ev.Key() == tcell.KeyEscape {
			return ActionQuit, 0
		}
		r := ev.Rune()
		switch {
		case r >= '1' && r <= '9':
			return ActionSelectLevel, int(r - '1')
		case r == 'q' || r == 'Q':
			return ActionQuit, 0
		}

	case engine.StateEnded, engine.StateWon:
		switch ev.Key() {
		case tcell.KeyEnter:
			return ActionAcknowledge, 0
		case tcell.KeyEscape:
			return ActionExit, 0
		}
		switch ev.Rune() {
		case ' ':
			return ActionAcknowledge, 0
		case 'q', 'Q':
			return ActionExit, 0
		}
	}
	return ActionNone, 0
}

// direction converts a movement action to an engine direction
func direction(a Action) (engine.Direction, bool) {
	switch a {
	case ActionUp:
		return engine.Up, true
	case ActionDown:
		return engine.Down, true
	case ActionLeft:
		return engine.Left, true
	case ActionRight:
		return engine.Right, true
	}
	return "", false
}
