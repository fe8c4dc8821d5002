package engine

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when an event is not accepted in the
// current session state
var ErrInvalidTransition = errors.New("invalid state transition")

// Engine provides the main interface for game operations
type Engine interface {
	// Session state machine
	State() SessionState
	Start() error
	Continue(p Progress) error
	OpenChallengeMenu() error
	SelectChallenge(index int) error
	Quit() error
	Acknowledge() error

	// Play
	Move(dir Direction) MoveOutcome
	Undo() UndoOutcome
	ResetLevel() error

	// Observation
	GetState() *GameState
	Board() *Board
	LevelSet() *LevelSet
	GetActionHistory() []ActionEntry

	// Persistence
	Progress() Progress
	RestoreProgress(p Progress) error
}

// GameEngine implements the Engine interface. It is a single-writer value:
// callers serialize access.
type GameEngine struct {
	set   *LevelSet
	grid  Grid
	opts  Options
	board *Board

	state      SessionState
	mode       Mode
	levelIndex int
	counters   Counters
	message    string
	summary    *WinSummary

	// elapsed accumulates play time up to startedAt; startedAt is zero while
	// the clock is stopped
	elapsed   time.Duration
	startedAt time.Time

	history []ActionEntry
}

var _ Engine = (*GameEngine)(nil)

// NewEngine creates a new game engine for a level set
func NewEngine(set *LevelSet, opts Options) (*GameEngine, error) {
	opts = opts.withDefaults()
	if err := ValidateLevelSet(set, opts.Grid()); err != nil {
		return nil, err
	}

	e := &GameEngine{
		set:   set,
		grid:  set.Grid(opts.Grid()),
		opts:  opts,
		state: StateNotStarted,
		mode:  ModeNormal,
	}
	e.loadLevel(0)
	e.message = "Press start to play"
	return e, nil
}

// State returns the session state
func (e *GameEngine) State() SessionState {
	return e.state
}

// Board returns the live board of the current level
func (e *GameEngine) Board() *Board {
	return e.board
}

// LevelSet returns the level set being played
func (e *GameEngine) LevelSet() *LevelSet {
	return e.set
}

// LevelIndex returns the zero-based index of the current level
func (e *GameEngine) LevelIndex() int {
	return e.levelIndex
}

// Counters returns the aggregate counters of the current session
func (e *GameEngine) Counters() Counters {
	return e.counters
}

// Elapsed returns the play time of the current session
func (e *GameEngine) Elapsed() time.Duration {
	if e.startedAt.IsZero() {
		return e.elapsed
	}
	return e.elapsed + e.opts.Clock().Sub(e.startedAt)
}

func (e *GameEngine) loadLevel(index int) {
	e.levelIndex = index
	e.board = NewBoard(e.grid, &e.set.Levels[index])
}

func (e *GameEngine) transition(from []SessionState, event string) error {
	for _, s := range from {
		if e.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, event, e.state)
}

func (e *GameEngine) startClock() {
	e.startedAt = e.opts.Clock()
}

func (e *GameEngine) stopClock() {
	e.elapsed = e.Elapsed()
	e.startedAt = time.Time{}
}

// Start begins a normal run from the first level
func (e *GameEngine) Start() error {
	if err := e.transition([]SessionState{StateNotStarted}, "start"); err != nil {
		return err
	}
	e.resetSession()
	e.state = StateInProgress
	e.mode = ModeNormal
	e.startClock()
	e.message = e.levelMessage()
	e.autosave()
	return nil
}

// Continue resumes a normal run from saved progress
func (e *GameEngine) Continue(p Progress) error {
	if err := e.transition([]SessionState{StateNotStarted}, "continue"); err != nil {
		return err
	}
	p.State = StateInProgress
	p.Mode = ModeNormal
	if err := e.RestoreProgress(p); err != nil {
		return err
	}
	e.autosave()
	return nil
}

// OpenChallengeMenu shows the level picker. A run in progress is abandoned.
func (e *GameEngine) OpenChallengeMenu() error {
	if err := e.transition([]SessionState{StateNotStarted, StateInProgress}, "open the challenge menu"); err != nil {
		return err
	}
	e.stopClock()
	e.state = StateChallengeMenu
	e.message = fmt.Sprintf("Select a level (1-%d)", len(e.set.Levels))
	return nil
}

// SelectChallenge plays a single level; finishing it wins the session
func (e *GameEngine) SelectChallenge(index int) error {
	if err := e.transition([]SessionState{StateChallengeMenu}, "select a challenge"); err != nil {
		return err
	}
	if index < 0 || index >= len(e.set.Levels) {
		return fmt.Errorf("challenge level %d out of range [0, %d)", index, len(e.set.Levels))
	}
	e.resetSession()
	e.loadLevel(index)
	e.state = StateInProgress
	e.mode = ModeChallenge
	e.startClock()
	e.message = fmt.Sprintf("Challenge: level %d", index+1)
	e.autosave()
	return nil
}

// Quit leaves the current run. From the challenge menu it returns to the
// main menu directly.
func (e *GameEngine) Quit() error {
	if err := e.transition([]SessionState{StateInProgress, StateChallengeMenu}, "quit"); err != nil {
		return err
	}
	if e.state == StateChallengeMenu {
		e.resetSession()
		e.state = StateNotStarted
		e.message = "Press start to play"
		return nil
	}
	e.stopClock()
	e.state = StateEnded
	e.message = "Game ended"
	e.autosave()
	return nil
}

// Acknowledge dismisses the ended or won screen and fully resets the session
func (e *GameEngine) Acknowledge() error {
	if err := e.transition([]SessionState{StateEnded, StateWon}, "acknowledge"); err != nil {
		return err
	}
	e.resetSession()
	e.state = StateNotStarted
	e.message = "Press start to play"
	e.autosave()
	return nil
}

// resetSession returns to the first level with zeroed counters and clock
func (e *GameEngine) resetSession() {
	e.loadLevel(0)
	e.mode = ModeNormal
	e.counters = Counters{}
	e.elapsed = 0
	e.startedAt = time.Time{}
	e.summary = nil
}

// Move moves the player one cell. Finishing a level advances to the next one
// in normal mode, or wins the session after the last level or in challenge
// mode.
func (e *GameEngine) Move(dir Direction) MoveOutcome {
	if e.state != StateInProgress {
		return MoveOutcome{Reason: ReasonNotInProgress}
	}

	from := e.board.Player.Pos
	level := e.levelIndex
	e.counters.Moves++

	out := e.board.AttemptMove(e.board.Player, dir)
	e.record(string(dir), from, e.board.Player.Pos, level, out.Committed, out.Reason)

	switch {
	case !out.Committed:
		e.message = rejectMessage(out.Reason)
	case e.board.LevelComplete():
		out.LevelComplete = true
		out.Won = e.completeLevel()
	case out.DoorOpened:
		e.message = "The door is open!"
	default:
		e.message = e.levelMessage()
	}
	e.autosave()
	return out
}

func (e *GameEngine) completeLevel() bool {
	if e.mode == ModeChallenge || e.levelIndex+1 >= len(e.set.Levels) {
		e.win()
		return true
	}
	e.loadLevel(e.levelIndex + 1)
	e.message = fmt.Sprintf("Level complete! %s", e.levelMessage())
	return false
}

func (e *GameEngine) win() {
	e.stopClock()
	e.state = StateWon
	e.summary = &WinSummary{
		Counters: e.counters,
		Elapsed:  e.elapsed.Seconds(),
		Mode:     e.mode,
	}
	e.message = fmt.Sprintf("You won! %d moves, %d undos, %d resets in %.1fs",
		e.counters.Moves, e.counters.Undos, e.counters.Resets, e.elapsed.Seconds())
}

// Undo reverts the last step of every entity. The door and key are not
// re-evaluated afterwards.
func (e *GameEngine) Undo() UndoOutcome {
	if e.state != StateInProgress {
		return UndoOutcome{Reason: ReasonNotInProgress}
	}

	from := e.board.Player.Pos
	out := e.board.Undo()
	if out.Committed {
		e.counters.Undos++
		e.message = e.levelMessage()
	} else {
		e.message = rejectMessage(out.Reason)
	}
	e.record("undo", from, e.board.Player.Pos, e.levelIndex, out.Committed, out.Reason)
	e.autosave()
	return out
}

// ResetLevel restores the current level to its authored layout
func (e *GameEngine) ResetLevel() error {
	if err := e.transition([]SessionState{StateInProgress}, "reset"); err != nil {
		return err
	}
	from := e.board.Player.Pos
	e.board.Reset()
	e.counters.Resets++
	e.message = e.levelMessage()
	e.record("reset", from, e.board.Player.Pos, e.levelIndex, true, ReasonNone)
	e.autosave()
	return nil
}

func (e *GameEngine) record(action string, from, to Position, level int, ok bool, reason RejectReason) {
	e.history = append(e.history, ActionEntry{
		Action:       action,
		FromPosition: from,
		ToPosition:   to,
		LevelIndex:   level,
		Timestamp:    e.opts.Clock().Unix(),
		Success:      ok,
		Reason:       reason,
		ActionNumber: len(e.history) + 1,
	})
}

// GetActionHistory returns the cumulative action log of the session
func (e *GameEngine) GetActionHistory() []ActionEntry {
	return e.history
}

// GetState returns a snapshot of the observable game state
func (e *GameEngine) GetState() *GameState {
	teleports := make([][2]Position, len(e.board.Teleports))
	for i, t := range e.board.Teleports {
		teleports[i] = [2]Position{t.A, t.B}
	}
	var summary *WinSummary
	if e.summary != nil {
		s := *e.summary
		summary = &s
	}
	return &GameState{
		State:       e.state,
		Mode:        e.mode,
		LevelIndex:  e.levelIndex,
		LevelCount:  len(e.set.Levels),
		LevelSet:    e.set.Name,
		GridSize:    e.grid.Size,
		BlockSize:   e.grid.BlockSize,
		Entities:    e.board.Snapshot(),
		Teleports:   teleports,
		DoorOpen:    e.board.Door.IsOpen(),
		Counters:    e.counters,
		Elapsed:     e.Elapsed().Seconds(),
		Message:     e.message,
		TotalAction: len(e.history),
		Summary:     summary,
		Rows:        e.board.Rows(),
	}
}

func (e *GameEngine) levelMessage() string {
	return fmt.Sprintf("Level %d/%d", e.levelIndex+1, len(e.set.Levels))
}

func rejectMessage(r RejectReason) string {
	switch r {
	case ReasonOutOfBounds:
		return "Can't move outside the grid"
	case ReasonBlocked:
		return "Blocked!"
	case ReasonNothingToUndo:
		return "Nothing to undo"
	case ReasonConflict:
		return "Undo would overlap entities"
	}
	return "Not allowed"
}

func (e *GameEngine) autosave() {
	if e.opts.Autosave != nil {
		e.opts.Autosave(e.Progress())
	}
}
