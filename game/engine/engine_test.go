package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// each level is solved by three moves to the right
func createTestLevelSet() *LevelSet {
	return &LevelSet{
		Name: "test",
		Levels: []Level{
			{
				Name:        "first",
				PlayerStart: pos(80, 80),
				KeyStart:    pos(160, 80),
				DoorStart:   pos(320, 80),
				Blocks:      []BlockSpec{{X: 80, Y: 720, W: 80, H: 80}},
			},
			{
				Name:        "second",
				PlayerStart: pos(80, 160),
				KeyStart:    pos(160, 160),
				DoorStart:   pos(320, 160),
				Blocks:      []BlockSpec{{X: 720, Y: 720, W: 80, H: 80, Movable: true}},
			},
		},
	}
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T) (*GameEngine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	e, err := NewEngine(createTestLevelSet(), Options{Clock: clock.Now})
	require.NoError(t, err)
	return e, clock
}

func solveLevel(t *testing.T, e *GameEngine) MoveOutcome {
	t.Helper()
	var out MoveOutcome
	for i := 0; i < 3; i++ {
		out = e.Move(Right)
		require.True(t, out.Committed, "move %d: %s", i+1, out.Reason)
	}
	return out
}

func TestNewEngine(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Equal(t, StateNotStarted, e.State())
	assert.Equal(t, 0, e.LevelIndex())
	assert.Equal(t, Counters{}, e.Counters())

	state := e.GetState()
	assert.Equal(t, 2, state.LevelCount)
	assert.Equal(t, DefaultGridSize, state.GridSize)
	assert.Equal(t, DefaultBlockSize, state.BlockSize)
	assert.Len(t, state.Entities, 4)
	assert.Len(t, state.Rows, DefaultGridSize+1)
}

func TestNewEngineRejectsInvalidLevelSet(t *testing.T) {
	set := createTestLevelSet()
	set.Levels[1].Blocks = nil

	_, err := NewEngine(set, Options{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLevel))
}

func TestMoveBeforeStart(t *testing.T) {
	e, _ := newTestEngine(t)

	out := e.Move(Right)
	assert.Equal(t, ReasonNotInProgress, out.Reason)
	assert.Equal(t, ReasonNotInProgress, e.Undo().Reason)
	assert.ErrorIs(t, e.ResetLevel(), ErrInvalidTransition)
	assert.Equal(t, pos(80, 80), e.Board().Player.Pos)
}

func TestNormalRunAdvancesAndWins(t *testing.T) {
	e, clock := newTestEngine(t)
	require.NoError(t, e.Start())
	assert.Equal(t, StateInProgress, e.State())

	out := solveLevel(t, e)
	assert.True(t, out.LevelComplete)
	assert.False(t, out.Won)
	assert.Equal(t, 1, e.LevelIndex())
	assert.Equal(t, pos(80, 160), e.Board().Player.Pos)
	assert.False(t, e.Board().Door.IsOpen())

	clock.Advance(42 * time.Second)
	out = solveLevel(t, e)
	assert.True(t, out.Won)
	assert.Equal(t, StateWon, e.State())

	state := e.GetState()
	require.NotNil(t, state.Summary)
	assert.Equal(t, Counters{Moves: 6}, state.Summary.Counters)
	assert.Equal(t, 42.0, state.Summary.Elapsed)
	assert.Equal(t, ModeNormal, state.Summary.Mode)

	// the clock is stopped once the session is won
	clock.Advance(time.Minute)
	assert.Equal(t, 42*time.Second, e.Elapsed())
}

func TestChallengeModeWinsAfterOneLevel(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.ErrorIs(t, e.SelectChallenge(1), ErrInvalidTransition)
	require.NoError(t, e.OpenChallengeMenu())
	assert.Equal(t, StateChallengeMenu, e.State())
	assert.Error(t, e.SelectChallenge(5))
	require.NoError(t, e.SelectChallenge(1))
	assert.Equal(t, StateInProgress, e.State())
	assert.Equal(t, 1, e.LevelIndex())

	out := solveLevel(t, e)
	assert.True(t, out.Won)
	assert.Equal(t, StateWon, e.State())
	assert.Equal(t, ModeChallenge, e.GetState().Summary.Mode)
}

func TestQuitAndAcknowledge(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Start())
	e.Move(Right)
	require.NoError(t, e.ResetLevel())

	require.NoError(t, e.Quit())
	assert.Equal(t, StateEnded, e.State())
	assert.Equal(t, ReasonNotInProgress, e.Move(Right).Reason)

	require.NoError(t, e.Acknowledge())
	assert.Equal(t, StateNotStarted, e.State())
	assert.Equal(t, Counters{}, e.Counters())
	assert.Equal(t, time.Duration(0), e.Elapsed())
	assert.Equal(t, pos(80, 80), e.Board().Player.Pos)

	assert.ErrorIs(t, e.Acknowledge(), ErrInvalidTransition)
}

func TestQuitFromChallengeMenu(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.OpenChallengeMenu())
	require.NoError(t, e.Quit())
	assert.Equal(t, StateNotStarted, e.State())
}

func TestCountersTrackActions(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Start())

	e.Move(Up) // rejected, still counted
	e.Move(Down)
	require.True(t, e.Undo().Committed)
	e.Undo() // nothing to undo, not counted
	require.NoError(t, e.ResetLevel())

	assert.Equal(t, Counters{Moves: 2, Undos: 1, Resets: 1}, e.Counters())

	history := e.GetActionHistory()
	require.Len(t, history, 5)
	assert.Equal(t, "up", history[0].Action)
	assert.False(t, history[0].Success)
	assert.Equal(t, ReasonOutOfBounds, history[0].Reason)
	assert.Equal(t, "down", history[1].Action)
	assert.Equal(t, pos(80, 160), history[1].ToPosition)
	assert.Equal(t, "undo", history[2].Action)
	assert.True(t, history[2].Success)
	assert.Equal(t, ReasonNothingToUndo, history[3].Reason)
	assert.Equal(t, "reset", history[4].Action)
	assert.Equal(t, 5, history[4].ActionNumber)
}

func TestResetLevelKeepsLevelIndex(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Start())
	solveLevel(t, e)
	e.Move(Right)
	e.Move(Right)
	require.True(t, e.Board().Door.IsOpen())

	require.NoError(t, e.ResetLevel())

	assert.Equal(t, 1, e.LevelIndex())
	assert.False(t, e.Board().Door.IsOpen())
	assert.False(t, e.Board().Key.Deleted)
	assert.Equal(t, pos(80, 160), e.Board().Player.Pos)
	assert.NoError(t, e.Board().CheckInvariants())
}

func TestAutosaveAfterMutations(t *testing.T) {
	var saved []Progress
	e, err := NewEngine(createTestLevelSet(), Options{
		Autosave: func(p Progress) { saved = append(saved, p) },
	})
	require.NoError(t, err)

	require.NoError(t, e.Start())
	e.Move(Right)
	e.Undo()

	require.Len(t, saved, 3)
	assert.Equal(t, StateInProgress, saved[2].State)
	assert.Equal(t, 1, saved[2].Counters.Moves)
	assert.Equal(t, 1, saved[2].Counters.Undos)
}

func TestProgressRoundTrip(t *testing.T) {
	e, clock := newTestEngine(t)
	require.NoError(t, e.Start())
	solveLevel(t, e)
	clock.Advance(10 * time.Second)

	data, err := e.Serialize()
	require.NoError(t, err)
	p, err := ParseProgress(data)
	require.NoError(t, err)
	assert.Equal(t, 1, p.LevelIndex)
	assert.Equal(t, "test", p.LevelSet)

	resumed, clock2 := newTestEngine(t)
	require.NoError(t, resumed.Continue(p))
	assert.Equal(t, StateInProgress, resumed.State())
	assert.Equal(t, 1, resumed.LevelIndex())
	assert.Equal(t, Counters{Moves: 3}, resumed.Counters())

	clock2.Advance(5 * time.Second)
	assert.Equal(t, 15*time.Second, resumed.Elapsed())

	assert.ErrorIs(t, resumed.Continue(p), ErrInvalidTransition)
}

func TestRestoreProgressValidation(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Error(t, e.RestoreProgress(Progress{LevelIndex: 7}))
	assert.Error(t, e.RestoreProgress(Progress{Elapsed: -1}))
	assert.ErrorIs(t, e.RestoreProgress(Progress{State: "paused"}), ErrInvalidTransition)

	require.NoError(t, e.RestoreProgress(Progress{State: StateWon, Counters: Counters{Moves: 9}, Elapsed: 3}))
	assert.Equal(t, StateWon, e.State())
	require.NotNil(t, e.GetState().Summary)
	assert.Equal(t, 9, e.GetState().Summary.Counters.Moves)
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
		err  bool
	}{
		{"up", Up, false},
		{"W", Up, false},
		{" down ", Down, false},
		{"a", Left, false},
		{"Right", Right, false},
		{"diagonal", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
