package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/service"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	saves    int
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id, levelSetID string, set *engine.LevelSet) (*service.Session, error) {
	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	sess, err := service.NewSession(id, levelSetID, set)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = sess
	return sess, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	sess, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return sess, nil
}

func (m *MockSessionManager) GetOrCreate(id, levelSetID string, set *engine.LevelSet) (*service.Session, error) {
	if sess, exists := m.sessions[id]; exists {
		return sess, nil
	}
	return m.Create(id, levelSetID, set)
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if sess, exists := m.sessions[id]; exists {
		sess.LastAccessedAt = time.Now()
		return nil
	}
	return errors.New("session not found")
}

func (m *MockSessionManager) Save(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	m.saves++
	return nil
}

// MockLevelManager implements service.LevelManager for testing
type MockLevelManager struct {
	sets map[string]*engine.LevelSet
}

// each level is solved by three moves to the right
func createTestLevelSet() *engine.LevelSet {
	return &engine.LevelSet{
		Name: "test",
		Levels: []engine.Level{
			{
				PlayerStart: engine.Position{X: 80, Y: 80},
				KeyStart:    engine.Position{X: 160, Y: 80},
				DoorStart:   engine.Position{X: 320, Y: 80},
				Blocks:      []engine.BlockSpec{{X: 80, Y: 720, W: 80, H: 80}},
			},
			{
				PlayerStart: engine.Position{X: 80, Y: 160},
				KeyStart:    engine.Position{X: 160, Y: 160},
				DoorStart:   engine.Position{X: 320, Y: 160},
				Blocks:      []engine.BlockSpec{{X: 240, Y: 240, W: 80, H: 80, Movable: true}},
			},
		},
	}
}

func NewMockLevelManager() *MockLevelManager {
	set := createTestLevelSet()
	return &MockLevelManager{
		sets: map[string]*engine.LevelSet{
			"test":    set,
			"default": set,
		},
	}
}

func (m *MockLevelManager) LoadLevelSet(name string) (*engine.LevelSet, error) {
	set, exists := m.sets[name]
	if !exists {
		return nil, errors.New("level set not found")
	}
	return set, nil
}

func (m *MockLevelManager) ListLevelSets() ([]*service.LevelSetInfo, error) {
	result := make([]*service.LevelSetInfo, 0, len(m.sets))
	for name, set := range m.sets {
		result = append(result, &service.LevelSetInfo{
			Filename:   name + ".json",
			LevelSetID: name,
			Name:       set.Name,
			Levels:     len(set.Levels),
		})
	}
	return result, nil
}

func (m *MockLevelManager) GetDefault() *engine.LevelSet {
	return m.sets["default"]
}

func (m *MockLevelManager) SaveLevelSet(name string, set *engine.LevelSet) error {
	m.sets[name] = set
	return nil
}

func newTestService(t *testing.T) (service.GameService, *MockSessionManager, string) {
	t.Helper()
	sessions := NewMockSessionManager()
	svc := service.NewGameService(sessions, NewMockLevelManager())
	info, err := svc.CreateSession(context.Background(), "test")
	require.NoError(t, err)
	return svc, sessions, info.ID
}

func startedService(t *testing.T) (service.GameService, *MockSessionManager, string) {
	t.Helper()
	svc, sessions, id := newTestService(t)
	_, err := svc.Start(context.Background(), id)
	require.NoError(t, err)
	return svc, sessions, id
}

func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(NewMockSessionManager(), NewMockLevelManager())

	tests := []struct {
		name     string
		levelSet string
		wantErr  bool
	}{
		{"create with default level set", "", false},
		{"create with specific level set", "test", false},
		{"create with unknown level set", "nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.levelSet)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "Available level sets")
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, info.ID)
			assert.Equal(t, engine.StateNotStarted, info.GameState.State)
			assert.False(t, info.CanContinue)
		})
	}
}

func TestGameService_MoveRequiresStart(t *testing.T) {
	svc, _, id := newTestService(t)

	result, err := svc.Move(context.Background(), id, "right")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, engine.ReasonNotInProgress, result.Reason)
}

func TestGameService_Move(t *testing.T) {
	ctx := context.Background()
	svc, sessions, id := startedService(t)

	t.Run("push the key", func(t *testing.T) {
		result, err := svc.Move(ctx, id, "right")
		require.NoError(t, err)
		assert.True(t, result.Success)
		require.NotNil(t, result.Step)
		assert.Equal(t, engine.Position{X: 80, Y: 80}, result.Step.From)
		assert.Equal(t, engine.Position{X: 160, Y: 80}, result.Step.To)
		assert.Equal(t, []string{"key"}, result.Step.Pushed)

		var types []string
		for _, ev := range result.Events {
			types = append(types, ev.Type)
		}
		assert.Equal(t, []string{"move", "push"}, types)
	})

	t.Run("rejected move shakes the player", func(t *testing.T) {
		result, err := svc.Move(ctx, id, "up")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, engine.ReasonOutOfBounds, result.Reason)
		assert.Equal(t, []string{"player"}, result.Blamed)
		require.Len(t, result.Events, 1)
		assert.Equal(t, "blocked", result.Events[0].Type)
		assert.Contains(t, result.GameState.Offsets, "player")
	})

	t.Run("invalid direction", func(t *testing.T) {
		_, err := svc.Move(ctx, id, "sideways")
		assert.ErrorIs(t, err, service.ErrInvalidDirection)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Move(ctx, "nope", "up")
		assert.Error(t, err)
	})

	assert.Positive(t, sessions.saves)
}

func TestGameService_MoveOpensDoorAndAdvances(t *testing.T) {
	ctx := context.Background()
	svc, _, id := startedService(t)

	_, err := svc.Move(ctx, id, "right")
	require.NoError(t, err)
	result, err := svc.Move(ctx, id, "right")
	require.NoError(t, err)
	assert.True(t, result.Step.DoorOpened)
	assert.True(t, result.GameState.DoorOpen)

	result, err = svc.Move(ctx, id, "right")
	require.NoError(t, err)
	assert.True(t, result.Step.LevelComplete)
	assert.Equal(t, engine.Position{X: 320, Y: 80}, result.Step.To)
	assert.Equal(t, 1, result.GameState.LevelIndex)

	var types []string
	for _, ev := range result.Events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"move", "level_complete"}, types)
}

func TestGameService_BulkMove(t *testing.T) {
	ctx := context.Background()

	t.Run("stops when the level is finished", func(t *testing.T) {
		svc, _, id := startedService(t)
		result, err := svc.BulkMove(ctx, id, []string{"right", "right", "right", "right"})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 3, result.MovesExecuted)
		assert.Equal(t, 4, result.RequestedMoves)
		assert.Equal(t, "level_complete", result.StopReasonCode)
		assert.Equal(t, 3, result.StoppedOnMove)
		assert.Equal(t, 0, result.StartLevel)
		assert.Equal(t, 1, result.EndLevel)
		assert.Len(t, result.Steps, 3)
	})

	t.Run("stops on the first rejection", func(t *testing.T) {
		svc, _, id := startedService(t)
		result, err := svc.BulkMove(ctx, id, []string{"down", "left", "right"})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, 1, result.MovesExecuted)
		assert.Equal(t, 2, result.StoppedOnMove)
		assert.Equal(t, string(engine.ReasonOutOfBounds), result.StopReasonCode)
		assert.Equal(t, engine.Position{X: 80, Y: 160}, result.EndPos)
	})

	t.Run("invalid direction", func(t *testing.T) {
		svc, _, id := startedService(t)
		result, err := svc.BulkMove(ctx, id, []string{"down", "jump"})
		require.NoError(t, err)
		assert.Equal(t, "invalid_direction", result.StopReasonCode)
		assert.Equal(t, 1, result.MovesExecuted)
	})

	t.Run("truncates long requests", func(t *testing.T) {
		svc, _, id := startedService(t)
		moves := make([]string, engine.MaxBulkMoves+10)
		for i := range moves {
			if i%2 == 0 {
				moves[i] = "down"
			} else {
				moves[i] = "up"
			}
		}
		result, err := svc.BulkMove(ctx, id, moves)
		require.NoError(t, err)
		assert.True(t, result.Truncated)
		assert.Equal(t, engine.MaxBulkMoves, result.Limit)
		assert.Equal(t, engine.MaxBulkMoves, result.MovesExecuted)
	})

	t.Run("not in progress", func(t *testing.T) {
		svc, _, id := newTestService(t)
		result, err := svc.BulkMove(ctx, id, []string{"right"})
		require.NoError(t, err)
		assert.Equal(t, string(engine.ReasonNotInProgress), result.StopReasonCode)
		assert.Zero(t, result.MovesExecuted)
	})
}

func TestGameService_Undo(t *testing.T) {
	ctx := context.Background()
	svc, _, id := startedService(t)

	result, err := svc.Undo(ctx, id)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, engine.ReasonNothingToUndo, result.Reason)
	assert.Empty(t, result.Events)

	_, err = svc.Move(ctx, id, "right")
	require.NoError(t, err)

	result, err = svc.Undo(ctx, id)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.ElementsMatch(t, []string{"player", "key"}, result.Reverted)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "undo", result.Events[0].Type)
	assert.Equal(t, 1, result.GameState.Counters.Undos)
}

func TestGameService_Reset(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)

	_, err := svc.Reset(ctx, id)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)

	_, err = svc.Start(ctx, id)
	require.NoError(t, err)
	_, err = svc.Move(ctx, id, "down")
	require.NoError(t, err)

	state, err := svc.Reset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Counters.Resets)
	assert.Equal(t, 0, state.LevelIndex)
}

func TestGameService_StateMachine(t *testing.T) {
	ctx := context.Background()

	t.Run("continue needs a saved run", func(t *testing.T) {
		svc, _, id := newTestService(t)
		_, err := svc.Continue(ctx, id)
		assert.ErrorIs(t, err, service.ErrNothingToContinue)
	})

	t.Run("continue resumes the reached level", func(t *testing.T) {
		svc, _, id := startedService(t)
		_, err := svc.BulkMove(ctx, id, []string{"right", "right", "right"})
		require.NoError(t, err)

		_, err = svc.Quit(ctx, id)
		require.NoError(t, err)
		state, err := svc.Acknowledge(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, engine.StateNotStarted, state.State)

		info, err := svc.GetSession(ctx, id)
		require.NoError(t, err)
		assert.True(t, info.CanContinue)

		state, err = svc.Continue(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, engine.StateInProgress, state.State)
		assert.Equal(t, 1, state.LevelIndex)
		assert.Equal(t, 3, state.Counters.Moves)
	})

	t.Run("challenge opens the menu first", func(t *testing.T) {
		svc, _, id := newTestService(t)
		state, err := svc.SelectChallenge(ctx, id, 1)
		require.NoError(t, err)
		assert.Equal(t, engine.StateInProgress, state.State)
		assert.Equal(t, engine.ModeChallenge, state.Mode)
		assert.Equal(t, 1, state.LevelIndex)

		result, err := svc.BulkMove(ctx, id, []string{"right", "right", "right"})
		require.NoError(t, err)
		assert.Equal(t, "won", result.StopReasonCode)
		assert.Equal(t, engine.StateWon, result.GameState.State)
	})

	t.Run("challenge during a run is rejected", func(t *testing.T) {
		svc, _, id := startedService(t)
		_, err := svc.Move(ctx, id, "right")
		require.NoError(t, err)

		_, err = svc.SelectChallenge(ctx, id, 0)
		assert.ErrorIs(t, err, engine.ErrInvalidTransition)

		state, err := svc.GetGameState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, engine.StateInProgress, state.State)
		assert.Equal(t, engine.ModeNormal, state.Mode)
		assert.Equal(t, 1, state.Counters.Moves, "the run is not abandoned")
	})

	t.Run("challenge during a run through the menu", func(t *testing.T) {
		svc, _, id := startedService(t)
		state, err := svc.OpenChallengeMenu(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, engine.StateChallengeMenu, state.State)

		state, err = svc.SelectChallenge(ctx, id, 1)
		require.NoError(t, err)
		assert.Equal(t, engine.ModeChallenge, state.Mode)
		assert.Equal(t, 1, state.LevelIndex)
	})

	t.Run("challenge out of range", func(t *testing.T) {
		svc, _, id := newTestService(t)
		_, err := svc.SelectChallenge(ctx, id, 9)
		assert.Error(t, err)
	})

	t.Run("menu then quit", func(t *testing.T) {
		svc, _, id := newTestService(t)
		state, err := svc.OpenChallengeMenu(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, engine.StateChallengeMenu, state.State)
		state, err = svc.Quit(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, engine.StateNotStarted, state.State)
	})

	t.Run("winning clears the saved run", func(t *testing.T) {
		svc, _, id := startedService(t)
		result, err := svc.BulkMove(ctx, id, []string{"right", "right", "right"})
		require.NoError(t, err)
		require.Equal(t, "level_complete", result.StopReasonCode)
		result, err = svc.BulkMove(ctx, id, []string{"right", "right", "right"})
		require.NoError(t, err)
		require.Equal(t, "won", result.StopReasonCode)

		info, err := svc.GetSession(ctx, id)
		require.NoError(t, err)
		assert.False(t, info.CanContinue)
		require.NotNil(t, info.GameState.Summary)
		assert.Equal(t, 6, info.GameState.Summary.Counters.Moves)
	})
}

func TestGameService_GetActionHistory(t *testing.T) {
	ctx := context.Background()
	svc, _, id := startedService(t)

	for _, dir := range []string{"down", "down", "up", "right", "left"} {
		_, err := svc.Move(ctx, id, dir)
		require.NoError(t, err)
	}

	tests := []struct {
		name        string
		opts        service.HistoryOptions
		wantActions []string
		wantNext    bool
		wantPrev    bool
	}{
		{"defaults are newest first", service.HistoryOptions{}, []string{"left", "right", "up", "down", "down"}, false, false},
		{"ascending first page", service.HistoryOptions{Limit: 2, Order: "asc"}, []string{"down", "down"}, true, false},
		{"ascending last page", service.HistoryOptions{Page: 3, Limit: 2, Order: "asc"}, []string{"left"}, false, true},
		{"descending second page", service.HistoryOptions{Page: 2, Limit: 2}, []string{"up", "down"}, true, true},
		{"page past the end", service.HistoryOptions{Page: 9, Limit: 2, Order: "asc"}, nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetActionHistory(ctx, id, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, 5, resp.TotalActions)

			var got []string
			for _, a := range resp.Actions {
				got = append(got, a.Action)
			}
			assert.Equal(t, tt.wantActions, got)
			assert.Equal(t, tt.wantNext, resp.HasNext)
			assert.Equal(t, tt.wantPrev, resp.HasPrevious)
			assert.NotNil(t, resp.Actions)
		})
	}
}

func TestGameService_ListAndDeleteSessions(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)
	_, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.DeleteSession(ctx, id))
	_, err = svc.GetSession(ctx, id)
	assert.Error(t, err)
}

func TestGameService_LevelSets(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	set := createTestLevelSet()
	set.Name = "custom"
	require.NoError(t, svc.SaveLevelSet(ctx, "custom", set))

	loaded, err := svc.LoadLevelSet(ctx, "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", loaded.Name)

	infos, err := svc.ListLevelSets(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 3)
}
