package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
)

func createTestLevelSet() *engine.LevelSet {
	return &engine.LevelSet{
		Name: "test",
		Levels: []engine.Level{{
			PlayerStart: engine.Position{X: 80, Y: 80},
			KeyStart:    engine.Position{X: 160, Y: 80},
			DoorStart:   engine.Position{X: 320, Y: 80},
			Blocks:      []engine.BlockSpec{{X: 400, Y: 400, W: 80, H: 80}},
		}, {
			PlayerStart: engine.Position{X: 80, Y: 160},
			KeyStart:    engine.Position{X: 160, Y: 160},
			DoorStart:   engine.Position{X: 320, Y: 160},
			Blocks:      []engine.BlockSpec{{X: 400, Y: 400, W: 80, H: 80}},
		}},
	}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	set := createTestLevelSet()

	t.Run("create with custom ID", func(t *testing.T) {
		sess, err := manager.Create("test-session", "test", set)
		require.NoError(t, err)
		assert.Equal(t, "test-session", sess.ID)
		assert.Equal(t, "test", sess.LevelSetID)
		assert.NotNil(t, sess.Engine)
		assert.NotNil(t, sess.Feedback)
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		sess, err := manager.Create("", "test", set)
		require.NoError(t, err)
		assert.Len(t, sess.ID, 4)
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", "test", set)
		assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", "test", set)
		assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	})

	t.Run("unsafe session ID", func(t *testing.T) {
		_, err := manager.Create("../etc", "test", set)
		assert.ErrorIs(t, err, ErrInvalidSessionID)
	})

	t.Run("invalid level set", func(t *testing.T) {
		bad := createTestLevelSet()
		bad.Levels[0].Blocks = nil
		_, err := manager.Create("invalid-test", "bad", bad)
		assert.ErrorIs(t, err, engine.ErrInvalidLevel)
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, err := manager.Create("get-test", "test", createTestLevelSet())
	require.NoError(t, err)

	t.Run("get existing session", func(t *testing.T) {
		sess, err := manager.Get("get-test")
		require.NoError(t, err)
		assert.Same(t, created, sess)
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		sess, err := manager.Get("GET-TEST")
		require.NoError(t, err)
		assert.Same(t, created, sess)
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewManager()
	set := createTestLevelSet()

	first, err := manager.GetOrCreate("new-session", "test", set)
	require.NoError(t, err)
	second, err := manager.GetOrCreate("new-session", "test", set)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, manager.Count())
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	set := createTestLevelSet()
	_, err := manager.Create("delete-test", "test", set)
	require.NoError(t, err)

	require.NoError(t, manager.Delete("delete-test"))
	_, err = manager.Get("delete-test")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, manager.Delete("non-existent"), ErrSessionNotFound)

	_, err = manager.Create("case-test", "test", set)
	require.NoError(t, err)
	require.NoError(t, manager.Delete("CASE-TEST"))
	assert.Zero(t, manager.Count())

	_, err = manager.Create("memory-only", "test", set)
	require.NoError(t, err)
	require.NoError(t, manager.DeleteFromMemory("memory-only"))
	assert.ErrorIs(t, manager.DeleteFromMemory("memory-only"), ErrSessionNotFound)
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	set := createTestLevelSet()

	var ids []string
	for i := 1; i <= 3; i++ {
		sess, err := manager.Create(fmt.Sprintf("list-%d", i), "test", set)
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	var listed []string
	for _, s := range manager.List() {
		listed = append(listed, s.ID)
	}
	assert.ElementsMatch(t, ids, listed)
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()
	set := createTestLevelSet()

	active, _ := manager.Create("active", "test", set)
	expired, _ := manager.Create("expired", "test", set)
	expired.LastAccessedAt = time.Now().Add(-2 * time.Hour)
	active.LastAccessedAt = time.Now()

	assert.Equal(t, 1, manager.CleanupExpiredSessions(time.Hour))

	_, err := manager.Get("expired")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = manager.Get("active")
	assert.NoError(t, err)
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	sess, _ := manager.Create("access-test", "test", createTestLevelSet())
	sess.LastAccessedAt = time.Now().Add(-time.Minute)
	original := sess.LastAccessedAt

	require.NoError(t, manager.UpdateLastAccessed("ACCESS-TEST"))
	assert.True(t, sess.LastAccessedAt.After(original))

	assert.ErrorIs(t, manager.UpdateLastAccessed("missing"), ErrSessionNotFound)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	set := createTestLevelSet()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sess, err := manager.Create("", "test", set)
			if !assert.NoError(t, err) {
				return
			}
			_, err = manager.Get(sess.ID)
			assert.NoError(t, err)
			manager.List()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, manager.Count())
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()
	set := createTestLevelSet()

	s1, _ := manager.Create("iso-1", "test", set)
	s2, _ := manager.Create("iso-2", "test", set)
	require.NoError(t, s1.Engine.Start())
	require.NoError(t, s2.Engine.Start())

	require.True(t, s1.Engine.Move(engine.Right).Committed)

	assert.Equal(t, engine.Position{X: 160, Y: 80}, s1.Engine.Board().Player.Pos)
	assert.Equal(t, engine.Position{X: 80, Y: 80}, s2.Engine.Board().Player.Pos)
}

func TestSessionCheckpoint(t *testing.T) {
	manager := NewManager()
	sess, err := manager.Create("cp", "test", createTestLevelSet())
	require.NoError(t, err)
	assert.False(t, sess.CanContinue())

	require.NoError(t, sess.Engine.Start())
	require.NotNil(t, sess.Checkpoint)
	assert.Equal(t, 0, sess.Checkpoint.LevelIndex)

	for i := 0; i < 3; i++ {
		sess.Engine.Move(engine.Right)
	}
	assert.Equal(t, 1, sess.Checkpoint.LevelIndex)

	require.NoError(t, sess.Engine.Quit())
	assert.True(t, sess.CanContinue())

	require.NoError(t, sess.Engine.Acknowledge())
	require.NoError(t, sess.Engine.OpenChallengeMenu())
	require.NoError(t, sess.Engine.SelectChallenge(0))
	// challenge runs leave the normal-run checkpoint alone
	assert.Equal(t, 1, sess.Checkpoint.LevelIndex)
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	set := createTestLevelSet()

	generated := make(map[string]bool)
	for i := 0; i < 50; i++ {
		sess, err := manager.Create("", "test", set)
		require.NoError(t, err)
		assert.False(t, generated[sess.ID], "duplicate session ID %s", sess.ID)
		generated[sess.ID] = true
		assert.Len(t, sess.ID, 4)
	}
}
