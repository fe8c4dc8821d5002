package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/levels"
)

func TestManagerWithPersistence(t *testing.T) {
	persistence, lm, _ := newTestPersistence(t)
	manager := NewManagerWithPersistence(persistence)
	set := lm.GetDefault()

	t.Run("create session auto-saves", func(t *testing.T) {
		sess, err := manager.Create("auto1", levels.BuiltinName, set)
		require.NoError(t, err)
		assert.True(t, persistence.Exists(sess.ID))

		loaded, err := persistence.Load(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, loaded.ID)
	})

	t.Run("get session loads from persistence", func(t *testing.T) {
		manager2 := NewManagerWithPersistence(persistence)

		sess, err := manager2.Get("AUTO1")
		require.NoError(t, err)
		assert.Equal(t, "auto1", sess.ID)

		again, err := manager2.Get("auto1")
		require.NoError(t, err)
		assert.Same(t, sess, again)
	})

	t.Run("save persists changes", func(t *testing.T) {
		sess, err := manager.Get("auto1")
		require.NoError(t, err)
		require.NoError(t, sess.Engine.Start())
		require.True(t, sess.Engine.Move(engine.Down).Committed)
		require.NoError(t, manager.Save("auto1"))

		loaded, err := NewManagerWithPersistence(persistence).Get("auto1")
		require.NoError(t, err)
		assert.Equal(t, engine.StateInProgress, loaded.Engine.State())
		assert.Equal(t, 1, loaded.Engine.Counters().Moves)
	})

	t.Run("delete removes from persistence", func(t *testing.T) {
		sess, err := manager.Create("delete_test", levels.BuiltinName, set)
		require.NoError(t, err)
		require.True(t, persistence.Exists(sess.ID))

		require.NoError(t, manager.Delete(sess.ID))
		assert.False(t, persistence.Exists(sess.ID))
		_, err = manager.Get(sess.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("delete of a persisted-only session", func(t *testing.T) {
		_, err := manager.Create("disk_only", levels.BuiltinName, set)
		require.NoError(t, err)
		require.NoError(t, manager.DeleteFromMemory("disk_only"))

		require.NoError(t, manager.Delete("disk_only"))
		assert.False(t, persistence.Exists("disk_only"))
	})

	t.Run("load persisted sessions on startup", func(t *testing.T) {
		ids := []string{"startup1", "startup2", "startup3"}
		for _, id := range ids {
			_, err := manager.Create(id, levels.BuiltinName, set)
			require.NoError(t, err)
		}

		manager4 := NewManagerWithPersistence(persistence)
		require.NoError(t, manager4.LoadPersistedSessions())
		for _, id := range ids {
			sess, err := manager4.Get(id)
			require.NoError(t, err)
			assert.Equal(t, id, sess.ID)
		}
		assert.GreaterOrEqual(t, manager4.Count(), len(ids))
	})

	t.Run("update last accessed persists", func(t *testing.T) {
		sess, err := manager.Get("startup1")
		require.NoError(t, err)
		sess.LastAccessedAt = time.Now().Add(-time.Hour)
		original := sess.LastAccessedAt

		require.NoError(t, manager.UpdateLastAccessed("startup1"))

		loaded, err := NewManagerWithPersistence(persistence).Get("startup1")
		require.NoError(t, err)
		assert.True(t, loaded.LastAccessedAt.After(original))
	})

	t.Run("expired sessions reload from disk", func(t *testing.T) {
		sess, err := manager.Get("startup2")
		require.NoError(t, err)
		sess.LastAccessedAt = time.Now().Add(-2 * time.Hour)

		assert.GreaterOrEqual(t, manager.CleanupExpiredSessions(time.Hour), 1)
		_, err = manager.Get("startup2")
		assert.NoError(t, err)
	})

	t.Run("save all sessions", func(t *testing.T) {
		assert.NoError(t, manager.SaveAllSessions())
	})
}
