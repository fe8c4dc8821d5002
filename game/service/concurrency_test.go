package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/keydoor/game/levels"
	"github.com/wricardo/mcp-training/keydoor/game/service"
	"github.com/wricardo/mcp-training/keydoor/game/session"
)

// Run with -race: reads of a session's access time and jitter state must not
// overlap the writes made by GetSession and GetGameState.
func TestGameService_ConcurrentReads(t *testing.T) {
	ctx := context.Background()

	levelManager, err := levels.NewManager(t.TempDir())
	require.NoError(t, err)
	persistence, err := session.NewFilePersistence(t.TempDir(), levelManager)
	require.NoError(t, err)
	svc := service.NewGameService(session.NewManagerWithPersistence(persistence), levelManager)

	info, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)
	_, err = svc.Start(ctx, info.ID)
	require.NoError(t, err)
	// A rejected move starts a jitter that GetGameState keeps ticking
	_, err = svc.Move(ctx, info.ID, "left")
	require.NoError(t, err)

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers*4)
	for i := 0; i < workers; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			_, err := svc.GetSession(ctx, info.ID)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.ListSessions(ctx)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.GetGameState(ctx, info.ID)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.GetActionHistory(ctx, info.ID, service.HistoryOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.False(t, sessions[0].LastAccessedAt.Before(info.LastAccessedAt))
}
