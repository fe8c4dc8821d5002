package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
)

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	require.NotNil(t, hub)
	assert.NotNil(t, hub.sessions)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.Equal(t, 0, hub.ClientCount("anything"))
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	client1 := newTestClient(hub, "abcd")
	client2 := newTestClient(hub, "abcd")

	hub.registerClient(client1)
	hub.registerClient(client2)
	assert.Equal(t, 2, hub.ClientCount("ABCD"))

	hub.unregisterClient(client1)
	assert.Equal(t, 1, hub.ClientCount("abcd"))
	assert.True(t, hub.sessions["abcd"][client2])

	_, open := <-client1.send
	assert.False(t, open, "send channel should be closed")

	// a second unregister is a no-op
	hub.unregisterClient(client1)

	hub.unregisterClient(client2)
	_, exists := hub.sessions["abcd"]
	assert.False(t, exists, "empty sessions are removed")
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := NewHub()
	watcher := newTestClient(hub, "abcd")
	other := newTestClient(hub, "ffff")
	hub.registerClient(watcher)
	hub.registerClient(other)

	hub.BroadcastToSession("ABCD", &engine.GameState{
		State:      engine.StateInProgress,
		LevelIndex: 2,
		Entities:   []engine.EntityView{{ID: "player", Kind: engine.KindPlayer, Pos: engine.Position{X: 80, Y: 160}}},
	})
	hub.broadcastMessage(<-hub.broadcast)

	select {
	case data := <-watcher.send:
		var message Message
		require.NoError(t, json.Unmarshal(data, &message))
		assert.Equal(t, "ABCD", message.SessionID)
		assert.Equal(t, "state_update", message.Event)
		require.NotNil(t, message.GameState)
		assert.Equal(t, 2, message.GameState.LevelIndex)
		assert.Equal(t, engine.Position{X: 80, Y: 160}, message.GameState.Entities[0].Pos)
	default:
		t.Fatal("watcher received nothing")
	}

	assert.Empty(t, other.send, "other sessions are not notified")
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub()

	hub.BroadcastEvent("event-test", "level_complete", "test-data")

	select {
	case message := <-hub.broadcast:
		assert.Equal(t, "event-test", message.SessionID)
		assert.Equal(t, "level_complete", message.Event)
		assert.Equal(t, "test-data", message.Data)
	default:
		t.Fatal("event was not queued")
	}
}

func TestHubBroadcastDoesNotBlockWhenFull(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.BroadcastEvent("abcd", "tick", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked without a running hub")
	}
	assert.Len(t, hub.broadcast, broadcastBuffer)
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, sessionID: "abcd", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "abcd", Event: "state_update"})

	assert.Equal(t, 0, hub.ClientCount("abcd"))
}

func newWSServer(hub *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocketLifecycle(t *testing.T) {
	hub := runHub(t)
	server := newWSServer(hub)
	defer server.Close()

	conn := dial(t, server, "ws01")
	require.Eventually(t, func() bool { return hub.ClientCount("ws01") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount("ws01") == 0 }, time.Second, 10*time.Millisecond)
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := runHub(t)
	server := newWSServer(hub)
	defer server.Close()

	conn := dial(t, server, "ws02")
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("ws02") == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastToSession("ws02", &engine.GameState{
		State:    engine.StateWon,
		Counters: engine.Counters{Moves: 12, Undos: 1},
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var message Message
	require.NoError(t, json.Unmarshal(data, &message))
	assert.Equal(t, "ws02", message.SessionID)
	require.NotNil(t, message.GameState)
	assert.Equal(t, engine.StateWon, message.GameState.State)
	assert.Equal(t, engine.Counters{Moves: 12, Undos: 1}, message.GameState.Counters)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	server := newWSServer(hub)
	defer server.Close()

	conn := dial(t, server, "ws03")
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("ws03") == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	<-stopped
	assert.Equal(t, 0, hub.ClientCount("ws03"))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
