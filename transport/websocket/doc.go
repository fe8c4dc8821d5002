// Package websocket pushes game state updates to browser clients.
//
// A Hub keeps the connected clients grouped by session ID. The REST API calls
// BroadcastToSession after every request that changes a session, and every
// client watching that session receives the new state as a JSON Message with
// the event "state_update". Incoming client messages are read only to keep
// the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Broadcasting never blocks the caller. Messages queue for the hub's event
// loop and are dropped with a warning when the queue is full; clients that
// fall behind are disconnected.
package websocket
