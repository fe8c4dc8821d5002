// Package mcp provides a Model Context Protocol server for the key and door puzzle.
//
// The server is a thin client: every tool call is proxied to the REST API
// over HTTP, so MCP agents and HTTP clients observe the same sessions and
// websocket viewers see agent moves live.
//
// MCP Tools:
//
// Session management:
//   - create_session: Create a session on a level set
//   - get_session: Session details with the rendered board
//   - list_sessions: All active sessions
//
// Session state machine:
//   - start_game, continue_game, challenge_menu, select_challenge
//   - quit_game, acknowledge
//
// Play:
//   - game_state: Board, counters and door status
//   - move: One step, requires a direction and accepts an intent
//   - bulk_move: Up to engine.MaxBulkMoves steps with a per-step trace
//   - undo, reset_level
//   - action_history: Paginated action log
//   - describe_cell: Entities and pads on one grid cell
//
// Reference:
//   - list_level_sets, game_instructions
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: server.ServeStdio on the value returned by GetMCPServer
//   - HTTP: a POST endpoint that feeds request bodies to HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
