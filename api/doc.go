// Package api provides the HTTP REST API for the key and door puzzle server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session, body {"level_set_id": "classic"}
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Session State Machine:
//   - POST /api/sessions/{id}/start - Start a normal run from the first level
//   - POST /api/sessions/{id}/continue - Resume the last saved run
//   - POST /api/sessions/{id}/challenge-menu - Open the level picker
//   - POST /api/sessions/{id}/challenge - Play one level, body {"level": 2}
//   - POST /api/sessions/{id}/quit - Leave the current run
//   - POST /api/sessions/{id}/acknowledge - Dismiss the ended or won screen
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/move - Body {"direction": "up"}
//   - POST /api/sessions/{id}/bulk-move - Body {"moves": ["up", "left"]}
//   - POST /api/sessions/{id}/undo - Revert the last step of every entity
//   - POST /api/sessions/{id}/reset - Restore the current level
//   - GET /api/sessions/{id}/history - Action log (?page=1&limit=20&order=desc)
//
// Level Sets:
//   - GET /api/levels - List level sets
//   - GET /api/levels/{name} - Get a level set
//   - POST /api/levels - Save a level set
//
// WebSocket:
//   - GET /ws?session={id} - Receive state updates for a session
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status derived from the error:
//
//	{
//	  "error": "session not found: session not found",
//	  "code": 404
//	}
//
// Unknown sessions and level sets map to 404, state machine violations to
// 409, and malformed input to 400. A rejected move is not an error: it is
// reported with success=false and a reason in a 200 response.
package api
