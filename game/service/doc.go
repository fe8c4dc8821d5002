// Package service provides the business logic layer for the key and door puzzle.
//
// The service package implements:
//   - Multi-session game management
//   - The start, continue and challenge menu transitions
//   - Single and bulk move processing with event reporting
//   - Undo, level reset and paginated action history
//   - Level set listing, loading and saving
//
// Core Interfaces:
//
// GameService is the interface the HTTP, WebSocket, MCP and terminal
// frontends call. SessionManager stores sessions and LevelManager serves
// level sets. Both are implemented outside this package so the service can be
// tested with in-memory fakes.
//
// Usage:
//
//	levelMgr, _ := levels.NewManager("levels")
//	gameService := service.NewGameService(session.NewManager(), levelMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	_, _ = gameService.Start(ctx, info.ID)
//	result, err := gameService.Move(ctx, info.ID, "right")
//
// Every operation touches the session's last access time and saves it after
// the engine changes. A failed save is logged and does not fail the call.
package service
