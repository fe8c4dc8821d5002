// Package engine provides the core rules of the key and door push puzzle.
//
// The engine package implements:
//   - Grid geometry and the level file format
//   - The recursive chain-push move resolver with atomic commit
//   - Paired teleporter pads
//   - The key/door unlock rule and the level win check
//   - Multi-entity undo validated as a single transaction
//   - The level/session state machine with counters and saved progress
//
// Core Types:
//
// Board holds the entities of the level being played and exposes AttemptMove,
// ResolveArrival and Undo. GameEngine wraps a Board with the session state
// machine and implements the Engine interface. LevelSet and Level describe
// the authored levels loaded from JSON files.
//
// Usage:
//
//	set, err := engine.LoadLevelSetFile("levels/classic.json", engine.DefaultGrid())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(set, engine.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	_ = gameEngine.Start()
//	outcome := gameEngine.Move(engine.Right)
//	state := gameEngine.GetState()
//
// Game Rules:
//
// The player pushes whatever stands in the way, one cell at a time. Pushing
// the key onto the door opens the door and consumes the key; walking onto the
// open door finishes the level. Moves that cannot complete are rejected
// without changing anything.
package engine
