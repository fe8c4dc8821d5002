// Package solver searches key and door levels for solutions.
//
// Solve runs a bounded breadth-first search over player moves, replaying each
// candidate move on a cloned engine.Board so the search uses exactly the push,
// teleport and unlock rules of the game. Boards are deduplicated by entity
// positions and door state; the first solution found is a shortest one.
//
// Analyze and WriteReport back the analyze command: per-level layout
// statistics, a warning when the key starts wedged, and the solver verdict.
package solver
