// Package feedback animates the short horizontal jitter shown on entities
// whose move or undo was rejected.
//
// A Tracker holds one tween sequence per shaking entity. Frontends call
// Update with their frame delta; the server calls Tick with the wall clock
// whenever it builds a state snapshot. Offsets are in pixels and are applied
// to the x axis only.
package feedback
