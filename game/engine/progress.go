package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// Progress is the serializable part of a session: enough to resume a run at
// the start of the level the player had reached
type Progress struct {
	LevelSet   string       `json:"level_set"`
	LevelIndex int          `json:"level_index"`
	State      SessionState `json:"state"`
	Mode       Mode         `json:"mode"`
	Counters   Counters     `json:"counters"`
	Elapsed    float64      `json:"elapsed_seconds"`
	SavedAt    time.Time    `json:"saved_at"`
}

// Progress captures the current progress
func (e *GameEngine) Progress() Progress {
	return Progress{
		LevelSet:   e.set.Name,
		LevelIndex: e.levelIndex,
		State:      e.state,
		Mode:       e.mode,
		Counters:   e.counters,
		Elapsed:    e.Elapsed().Seconds(),
		SavedAt:    e.opts.Clock(),
	}
}

// Serialize encodes the current progress as JSON
func (e *GameEngine) Serialize() ([]byte, error) {
	return json.Marshal(e.Progress())
}

// ParseProgress decodes progress produced by Serialize
func ParseProgress(data []byte) (Progress, error) {
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, fmt.Errorf("failed to parse progress: %w", err)
	}
	return p, nil
}

// RestoreProgress puts the engine into the saved state. The current level is
// reloaded from its authored layout; positions within a level are not saved.
func (e *GameEngine) RestoreProgress(p Progress) error {
	if p.LevelIndex < 0 || p.LevelIndex >= len(e.set.Levels) {
		return fmt.Errorf("saved level %d out of range [0, %d)", p.LevelIndex, len(e.set.Levels))
	}
	if p.Elapsed < 0 {
		return fmt.Errorf("saved elapsed time is negative: %v", p.Elapsed)
	}
	switch p.State {
	case StateInProgress, StateWon, StateEnded, StateNotStarted, StateChallengeMenu, "":
	default:
		return fmt.Errorf("%w: unknown saved state %q", ErrInvalidTransition, p.State)
	}

	e.loadLevel(p.LevelIndex)
	e.counters = p.Counters
	e.elapsed = time.Duration(p.Elapsed * float64(time.Second))
	e.startedAt = time.Time{}
	e.summary = nil
	e.mode = p.Mode
	if e.mode == "" {
		e.mode = ModeNormal
	}

	switch p.State {
	case StateInProgress:
		e.state = StateInProgress
		e.startClock()
		e.message = e.levelMessage()
	case StateWon:
		e.state = StateWon
		e.summary = &WinSummary{Counters: e.counters, Elapsed: p.Elapsed, Mode: e.mode}
		e.message = "You won!"
	case StateEnded:
		e.state = StateEnded
		e.message = "Game ended"
	default:
		e.state = StateNotStarted
		e.message = "Press start to play"
	}
	return nil
}
