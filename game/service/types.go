package service

import (
	"time"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	LevelSetID     string            `json:"level_set_id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	CanContinue    bool              `json:"can_continue"`
	GameState      *engine.GameState `json:"game_state"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool                `json:"success"`
	Reason    engine.RejectReason `json:"reason,omitempty"`
	Blamed    []string            `json:"blamed,omitempty"`
	GameState *engine.GameState   `json:"game_state"`
	Message   string              `json:"message"`
	Events    []GameEvent         `json:"events,omitempty"`
	Step      *StepInfo           `json:"step,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // out_of_bounds|blocked|invalid_direction|not_in_progress|level_complete|won
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	StartPos   engine.Position `json:"start_pos"`
	EndPos     engine.Position `json:"end_pos"`
	StartLevel int             `json:"start_level"`
	EndLevel   int             `json:"end_level"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	Message string `json:"message,omitempty"`
}

// StepInfo is a compact record for one executed move
type StepInfo struct {
	Idx           int                 `json:"idx"`
	Dir           string              `json:"dir"`
	From          engine.Position     `json:"from"`
	To            engine.Position     `json:"to"`
	Success       bool                `json:"success"`
	Reason        engine.RejectReason `json:"reason,omitempty"`
	Pushed        []string            `json:"pushed,omitempty"`
	Teleported    bool                `json:"teleported,omitempty"`
	DoorOpened    bool                `json:"door_opened,omitempty"`
	LevelComplete bool                `json:"level_complete,omitempty"`
	Won           bool                `json:"won,omitempty"`
}

// UndoResult contains the result of an undo
type UndoResult struct {
	Success   bool                `json:"success"`
	Reason    engine.RejectReason `json:"reason,omitempty"`
	Blamed    []string            `json:"blamed,omitempty"`
	Reverted  []string            `json:"reverted,omitempty"`
	GameState *engine.GameState   `json:"game_state"`
	Message   string              `json:"message"`
	Events    []GameEvent         `json:"events,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"` // "move", "push", "teleport", "door_opened", "level_complete", "won", "undo", "reset", "blocked"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position,omitempty"`
	Entities  []string        `json:"entities,omitempty"`
}

// HistoryOptions configures action history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated action history
type HistoryResponse struct {
	Actions      []engine.ActionEntry `json:"actions"`
	TotalActions int                  `json:"total_actions"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	TotalPages   int                  `json:"total_pages"`
	HasNext      bool                 `json:"has_next"`
	HasPrevious  bool                 `json:"has_previous"`
}

// LevelSetInfo provides information about a level set file
type LevelSetInfo struct {
	Filename    string `json:"filename"`
	LevelSetID  string `json:"level_set_id"` // The identifier to use for session creation
	Name        string `json:"name"`         // Display name
	Description string `json:"description"`
	Levels      int    `json:"levels"`
	GridSize    int    `json:"grid_size"`
}
