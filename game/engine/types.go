package engine

// EntityKind identifies what a grid entity is
type EntityKind string

const (
	KindPlayer EntityKind = "player"
	KindKey    EntityKind = "key"
	KindDoor   EntityKind = "door"
	KindBlock  EntityKind = "block"

	// Geometry defaults: a 10-cell grid of 80px blocks gives the playable
	// range [80, 800) on both axes.
	DefaultGridSize  = 10
	DefaultBlockSize = 80

	// Validation constants
	MinGridSize  = 3
	MaxGridSize  = 64
	MaxBulkMoves = 50
)

// SentinelPosition is where a deleted key is parked
var SentinelPosition = Position{X: -100, Y: -100}

// Capability is a bit set describing what an entity can take part in
type Capability uint8

const (
	CapMovable Capability = 1 << iota
	CapTeleportTarget
	CapDeletable
	CapOpenableExit
)

// DoorState is the one-way state of a level's exit door
type DoorState string

const (
	DoorClosed DoorState = "closed"
	DoorOpen   DoorState = "open"
)

// RejectReason explains why a move or undo was refused
type RejectReason string

const (
	ReasonNone          RejectReason = ""
	ReasonOutOfBounds   RejectReason = "out_of_bounds"
	ReasonBlocked       RejectReason = "blocked"
	ReasonNothingToUndo RejectReason = "nothing_to_undo"
	ReasonConflict      RejectReason = "conflict"
	ReasonNotInProgress RejectReason = "not_in_progress"
	ReasonInvalidAction RejectReason = "invalid_action"
)

// SessionState is the level/session state machine position
type SessionState string

const (
	StateNotStarted    SessionState = "not_started"
	StateInProgress    SessionState = "in_progress"
	StateEnded         SessionState = "ended"
	StateWon           SessionState = "won"
	StateChallengeMenu SessionState = "challenge_menu"
)

// Mode distinguishes a full run through every level from a single challenge level
type Mode string

const (
	ModeNormal    Mode = "normal"
	ModeChallenge Mode = "challenge"
)

// Position is an absolute pixel coordinate, always a multiple of the block size
// for entities that sit on the grid
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p translated by d
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns p - d
func (p Position) Sub(d Position) Position {
	return Position{X: p.X - d.X, Y: p.Y - d.Y}
}

// MoveOutcome is the result of AttemptMove. A rejected move carries the reason
// and the entities that should show rejection feedback.
type MoveOutcome struct {
	Committed  bool         `json:"committed"`
	Reason     RejectReason `json:"reason,omitempty"`
	Blamed     []string     `json:"blamed,omitempty"`
	Moved      []string     `json:"moved,omitempty"`
	Teleported []string     `json:"teleported,omitempty"`
	DoorOpened bool         `json:"door_opened,omitempty"`

	// Set by GameEngine when the move finished the level
	LevelComplete bool `json:"level_complete,omitempty"`
	Won           bool `json:"won,omitempty"`
}

// UndoOutcome is the result of Undo
type UndoOutcome struct {
	Committed bool         `json:"committed"`
	Reason    RejectReason `json:"reason,omitempty"`
	Blamed    []string     `json:"blamed,omitempty"`
	Reverted  []string     `json:"reverted,omitempty"`
}

// RelocationOutcome is the result of resolving an arrival on a teleporter pad
type RelocationOutcome struct {
	OnPad      bool     `json:"on_pad"`
	Teleported bool     `json:"teleported"`
	From       Position `json:"from"`
	To         Position `json:"to"`
}

// EntityView is the read-only rendering projection of one entity
type EntityView struct {
	ID      string     `json:"id"`
	Kind    EntityKind `json:"kind"`
	Pos     Position   `json:"pos"`
	Movable bool       `json:"movable"`
	Open    bool       `json:"open,omitempty"`
	Deleted bool       `json:"deleted,omitempty"`
	Depth   int        `json:"history_depth"`
}

// GameState is the complete observable state of a game
type GameState struct {
	State       SessionState       `json:"state"`
	Mode        Mode               `json:"mode"`
	LevelIndex  int                `json:"level_index"`
	LevelCount  int                `json:"level_count"`
	LevelSet    string             `json:"level_set"`
	GridSize    int                `json:"grid_size"`
	BlockSize   int                `json:"block_size"`
	Entities    []EntityView       `json:"entities"`
	Teleports   [][2]Position      `json:"teleports"`
	DoorOpen    bool               `json:"door_open"`
	Counters    Counters           `json:"counters"`
	Elapsed     float64            `json:"elapsed_seconds"`
	Message     string             `json:"message"`
	History     []ActionEntry      `json:"history,omitempty"`
	TotalAction int                `json:"total_actions"`
	Summary     *WinSummary        `json:"summary,omitempty"`
	Rows        []string           `json:"rows,omitempty"`
	Offsets     map[string]float32 `json:"offsets,omitempty"`
}

// Counters are the aggregate statistics shown on the win screen
type Counters struct {
	Moves  int `json:"moves"`
	Undos  int `json:"undos"`
	Resets int `json:"resets"`
}

// WinSummary captures the figures shown when a session is won
type WinSummary struct {
	Counters Counters `json:"counters"`
	Elapsed  float64  `json:"elapsed_seconds"`
	Mode     Mode     `json:"mode"`
}

// ActionEntry represents a single action in the game history
type ActionEntry struct {
	Action       string       `json:"action"`
	FromPosition Position     `json:"from_position"`
	ToPosition   Position     `json:"to_position"`
	LevelIndex   int          `json:"level_index"`
	Timestamp    int64        `json:"timestamp"`
	Success      bool         `json:"success"`
	Reason       RejectReason `json:"reason,omitempty"`
	ActionNumber int          `json:"action_number"`
}
