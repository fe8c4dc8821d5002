package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/feedback"
)

// ErrNothingToContinue is returned by Continue when the session has no saved
// run to resume
var ErrNothingToContinue = errors.New("no saved progress to continue")

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, levelSet string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Session state machine
	Start(ctx context.Context, sessionID string) (*engine.GameState, error)
	Continue(ctx context.Context, sessionID string) (*engine.GameState, error)
	OpenChallengeMenu(ctx context.Context, sessionID string) (*engine.GameState, error)
	SelectChallenge(ctx context.Context, sessionID string, level int) (*engine.GameState, error)
	Quit(ctx context.Context, sessionID string) (*engine.GameState, error)
	Acknowledge(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game Operations
	Move(ctx context.Context, sessionID, direction string) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error)
	Undo(ctx context.Context, sessionID string) (*UndoResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetActionHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Level sets
	ListLevelSets(ctx context.Context) ([]*LevelSetInfo, error)
	LoadLevelSet(ctx context.Context, name string) (*engine.LevelSet, error)
	SaveLevelSet(ctx context.Context, name string, set *engine.LevelSet) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, levelSetID string, set *engine.LevelSet) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, levelSetID string, set *engine.LevelSet) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// LevelManager handles level set loading
type LevelManager interface {
	LoadLevelSet(name string) (*engine.LevelSet, error)
	ListLevelSets() ([]*LevelSetInfo, error)
	GetDefault() *engine.LevelSet
	SaveLevelSet(name string, set *engine.LevelSet) error
}

// Session represents an active game session
type Session struct {
	ID         string
	Engine     *engine.GameEngine
	LevelSet   *engine.LevelSet
	LevelSetID string
	Feedback   *feedback.Tracker

	// Checkpoint is the last autosaved point of a normal run, used by
	// Continue. It is cleared once the run is won.
	Checkpoint *engine.Progress

	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// NewSession builds a session around a fresh engine whose autosaves keep the
// session checkpoint current
func NewSession(id, levelSetID string, set *engine.LevelSet) (*Session, error) {
	sess := &Session{
		ID:             id,
		LevelSet:       set,
		LevelSetID:     levelSetID,
		Feedback:       feedback.NewTracker(),
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	eng, err := engine.NewEngine(set, engine.Options{Autosave: sess.checkpoint})
	if err != nil {
		return nil, err
	}
	sess.Engine = eng
	return sess, nil
}

func (s *Session) checkpoint(p engine.Progress) {
	if p.Mode != engine.ModeNormal {
		return
	}
	switch p.State {
	case engine.StateInProgress:
		s.Checkpoint = &p
	case engine.StateWon:
		s.Checkpoint = nil
	}
}

// CanContinue reports whether Continue has a saved run to resume
func (s *Session) CanContinue() bool {
	return s.Checkpoint != nil
}
