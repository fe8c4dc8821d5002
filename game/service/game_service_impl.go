package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
)

// ErrInvalidDirection is returned by Move for a direction it cannot parse
var ErrInvalidDirection = errors.New("invalid direction")

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	levels   LevelManager
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, levels LevelManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
	}
}

// getLevelSetID returns the level_set_id for a display name, used for
// consistent API responses
func (s *gameServiceImpl) getLevelSetID(name string) string {
	available, err := s.levels.ListLevelSets()
	if err == nil {
		for _, info := range available {
			if info.Name == name {
				return info.LevelSetID
			}
		}
	}
	if name == "" {
		return "default"
	}
	return name
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		LevelSetID:     sess.LevelSetID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		CanContinue:    sess.CanContinue(),
		GameState:      sess.Engine.GetState(),
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelSet string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var set *engine.LevelSet
	var err error
	levelSetID := levelSet
	if levelSet != "" {
		set, err = s.levels.LoadLevelSet(levelSet)
		if err != nil {
			return nil, s.levelSetError(levelSet, err)
		}
	} else {
		set = s.levels.GetDefault()
		levelSetID = s.getLevelSetID(set.Name)
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", levelSetID, set)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.WithFields(log.Fields{"session": sess.ID, "level_set": levelSetID}).Info("session created")
	return sessionInfo(sess), nil
}

// levelSetError lists the available level sets when the requested one is missing
func (s *gameServiceImpl) levelSetError(name string, err error) error {
	if !strings.Contains(err.Error(), "not found") {
		return fmt.Errorf("failed to load level set %s: %w", name, err)
	}
	available, listErr := s.levels.ListLevelSets()
	if listErr == nil && len(available) > 0 {
		var ids []string
		for _, info := range available {
			ids = append(ids, info.LevelSetID)
		}
		return fmt.Errorf("level set '%s' not found. Available level sets: %v: %w", name, ids, err)
	}
	return fmt.Errorf("level set '%s' not found. Use /api/levels to list available level sets: %w", name, err)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	// Exclusive: the access time is written here and read by ListSessions
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// session looks up a session and marks it accessed. Callers hold s.mu for
// writing.
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// persist saves the session after a mutation; failures only warn
func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Warnf("Failed to persist session %s after %s: %v", sessionID, after, err)
	}
}

// transition runs one state machine event and returns the resulting state
func (s *gameServiceImpl) transition(sessionID, event string, fn func(sess *Session) error) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"session": sess.ID, "event": event, "state": sess.Engine.State()}).Debug("state transition")
	s.persist(sessionID, event)
	return s.state(sess), nil
}

// Start begins a normal run from the first level
func (s *gameServiceImpl) Start(ctx context.Context, sessionID string) (*engine.GameState, error) {
	return s.transition(sessionID, "start", func(sess *Session) error {
		return sess.Engine.Start()
	})
}

// Continue resumes the session's last autosaved run
func (s *gameServiceImpl) Continue(ctx context.Context, sessionID string) (*engine.GameState, error) {
	return s.transition(sessionID, "continue", func(sess *Session) error {
		if sess.Checkpoint == nil {
			return ErrNothingToContinue
		}
		return sess.Engine.Continue(*sess.Checkpoint)
	})
}

// OpenChallengeMenu shows the level picker
func (s *gameServiceImpl) OpenChallengeMenu(ctx context.Context, sessionID string) (*engine.GameState, error) {
	return s.transition(sessionID, "challenge_menu", func(sess *Session) error {
		return sess.Engine.OpenChallengeMenu()
	})
}

// SelectChallenge plays a single zero-based level from the main menu or the
// challenge menu. During a run it fails with engine.ErrInvalidTransition.
func (s *gameServiceImpl) SelectChallenge(ctx context.Context, sessionID string, level int) (*engine.GameState, error) {
	return s.transition(sessionID, "challenge", func(sess *Session) error {
		if sess.Engine.State() == engine.StateNotStarted {
			if err := sess.Engine.OpenChallengeMenu(); err != nil {
				return err
			}
		}
		return sess.Engine.SelectChallenge(level)
	})
}

// Quit leaves the current run
func (s *gameServiceImpl) Quit(ctx context.Context, sessionID string) (*engine.GameState, error) {
	return s.transition(sessionID, "quit", func(sess *Session) error {
		return sess.Engine.Quit()
	})
}

// Acknowledge dismisses the ended or won screen
func (s *gameServiceImpl) Acknowledge(ctx context.Context, sessionID string) (*engine.GameState, error) {
	return s.transition(sessionID, "acknowledge", func(sess *Session) error {
		return sess.Engine.Acknowledge()
	})
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string) (*MoveResult, error) {
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	out := sess.Engine.Move(dir)
	step := s.step(sess, 1, dir, out)
	if !out.Committed {
		s.jitter(sess, out.Blamed)
	}

	state := s.state(sess)
	result := &MoveResult{
		Success:   out.Committed,
		Reason:    out.Reason,
		Blamed:    out.Blamed,
		GameState: state,
		Message:   state.Message,
		Events:    moveEvents(step, out, state.Message),
		Step:      &step,
	}

	log.WithFields(log.Fields{
		"session": sess.ID,
		"dir":     dir,
		"success": out.Committed,
		"reason":  out.Reason,
	}).Infof("[MOVE] session=%s dir=%s success=%t", sess.ID, dir, out.Committed)

	s.persist(sessionID, "move")
	return result, nil
}

// BulkMove executes multiple moves in sequence. It stops at the first
// rejected move, the first finished level or a won session.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
		StartPos:       sess.Engine.Board().Player.Pos,
		StartLevel:     sess.Engine.LevelIndex(),
	}

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, move := range moves {
		if sess.Engine.State() != engine.StateInProgress {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("session is %s", sess.Engine.State())
			result.StopReasonCode = string(engine.ReasonNotInProgress)
			result.StoppedOnMove = i + 1
			break
		}

		dir, err := engine.ParseDirection(move)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d: invalid direction %q", i+1, move)
			result.StopReasonCode = "invalid_direction"
			result.StoppedOnMove = i + 1
			break
		}

		out := sess.Engine.Move(dir)
		step := s.step(sess, i+1, dir, out)
		result.Steps = append(result.Steps, step)
		result.Events = append(result.Events, moveEvents(step, out, sess.Engine.GetState().Message)...)

		if !out.Committed {
			s.jitter(sess, out.Blamed)
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d %s: %s", i+1, move, out.Reason)
			result.StopReasonCode = string(out.Reason)
			result.StoppedOnMove = i + 1
			break
		}
		result.MovesExecuted++

		if out.LevelComplete {
			if i+1 < len(moves) {
				result.StoppedReason = fmt.Sprintf("level finished on move %d", i+1)
				result.StoppedOnMove = i + 1
			}
			result.StopReasonCode = "level_complete"
			if out.Won {
				result.StopReasonCode = "won"
			}
			break
		}
	}

	result.GameState = s.state(sess)
	result.EndPos = sess.Engine.Board().Player.Pos
	result.EndLevel = sess.Engine.LevelIndex()
	result.Message = result.GameState.Message

	log.WithFields(log.Fields{
		"session":   sess.ID,
		"requested": result.RequestedMoves,
		"executed":  result.MovesExecuted,
		"stop":      result.StopReasonCode,
	}).Info("[BULK_MOVE]")

	s.persist(sessionID, "bulk moves")
	return result, nil
}

// Undo reverts the last step of every entity in the session's level
func (s *gameServiceImpl) Undo(ctx context.Context, sessionID string) (*UndoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	out := sess.Engine.Undo()
	if !out.Committed {
		s.jitter(sess, out.Blamed)
	}
	state := s.state(sess)

	result := &UndoResult{
		Success:   out.Committed,
		Reason:    out.Reason,
		Blamed:    out.Blamed,
		Reverted:  out.Reverted,
		GameState: state,
		Message:   state.Message,
	}
	if out.Committed {
		result.Events = append(result.Events, GameEvent{
			Type:      "undo",
			Message:   fmt.Sprintf("Reverted %s", strings.Join(out.Reverted, ", ")),
			Timestamp: time.Now(),
			Position:  sess.Engine.Board().Player.Pos,
			Entities:  out.Reverted,
		})
	} else if len(out.Blamed) > 0 {
		result.Events = append(result.Events, GameEvent{
			Type:      "blocked",
			Message:   state.Message,
			Timestamp: time.Now(),
			Entities:  out.Blamed,
		})
	}

	log.WithFields(log.Fields{"session": sess.ID, "success": out.Committed, "reason": out.Reason}).Info("[UNDO]")

	s.persist(sessionID, "undo")
	return result, nil
}

// Reset restores the current level of a session to its authored layout
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	return s.transition(sessionID, "reset", func(sess *Session) error {
		return sess.Engine.ResetLevel()
	})
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	// Exclusive: marks the session accessed and ticks the feedback tracker
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.state(sess), nil
}

// state snapshots the engine with the current jitter offsets
func (s *gameServiceImpl) state(sess *Session) *engine.GameState {
	sess.Feedback.Tick(time.Now())
	state := sess.Engine.GetState()
	state.Offsets = sess.Feedback.Offsets()
	return state
}

// jitter starts rejection feedback on the blamed entities
func (s *gameServiceImpl) jitter(sess *Session, ids []string) {
	if len(ids) == 0 {
		return
	}
	sess.Feedback.Tick(time.Now())
	sess.Feedback.Trigger(ids...)
}

// GetActionHistory returns paginated action history
func (s *gameServiceImpl) GetActionHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetActionHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	actions := []engine.ActionEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			actions = append(actions, history[i])
		}
	} else if start < total {
		actions = append(actions, history[start:end]...)
	}

	return &HistoryResponse{
		Actions:      actions,
		TotalActions: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// ListLevelSets returns the available level sets
func (s *gameServiceImpl) ListLevelSets(ctx context.Context) ([]*LevelSetInfo, error) {
	return s.levels.ListLevelSets()
}

// LoadLevelSet loads a specific level set
func (s *gameServiceImpl) LoadLevelSet(ctx context.Context, name string) (*engine.LevelSet, error) {
	return s.levels.LoadLevelSet(name)
}

// SaveLevelSet saves a level set to disk
func (s *gameServiceImpl) SaveLevelSet(ctx context.Context, name string, set *engine.LevelSet) error {
	return s.levels.SaveLevelSet(name, set)
}

// step builds the compact trace of the move just made from the action log
func (s *gameServiceImpl) step(sess *Session, idx int, dir engine.Direction, out engine.MoveOutcome) StepInfo {
	step := StepInfo{
		Idx:           idx,
		Dir:           string(dir),
		Success:       out.Committed,
		Reason:        out.Reason,
		Pushed:        pushed(out.Moved),
		Teleported:    len(out.Teleported) > 0,
		DoorOpened:    out.DoorOpened,
		LevelComplete: out.LevelComplete,
		Won:           out.Won,
	}
	if history := sess.Engine.GetActionHistory(); len(history) > 0 {
		last := history[len(history)-1]
		step.From = last.FromPosition
		step.To = last.ToPosition
	}
	return step
}

// pushed returns the moved entities other than the player
func pushed(moved []string) []string {
	var out []string
	for _, id := range moved {
		if id != string(engine.KindPlayer) {
			out = append(out, id)
		}
	}
	return out
}

// moveEvents generates the events of one move
func moveEvents(step StepInfo, out engine.MoveOutcome, message string) []GameEvent {
	now := time.Now()
	if !out.Committed {
		return []GameEvent{{
			Type:      "blocked",
			Message:   message,
			Timestamp: now,
			Position:  step.From,
			Entities:  out.Blamed,
		}}
	}

	events := []GameEvent{{
		Type:      "move",
		Message:   fmt.Sprintf("Moved %s to (%d,%d)", step.Dir, step.To.X, step.To.Y),
		Timestamp: now,
		Position:  step.To,
	}}
	if len(step.Pushed) > 0 {
		events = append(events, GameEvent{
			Type:      "push",
			Message:   fmt.Sprintf("Pushed %s", strings.Join(step.Pushed, ", ")),
			Timestamp: now,
			Entities:  step.Pushed,
		})
	}
	if len(out.Teleported) > 0 {
		events = append(events, GameEvent{
			Type:      "teleport",
			Message:   fmt.Sprintf("Teleported %s", strings.Join(out.Teleported, ", ")),
			Timestamp: now,
			Entities:  out.Teleported,
		})
	}
	if out.DoorOpened {
		events = append(events, GameEvent{
			Type:      "door_opened",
			Message:   "The key opened the door",
			Timestamp: now,
		})
	}
	if out.LevelComplete {
		events = append(events, GameEvent{
			Type:      "level_complete",
			Message:   message,
			Timestamp: now,
			Position:  step.To,
		})
	}
	if out.Won {
		events = append(events, GameEvent{
			Type:      "won",
			Message:   message,
			Timestamp: now,
		})
	}
	return events
}
