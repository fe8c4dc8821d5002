package terminal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/service"
)

// frameInterval paces redraws while a rejection jitter is running
const frameInterval = 16 * time.Millisecond

// Game is a terminal frontend for one session. All game logic lives behind
// service.GameService; Game only maps keys to calls and draws the result.
type Game struct {
	screen    tcell.Screen
	service   service.GameService
	sessionID string

	state       *engine.GameState
	canContinue bool
	status      string
	animating   atomic.Bool
}

// New creates a frontend for sessionID. The screen must already be
// initialized; the caller finalizes it.
func New(screen tcell.Screen, gameService service.GameService, sessionID string) *Game {
	return &Game{
		screen:    screen,
		service:   gameService,
		sessionID: sessionID,
	}
}

// State returns the last observed game state
func (g *Game) State() *engine.GameState {
	return g.state
}

// Run is the main loop. It returns when the player exits or ctx is done.
func (g *Game) Run(ctx context.Context) error {
	if err := g.refresh(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go g.animate(ctx)

	for {
		g.Draw()

		ev := g.screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return nil
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			g.screen.Sync()
		case *tcell.EventInterrupt:
			state, err := g.service.GetGameState(ctx, g.sessionID)
			if err != nil {
				return err
			}
			g.observe(state)
		case *tcell.EventKey:
			action, level := keyToAction(g.state.State, ev)
			exit, err := g.Handle(ctx, action, level)
			if err != nil {
				return err
			}
			if exit {
				return nil
			}
		}
	}
}

// animate wakes the loop while a jitter is running so it can redraw
func (g *Game) animate(ctx context.Context) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Unblock PollEvent
			g.screen.PostEvent(tcell.NewEventInterrupt(nil))
			return
		case <-ticker.C:
			if g.animating.Load() {
				g.screen.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}
}

// Handle applies one action. Rejected moves and invalid transitions are
// shown on the status line; only service failures are returned.
func (g *Game) Handle(ctx context.Context, action Action, level int) (exit bool, err error) {
	g.status = ""

	if dir, ok := direction(action); ok {
		result, err := g.service.Move(ctx, g.sessionID, string(dir))
		if err != nil {
			return false, err
		}
		if !result.Success {
			g.status = result.Message
		}
		g.observe(result.GameState)
		return false, nil
	}

	var state *engine.GameState
	switch action {
	case ActionNone:
		return false, nil
	case ActionExit:
		return true, nil
	case ActionUndo:
		result, err := g.service.Undo(ctx, g.sessionID)
		if err != nil {
			return false, err
		}
		if !result.Success {
			g.status = result.Message
		}
		g.observe(result.GameState)
		return false, nil
	case ActionReset:
		state, err = g.service.Reset(ctx, g.sessionID)
	case ActionStart:
		state, err = g.service.Start(ctx, g.sessionID)
	case ActionContinue:
		state, err = g.service.Continue(ctx, g.sessionID)
	case ActionChallenge:
		state, err = g.service.OpenChallengeMenu(ctx, g.sessionID)
	case ActionSelectLevel:
		state, err = g.service.SelectChallenge(ctx, g.sessionID, level)
	case ActionQuit:
		state, err = g.service.Quit(ctx, g.sessionID)
	case ActionAcknowledge:
		state, err = g.service.Acknowledge(ctx, g.sessionID)
	}

	if err != nil {
		// Transition errors are player mistakes, not failures
		log.WithField("session", g.sessionID).Debugf("terminal action %d: %v", action, err)
		g.status = err.Error()
		return false, g.refresh(ctx)
	}
	g.observe(state)
	return false, g.refresh(ctx)
}

func (g *Game) observe(state *engine.GameState) {
	if state == nil {
		return
	}
	g.state = state
	g.animating.Store(len(state.Offsets) > 0)
}

// refresh reloads the state and whether a saved run can be continued
func (g *Game) refresh(ctx context.Context) error {
	info, err := g.service.GetSession(ctx, g.sessionID)
	if err != nil {
		return err
	}
	g.canContinue = info.CanContinue
	state, err := g.service.GetGameState(ctx, g.sessionID)
	if err != nil {
		return err
	}
	g.observe(state)
	return nil
}

// Draw renders the current screen
func (g *Game) Draw() {
	g.screen.Clear()
	if g.state == nil {
		g.screen.Show()
		return
	}

	switch g.state.State {
	case engine.StateNotStarted:
		drawMenu(g.screen, g.canContinue, g.status)
	case engine.StateChallengeMenu:
		drawChallengeMenu(g.screen, g.state, g.status)
	case engine.StateInProgress:
		drawBoard(g.screen, 2, 1, g.state)
		hudY := 1 + len(g.state.Rows) + 1
		y := drawHUD(g.screen, 2, hudY, g.state, g.status)
		if g.state.Message != "" {
			drawText(g.screen, 2, y, g.state.Message, styleDefault)
		}
	case engine.StateEnded, engine.StateWon:
		drawEnd(g.screen, g.state)
	}
	g.screen.Show()
}
