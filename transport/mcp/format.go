package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/service"
)

const legend = "Legend: P=player K=key D=locked door E=open door B=block X=static block O=teleporter #=wall .=floor"

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	fmt.Fprintf(&b, "Level set: %s\n", session.LevelSetID)
	fmt.Fprintf(&b, "Created: %s\n", session.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Last accessed: %s\n", session.LastAccessedAt.Format("2006-01-02 15:04:05"))
	if session.CanContinue {
		b.WriteString("A saved run can be continued.\n")
	}
	if session.GameState != nil {
		b.WriteString("\n")
		b.WriteString(formatGameState(session.GameState))
	}
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "State: %s", state.State)
	if state.State == engine.StateInProgress {
		fmt.Fprintf(&b, " | Mode: %s | Level %d/%d", state.Mode, state.LevelIndex+1, state.LevelCount)
	}
	fmt.Fprintf(&b, " | Level set: %s\n", state.LevelSet)
	fmt.Fprintf(&b, "Moves: %d | Undos: %d | Resets: %d | Time: %.1fs\n",
		state.Counters.Moves, state.Counters.Undos, state.Counters.Resets, state.Elapsed)

	if state.State == engine.StateInProgress {
		if state.DoorOpen {
			b.WriteString("Door: OPEN - walk the player onto E\n")
		} else {
			b.WriteString("Door: locked - push the key into D\n")
		}
		if player, ok := findEntity(state, engine.KindPlayer); ok && state.BlockSize > 0 {
			fmt.Fprintf(&b, "Player at column %d, row %d\n", player.Pos.X/state.BlockSize, player.Pos.Y/state.BlockSize)
		}
	}

	if len(state.Rows) > 0 {
		b.WriteString("\nMap:\n")
		for _, row := range state.Rows {
			b.WriteString(row)
			b.WriteString("\n")
		}
		b.WriteString(legend)
		b.WriteString("\n")
	}

	if state.Summary != nil {
		fmt.Fprintf(&b, "\nSUMMARY (%s): %d moves, %d undos, %d resets in %.1fs\n",
			state.Summary.Mode, state.Summary.Counters.Moves, state.Summary.Counters.Undos,
			state.Summary.Counters.Resets, state.Summary.Elapsed)
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s\n", state.Message)
	}
	return b.String()
}

func formatEvents(b *strings.Builder, events []service.GameEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("Events:\n")
	for _, event := range events {
		fmt.Fprintf(b, "- [%s] %s\n", event.Type, event.Message)
	}
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "Move successful! %s\n", result.Message)
	} else {
		fmt.Fprintf(&b, "Move rejected (%s): %s\n", result.Reason, result.Message)
		if len(result.Blamed) > 0 {
			fmt.Fprintf(&b, "Blocked by: %s\n", strings.Join(result.Blamed, ", "))
		}
	}
	if result.Step != nil && len(result.Step.Pushed) > 0 {
		fmt.Fprintf(&b, "Pushed: %s\n", strings.Join(result.Step.Pushed, ", "))
	}
	formatEvents(&b, result.Events)
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bulk move for session %s: executed %d of %d moves\n", sessionID, result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, "Request truncated to %d moves\n", result.Limit)
	}
	if result.StopReasonCode != "" {
		fmt.Fprintf(&b, "Stopped on move %d: %s (%s)\n", result.StoppedOnMove, result.StoppedReason, result.StopReasonCode)
	}
	fmt.Fprintf(&b, "Player: (%d,%d) -> (%d,%d), level %d -> %d\n",
		result.StartPos.X, result.StartPos.Y, result.EndPos.X, result.EndPos.Y,
		result.StartLevel+1, result.EndLevel+1)

	if len(result.Steps) > 0 {
		b.WriteString("Steps:\n")
		for _, step := range result.Steps {
			status := "ok"
			if !step.Success {
				status = string(step.Reason)
			}
			var notes []string
			if len(step.Pushed) > 0 {
				notes = append(notes, "pushed "+strings.Join(step.Pushed, ","))
			}
			if step.Teleported {
				notes = append(notes, "teleported")
			}
			if step.DoorOpened {
				notes = append(notes, "door opened")
			}
			if step.LevelComplete {
				notes = append(notes, "level complete")
			}
			if step.Won {
				notes = append(notes, "won")
			}
			fmt.Fprintf(&b, "  %d. %-5s %s", step.Idx, step.Dir, status)
			if len(notes) > 0 {
				fmt.Fprintf(&b, " [%s]", strings.Join(notes, "; "))
			}
			b.WriteString("\n")
		}
	}

	formatEvents(&b, result.Events)
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatUndoResult(result *service.UndoResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "Undo successful! Reverted: %s\n", strings.Join(result.Reverted, ", "))
	} else {
		fmt.Fprintf(&b, "Undo rejected (%s): %s\n", result.Reason, result.Message)
		if len(result.Blamed) > 0 {
			fmt.Fprintf(&b, "Conflicting entities: %s\n", strings.Join(result.Blamed, ", "))
		}
	}
	formatEvents(&b, result.Events)
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Action History (page %d/%d, %d total actions)\n\n", history.Page, history.TotalPages, history.TotalActions)
	for _, action := range history.Actions {
		status := "ok"
		if !action.Success {
			status = string(action.Reason)
		}
		fmt.Fprintf(&b, "#%d %-6s level %d (%d,%d) -> (%d,%d) %s\n",
			action.ActionNumber, action.Action, action.LevelIndex+1,
			action.FromPosition.X, action.FromPosition.Y,
			action.ToPosition.X, action.ToPosition.Y, status)
	}
	if history.HasPrevious {
		b.WriteString("\n(previous page available)")
	}
	if history.HasNext {
		b.WriteString("\n(next page available)")
	}
	return b.String()
}

func findEntity(state *engine.GameState, kind engine.EntityKind) (engine.EntityView, bool) {
	for _, e := range state.Entities {
		if e.Kind == kind && !e.Deleted {
			return e, true
		}
	}
	return engine.EntityView{}, false
}

// describeCell reports what occupies a cell of the rendered map. The menus
// show no board even though the first level is already loaded.
func describeCell(state *engine.GameState, col, row int) (string, error) {
	inMenu := state.State == engine.StateNotStarted || state.State == engine.StateChallengeMenu
	if inMenu || state.BlockSize <= 0 || len(state.Rows) == 0 {
		return "", fmt.Errorf("no board is loaded (state: %s)", state.State)
	}
	if row < 0 || row >= len(state.Rows) || col < 0 || col >= len(state.Rows[row]) {
		return "", fmt.Errorf("cell (%d,%d) is outside the %dx%d map", col, row, len(state.Rows), len(state.Rows))
	}

	pos := engine.Position{X: col * state.BlockSize, Y: row * state.BlockSize}
	var parts []string
	for _, e := range state.Entities {
		if e.Deleted || e.Pos != pos {
			continue
		}
		desc := fmt.Sprintf("%s (%s)", e.ID, e.Kind)
		if e.Kind == engine.KindDoor {
			if e.Open {
				desc += ", open"
			} else {
				desc += ", locked"
			}
		}
		if !e.Movable && e.Kind != engine.KindDoor {
			desc += ", static"
		}
		parts = append(parts, desc)
	}
	for i, pair := range state.Teleports {
		if pair[0] == pos || pair[1] == pos {
			parts = append(parts, fmt.Sprintf("teleporter pad of pair %d", i+1))
		}
	}

	symbol := string(state.Rows[row][col])
	switch {
	case len(parts) > 0:
		return fmt.Sprintf("Cell (%d,%d) [%s]: %s", col, row, symbol, strings.Join(parts, "; ")), nil
	case symbol == "#":
		return fmt.Sprintf("Cell (%d,%d) [#]: wall", col, row), nil
	default:
		return fmt.Sprintf("Cell (%d,%d) [%s]: empty floor", col, row, symbol), nil
	}
}
