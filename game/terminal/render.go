package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/feedback"
)

// cellWidth is the number of screen columns per board cell, wide enough for
// one emoji
const cellWidth = 2

// Glyphs for each board rune
var glyphs = map[rune]string{
	'#': "🧱",
	'.': "·",
	'O': "🌀",
	'X': "⬛",
	'B': "📦",
	'D': "🚪",
	'E': "✨",
	'K': "🔑",
	'P': "🙂",
}

var (
	styleDefault = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleTitle   = styleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleDim     = styleDefault.Foreground(tcell.ColorGray)
	styleAlert   = styleDefault.Foreground(tcell.ColorRed)
	styleGood    = styleDefault.Foreground(tcell.ColorGreen)
)

// putGlyph draws a single glyph (ASCII or multi-rune emoji) at screen position (x, y)
func putGlyph(s tcell.Screen, x, y int, glyph string, style tcell.Style) {
	runes := []rune(glyph)
	if len(runes) == 0 {
		return
	}
	var combc []rune
	if len(runes) > 1 {
		combc = runes[1:]
	}
	s.SetContent(x, y, runes[0], combc, style)
	if runewidth.StringWidth(glyph) < cellWidth {
		// Fill the second column to avoid rendering artifacts
		s.SetContent(x+1, y, ' ', nil, style)
	}
}

// drawText writes str starting at (x, y) and returns the column after it
func drawText(s tcell.Screen, x, y int, str string, style tcell.Style) int {
	for _, r := range str {
		s.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
	return x
}

// drawBoard renders the board rows. Entities that are shaking are drawn one
// column to the right while their offset is past half the jitter distance.
func drawBoard(s tcell.Screen, x0, y0 int, state *engine.GameState) {
	for row, line := range state.Rows {
		col := 0
		for _, r := range line {
			glyph, ok := glyphs[r]
			if !ok {
				glyph = string(r)
			}
			putGlyph(s, x0+col*cellWidth, y0+row, glyph, styleDefault)
			col++
		}
	}

	if state.BlockSize <= 0 {
		return
	}
	for _, e := range state.Entities {
		offset, shaking := state.Offsets[e.ID]
		if !shaking || e.Deleted || offset < feedback.Distance/2 {
			continue
		}
		col, row := e.Pos.X/state.BlockSize, e.Pos.Y/state.BlockSize
		if row < 0 || row >= len(state.Rows) {
			continue
		}
		line := []rune(state.Rows[row])
		if col < 0 || col >= len(line) {
			continue
		}
		x := x0 + col*cellWidth
		s.SetContent(x, y0+row, ' ', nil, styleDefault)
		putGlyph(s, x+1, y0+row, glyphs[line[col]], styleAlert)
	}
}

// drawHUD renders counters and the status line below the board
func drawHUD(s tcell.Screen, x0, y0 int, state *engine.GameState, status string) int {
	y := y0
	drawText(s, x0, y, fmt.Sprintf("Level %d/%d  %s  (%s)", state.LevelIndex+1, state.LevelCount, state.LevelSet, state.Mode), styleTitle)
	y++
	drawText(s, x0, y, fmt.Sprintf("Moves %d  Undos %d  Resets %d  Time %.0fs",
		state.Counters.Moves, state.Counters.Undos, state.Counters.Resets, state.Elapsed), styleDefault)
	y++
	door := "locked"
	doorStyle := styleDim
	if state.DoorOpen {
		door = "open"
		doorStyle = styleGood
	}
	drawText(s, x0, y, "Door: "+door, doorStyle)
	y++
	if status != "" {
		drawText(s, x0, y, status, styleAlert)
		y++
	}
	y++
	drawText(s, x0, y, "Arrows/WASD move  Z undo  R reset  Q quit", styleDim)
	return y + 1
}

// drawMenu renders the start screen
func drawMenu(s tcell.Screen, canContinue bool, status string) {
	y := 1
	drawText(s, 2, y, "KEY & DOOR", styleTitle)
	y += 2
	drawText(s, 2, y, "Push the key into the door, then walk through it.", styleDefault)
	y += 2
	drawText(s, 4, y, "[S] Start", styleDefault)
	y++
	continueStyle := styleDim
	if canContinue {
		continueStyle = styleDefault
	}
	drawText(s, 4, y, "[C] Continue", continueStyle)
	y++
	drawText(s, 4, y, "[L] Challenge a level", styleDefault)
	y++
	drawText(s, 4, y, "[Q] Exit", styleDefault)
	if status != "" {
		drawText(s, 2, y+2, status, styleAlert)
	}
}

// drawChallengeMenu renders the level picker
func drawChallengeMenu(s tcell.Screen, state *engine.GameState, status string) {
	drawText(s, 2, 1, "CHALLENGE", styleTitle)
	drawText(s, 2, 3, state.Message, styleDefault)
	y := 5
	for i := 0; i < state.LevelCount && i < 9; i++ {
		drawText(s, 4, y, fmt.Sprintf("[%d] Level %d", i+1, i+1), styleDefault)
		y++
	}
	drawText(s, 4, y+1, "[Q] Back", styleDim)
	if status != "" {
		drawText(s, 2, y+3, status, styleAlert)
	}
}

// drawEnd renders the ended and won screens
func drawEnd(s tcell.Screen, state *engine.GameState) {
	y := 1
	if state.State == engine.StateWon {
		drawText(s, 2, y, "YOU WIN!", styleGood.Bold(true))
	} else {
		drawText(s, 2, y, "GAME OVER", styleAlert.Bold(true))
	}
	y += 2
	if sum := state.Summary; sum != nil {
		drawText(s, 2, y, fmt.Sprintf("Mode: %s", sum.Mode), styleDefault)
		y++
		drawText(s, 2, y, fmt.Sprintf("Moves %d  Undos %d  Resets %d", sum.Counters.Moves, sum.Counters.Undos, sum.Counters.Resets), styleDefault)
		y++
		drawText(s, 2, y, fmt.Sprintf("Time %.1fs", sum.Elapsed), styleDefault)
		y++
	} else if state.Message != "" {
		drawText(s, 2, y, state.Message, styleDefault)
		y++
	}
	drawText(s, 2, y+1, "[Enter] Back to menu  [Q] Exit", styleDim)
}
