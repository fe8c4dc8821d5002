package solver

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
)

func TestAnalyzeClassic(t *testing.T) {
	set := classic(t)
	reports, err := Analyze(context.Background(), set, engine.DefaultGrid(), Options{})
	require.NoError(t, err)
	require.Len(t, reports, 3)

	first := reports[0]
	assert.Equal(t, "First steps", first.Name)
	assert.Equal(t, 0, first.MovableBlocks)
	assert.Equal(t, 2, first.StaticBlocks)
	assert.Equal(t, 7, first.KeyToDoor)
	assert.True(t, first.DoorOnWall)
	assert.False(t, first.KeyWedged)
	assert.False(t, first.Undecided)
	assert.True(t, first.Result.Solvable)

	assert.Equal(t, 1, reports[1].MovableBlocks)
	assert.Equal(t, 1, reports[2].TeleportPairs)

	var buf bytes.Buffer
	WriteReport(&buf, set, reports)
	out := buf.String()
	assert.Contains(t, out, "Name: classic")
	assert.Contains(t, out, "--- Level 1: First steps ---")
	assert.Contains(t, out, "✅ Solvable in 9 moves")
	assert.Contains(t, out, "Solution: right x9")
	assert.NotContains(t, out, "CRITICAL")
}

func TestWriteReportVerdicts(t *testing.T) {
	set := &engine.LevelSet{
		Name: "odd",
		Levels: []engine.Level{{
			PlayerStart: engine.Position{X: 400, Y: 400},
			KeyStart:    engine.Position{X: 80, Y: 80},
			DoorStart:   engine.Position{X: 800, Y: 400},
			Blocks:      []engine.BlockSpec{{X: 640, Y: 640, W: 80, H: 80}},
		}},
	}

	reports, err := Analyze(context.Background(), set, engine.DefaultGrid(), Options{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].KeyWedged)

	var buf bytes.Buffer
	WriteReport(&buf, set, reports)
	assert.Contains(t, buf.String(), "wedged in a corner")
	assert.Contains(t, buf.String(), "❌ CRITICAL: unsolvable")

	reports, err = Analyze(context.Background(), classic(t), engine.DefaultGrid(), Options{MaxStates: 1})
	require.NoError(t, err)
	buf.Reset()
	WriteReport(&buf, classic(t), reports)
	assert.Contains(t, buf.String(), "Undecided: search stopped after 1 states")
}

func TestFormatMoves(t *testing.T) {
	tests := []struct {
		moves []engine.Direction
		want  string
	}{
		{nil, ""},
		{[]engine.Direction{engine.Up}, "up"},
		{[]engine.Direction{engine.Right, engine.Right, engine.Up, engine.Left, engine.Left, engine.Left}, "right x2, up, left x3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatMoves(tt.moves))
	}
}
