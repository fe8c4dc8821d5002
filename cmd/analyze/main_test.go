package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tinySet = `{
  "name": "tiny",
  "levels": [
    {"playerStart": [80, 80], "keyStart": [160, 80], "doorStart": [800, 80], "blocks": [[400, 400, 80, 80]]}
  ]
}`

func TestRunBuiltin(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), &buf, t.TempDir(), 0))

	out := buf.String()
	assert.Contains(t, out, "=== Analyzing classic (builtin) ===")
	assert.Contains(t, out, "Levels: 3")
	assert.Contains(t, out, "Solvable in 9 moves")
}

func TestRunDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.json"), []byte(tinySet), 0644))

	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), &buf, dir, 0))

	out := buf.String()
	assert.Contains(t, out, "=== Analyzing tiny.json ===")
	assert.Contains(t, out, "Name: tiny")
	assert.Contains(t, out, "Solution: right x9")
}

func TestRunMissingDirectory(t *testing.T) {
	var buf bytes.Buffer
	err := run(context.Background(), &buf, filepath.Join(t.TempDir(), "nope"), 0)
	assert.Error(t, err)
}
