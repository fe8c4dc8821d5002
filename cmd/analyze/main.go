// Command analyze prints quick, human-readable reports about the level sets
// in a levels directory. For every level it summarizes blocks, teleporters
// and the key to door distance, flags keys that start wedged in a corner and
// runs a bounded solver to report the shortest solution.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/levels"
	"github.com/wricardo/mcp-training/keydoor/game/solver"
)

func main() {
	dir := "levels"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	maxStates := solver.DefaultMaxStates
	if v := os.Getenv("ANALYZE_MAX_STATES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxStates = n
		}
	}

	if err := run(context.Background(), os.Stdout, dir, maxStates); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, dir string, maxStates int) error {
	manager, err := levels.NewManager(dir)
	if err != nil {
		return err
	}
	infos, err := manager.ListLevelSets()
	if err != nil {
		return err
	}

	for _, info := range infos {
		label := info.Filename
		if label == "" {
			label = info.LevelSetID + " (builtin)"
		}
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", label)
		set, err := manager.LoadLevelSet(info.LevelSetID)
		if err != nil {
			fmt.Fprintf(w, "Error loading level set: %v\n", err)
			continue
		}
		reports, err := solver.Analyze(ctx, set, engine.DefaultGrid(), solver.Options{MaxStates: maxStates})
		if err != nil {
			fmt.Fprintf(w, "Error analyzing level set: %v\n", err)
			continue
		}
		solver.WriteReport(w, set, reports)
	}
	return nil
}
