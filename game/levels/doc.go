// Package levels manages the level set files played by the server.
//
// A level set is a JSON file in the levels directory. Its file name without
// the .json suffix is the level set ID used when creating sessions. Both the
// object form ({"name": ..., "levels": [...]}) and the bare array written by
// the level editor are accepted.
//
// The classic set is compiled into the binary and served whenever the
// directory has no classic.json, so a server started on an empty directory
// can still create sessions.
//
// Usage:
//
//	manager, err := levels.NewManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	set, err := manager.LoadLevelSet("classic")
//	infos, err := manager.ListLevelSets()
package levels
