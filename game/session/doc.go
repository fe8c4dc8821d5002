// Package session provides session storage for the key and door puzzle server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Short random session IDs with collision retry
//   - JSON file persistence of progress and continue checkpoints
//   - Expiry of idle sessions from memory
//
// Core Types:
//
// Manager keeps live sessions in memory and writes them through to an
// optional SessionPersistence. FilePersistence stores one JSON file per
// session holding the level set name, the saved Progress and the checkpoint
// used by Continue. Loading a session rebuilds its engine from the level set
// and restores the saved progress on top of it.
//
// Session Identifiers:
//
// Generated IDs are 4 hex characters. Callers may also pick their own ID made
// of letters, digits, '-' and '_'. Lookups are case-insensitive.
//
// Usage:
//
//	levelMgr, _ := levels.NewManager("levels")
//	persistence, _ := session.NewFilePersistence("sessions", levelMgr)
//	manager := session.NewManagerWithPersistence(persistence)
//	_ = manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("", levels.BuiltinName, levelMgr.GetDefault())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//
// Cleanup:
//
// CleanupExpiredSessions drops idle sessions from memory only. Their files
// stay on disk and the next Get loads them again.
package session
