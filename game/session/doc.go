// Package session provides match session management for the bot arena.
//
// The session package implements:
//   - Thread-safe storage of running matches keyed by uuid
//   - Default player names for anonymous seats
//   - Replay persistence for finished matches
//   - Cleanup of finished matches
//
// Core Types:
//
// Manager creates matches from a validated map and engine options and keeps
// them in memory. Each session owns one engine.Game guarded by the session
// lock; callers must hold it while driving the game.
//
// ReplayPersistence stores finished matches. FilePersistence writes one
// indented JSON file per match, <id>.json, holding the replay together with
// the map name and player names.
//
// Usage:
//
//	store, _ := session.NewFilePersistence("replays")
//	manager := session.NewManagerWithPersistence(store)
//
//	sess, err := manager.Create(m, engine.DefaultOptions(), []string{"alice", "bob"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// ... play the match, then
//	err = manager.Save(sess.ID)
//	replay, err := manager.LoadReplay(sess.ID)
package session
