// Package websocket streams live match events to spectators.
//
// A central Hub owns every connection. Spectators connect with the match ID
// (/ws?match=<id>), receive a snapshot of the match and then every
// turn_update and game_over event the game service publishes for it.
// Connections are read-only: anything a client sends is discarded.
//
// Messages are JSON objects:
//
//	{"match_id": "...", "event": "turn_update", "data": {...}}
//
// BroadcastEvent never blocks the caller. When the hub falls behind, events
// are dropped and a warning is logged; a spectator whose own buffer is full
// is disconnected.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, maps, service.WithNotifier(hub))
package websocket
