// Package service provides the business logic layer for the bot arena.
//
// The service package implements:
//   - Match creation from named maps with per-request engine options
//   - Seat operations: player state, order submission and removal
//   - Turn progression and match settlement
//   - Full bot matches through the match runner
//   - Replay and result recording for finished matches
//
// Core Interfaces:
//
// GameService is the main service interface used by the HTTP, WebSocket and
// MCP transports. SessionManager stores matches, MapManager loads maps and
// default options, ResultStore records finished matches and Notifier pushes
// events to spectators.
//
// Turn Flow:
//
// CreateMatch starts turn 1. Seats whose turn it is submit orders with
// SubmitOrders; AdvanceTurn applies them. When the match is over, or the turn
// limit has been played, AdvanceTurn finishes the match: final scores are
// settled, the replay is saved and a game_over event is sent. Otherwise the
// next turn starts and a turn_update event is sent.
//
// Usage:
//
//	sessions := session.NewManager()
//	maps, _ := config.NewManager("maps", engine.DefaultOptions())
//	svc := service.NewGameService(sessions, maps, service.WithNotifier(hub))
//
//	info, err := svc.CreateMatch(ctx, service.CreateMatchRequest{Game: engine.Lights})
//	res, err := svc.SubmitOrders(ctx, info.ID, 0, []string{"3 4"})
//	info, err = svc.AdvanceTurn(ctx, info.ID)
package service
