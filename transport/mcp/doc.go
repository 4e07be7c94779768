// Package mcp exposes the bot arena to AI agents over the Model Context
// Protocol.
//
// Client is a thin proxy: every tool call becomes a REST request against a
// running API server, so agents and HTTP bots share the same matches.
//
// Tools:
//   - game_rules: rules text for life or lights
//   - list_maps: maps per game
//   - create_match, list_matches, get_match: match management
//   - player_state: the state a seat sees, as a bot would read it
//   - submit_orders: orders for the current turn
//   - advance_turn: close the turn and start the next one
//   - run_bots: play a whole match between bots
//   - get_replay: replay JSON of a finished match
//   - leaderboard: ranking over finished matches
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode: POST /mcp
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
