// Package api provides the HTTP REST API of the bot arena.
//
// Endpoints:
//
// Matches:
//   - POST   /api/matches                     - Create a match ({game, map, players, turns, sim_steps, seed, scenario})
//   - GET    /api/matches                     - List matches (?game=, ?limit=)
//   - GET    /api/matches/{id}                - Match summary with the current board
//   - DELETE /api/matches/{id}                - Delete a match and its saved replay
//   - POST   /api/matches/{id}/advance        - Close the current turn
//   - GET    /api/matches/{id}/replay         - Replay of a finished match
//
// Seats:
//   - GET  /api/matches/{id}/players/{n}/state  - Player state as text/plain, exactly what a bot reads
//   - POST /api/matches/{id}/players/{n}/orders - Submit orders, JSON {"orders": [...]} or one per line as text/plain
//   - POST /api/matches/{id}/players/{n}/kill   - Eliminate a seat
//
// Bots, maps and results:
//   - POST /api/runs            - Play a full match between bots ({game, map, bots, turns, seed})
//   - GET  /api/maps            - List maps (?game=)
//   - GET  /api/maps/{name}     - Load one map (?game=)
//   - GET  /api/leaderboard     - Ranking over stored results (?game=, ?limit=)
//   - GET  /api/rules           - Rules text for bot authors (?game=)
//
// Spectating:
//   - GET /ws?match={id} - WebSocket stream of turn_update and game_over events
//
// Error Handling:
//
// Errors are returned as JSON, {"error": "message"}. Unknown matches and
// maps give 404; malformed requests, unknown games and bad maps give 400;
// acting out of turn, on a finished match or on a bot driven match gives
// 409.
package api
