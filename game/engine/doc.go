// Package engine provides the rules of the bot arena games.
//
// Two turn-based games are implemented on a shared board and turn state
// machine:
//   - Life: a two player Game of Life where bots place cells and the board
//     is simulated when the turn limit is reached
//   - Lights: a two player Lights Out where bots switch off lights and the
//     player turning off the last one wins
//
// Core Types:
//
// The Game interface is the per-match contract consumed by drivers. It is
// implemented by LifeGame and LightsOut, which embed the common state
// (turn counter, scores, killed players, cutoff, order buffers). Board is a
// bounds-checked grid, Alphabet maps cell states to the text symbols used in
// map files, bot input and replays, and ValidateOrders classifies raw bot
// output into accepted and rejected orders.
//
// Usage:
//
//	game, err := engine.New(engine.Life, mapText, engine.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game.StartGame()
//	for turn := 0; turn < game.Options().Turns && !game.GameOver(); turn++ {
//		game.StartTurn()
//		for p := 0; p < game.NumPlayers(); p++ {
//			if game.IsPlayersTurn(p) {
//				state, _ := game.PlayerState(p)
//				game.DoMoves(p, askBot(p, state))
//			}
//		}
//		game.FinishTurn()
//	}
//	game.FinishGame()
//	replay := game.Replay()
//
// Map Format:
//
// Maps are line oriented: "rows N", "cols N", "players N" (1 or 2) followed
// by one "m <row>" line per board row. Life rows use w, b and -; lights rows
// use 1 and 0. Live cells in life maps are only accepted in scenario mode.
//
// A Game is not safe for concurrent use; callers serialise access per match.
package engine
