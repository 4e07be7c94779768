// Package match drives complete matches between bots.
//
// A Bot receives the player state for its seat and answers with order lines.
// Three kinds are provided:
//   - FirstFitBot: plays the first legal cell in row-major order
//   - RandomBot: plays a random legal cell from a seeded generator
//   - ProcessBot: runs an external program per turn, state on stdin and
//     orders on stdout
//
// The Runner asks every seat whose turn it is for orders, with the map's
// loadtime budget on the first turn and turntime afterwards. Only the first
// MovesLimit lines of an answer are used. A bot that errors or runs out of
// time is killed and the match continues without it.
//
// Usage:
//
//	g, _ := engine.New(engine.Lights, mapText, engine.DefaultOptions())
//	bots := []match.Bot{&match.FirstFitBot{Variant: engine.Lights}, match.NewRandomBot(engine.Lights, 7)}
//	runner, _ := match.NewRunner(g, bots, match.WithObserver(func(u match.TurnUpdate) {
//		fmt.Println(u.Turn, u.Scores)
//	}))
//	result, err := runner.Run(ctx)
package match
