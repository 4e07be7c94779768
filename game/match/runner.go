package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/botarena/game/engine"
)

var ErrBotCount = errors.New("bot count does not match map players")

// PlayerError records why a seat was removed from a match
type PlayerError struct {
	Player int    `json:"player"`
	Turn   int    `json:"turn"`
	Bot    string `json:"bot"`
	Err    string `json:"error"`
}

func (e PlayerError) String() string {
	return fmt.Sprintf("player %d (%s) turn %d: %s", e.Player, e.Bot, e.Turn, e.Err)
}

// TurnReport is the validator feedback for one seat on one turn
type TurnReport struct {
	Turn   int                `json:"turn"`
	Player int                `json:"player"`
	Report engine.OrderReport `json:"report"`
}

// TurnUpdate is passed to the observer after every finished turn
type TurnUpdate struct {
	Turn    int          `json:"turn"`
	Board   []string     `json:"board"`
	Scores  []int        `json:"scores"`
	Alive   []int        `json:"alive"`
	Reports []TurnReport `json:"reports,omitempty"`
}

// Observer receives turn updates, e.g. to forward them to spectators
type Observer func(TurnUpdate)

// Result is the outcome of a completed match
type Result struct {
	Scores  []int          `json:"scores"`
	Winners []int          `json:"winners"`
	Cutoff  string         `json:"cutoff"`
	Turns   int            `json:"turns"`
	Replay  *engine.Replay `json:"replay"`
	Reports []TurnReport   `json:"reports,omitempty"`
	Errors  []PlayerError  `json:"errors,omitempty"`
}

// Runner drives a match between bots from the first turn to the end
type Runner struct {
	game     engine.Game
	bots     []Bot
	observer Observer
	lock     sync.Locker
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithObserver sets the per-turn observer
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithLocker makes the runner hold l whenever it touches the game, so
// others may read the game between calls. The lock is released while bots
// think.
func WithLocker(l sync.Locker) RunnerOption {
	return func(r *Runner) {
		r.lock = l
	}
}

// NewRunner creates a runner. There must be one bot per map seat.
func NewRunner(game engine.Game, bots []Bot, opts ...RunnerOption) (*Runner, error) {
	if len(bots) != game.NumPlayers() {
		return nil, fmt.Errorf("%w: got %d bots for %d players", ErrBotCount, len(bots), game.NumPlayers())
	}
	r := &Runner{game: game, bots: bots, lock: &sync.Mutex{}}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// seatTurn is a seat to ask for orders together with the state it sees
type seatTurn struct {
	player int
	state  string
}

// Run plays the match. A bot that fails or exceeds its time budget is
// killed for the rest of the match; cancelling ctx aborts the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	g := r.game
	opts := g.Options()
	result := &Result{}

	r.lock.Lock()
	g.StartGame()
	r.lock.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		turn, seats, done, err := r.startTurn()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}

		budget := opts.TurnTime
		if turn == 1 {
			budget = opts.LoadTime
		}

		var reports []TurnReport
		for _, seat := range seats {
			lines, err := r.ask(ctx, seat, budget)
			if err != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}

			r.lock.Lock()
			if err != nil {
				perr := PlayerError{Player: seat.player, Turn: turn, Bot: r.bots[seat.player].Name(), Err: err.Error()}
				log.Warn().Int("player", seat.player).Int("turn", turn).Err(err).Msg("removing bot from match")
				result.Errors = append(result.Errors, perr)
				err = g.KillPlayer(seat.player)
			} else {
				var report engine.OrderReport
				report, err = g.DoMoves(seat.player, lines)
				if err == nil {
					reports = append(reports, TurnReport{Turn: turn, Player: seat.player, Report: report})
				}
			}
			r.lock.Unlock()
			if err != nil {
				return nil, err
			}
		}

		r.lock.Lock()
		err = g.FinishTurn()
		update := TurnUpdate{
			Turn:    turn,
			Board:   g.Snapshot(),
			Scores:  g.Scores(),
			Alive:   g.RemainingPlayers(),
			Reports: reports,
		}
		over := g.GameOver()
		r.lock.Unlock()
		if err != nil {
			return nil, err
		}

		result.Reports = append(result.Reports, reports...)
		if r.observer != nil {
			r.observer(update)
		}
		if over {
			break
		}
	}

	r.lock.Lock()
	g.FinishGame()
	replay := g.Replay()
	result.Scores = g.Scores()
	result.Cutoff = g.Cutoff()
	result.Turns = g.Turn()
	r.lock.Unlock()

	result.Winners = replay.Winners()
	result.Replay = replay

	log.Info().
		Str("game", string(g.Variant())).
		Int("turns", result.Turns).
		Str("cutoff", result.Cutoff).
		Ints("scores", result.Scores).
		Msg("match finished")

	return result, nil
}

// startTurn begins the next turn and collects the seats due to move. done is
// true once the turn limit has been played.
func (r *Runner) startTurn() (turn int, seats []seatTurn, done bool, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	g := r.game
	if g.Turn() >= g.Turns() {
		return g.Turn(), nil, true, nil
	}
	if err := g.StartTurn(); err != nil {
		return 0, nil, false, err
	}
	for p := 0; p < g.NumPlayers(); p++ {
		if !g.IsAlive(p) || !g.IsPlayersTurn(p) {
			continue
		}
		state, err := g.PlayerState(p)
		if err != nil {
			return 0, nil, false, err
		}
		seats = append(seats, seatTurn{player: p, state: state})
	}
	return g.Turn(), seats, false, nil
}

// ask gets one bot's orders within budget milliseconds (zero means no
// limit), truncated to the seat's moves limit
func (r *Runner) ask(ctx context.Context, seat seatTurn, budget int) ([]string, error) {
	botCtx := ctx
	if budget > 0 {
		var cancel context.CancelFunc
		botCtx, cancel = context.WithTimeout(ctx, time.Duration(budget)*time.Millisecond)
		defer cancel()
	}

	lines, err := r.bots[seat.player].Play(botCtx, seat.state)
	if err == nil && botCtx.Err() != nil {
		err = ErrBotTimeout
	}
	if err != nil {
		return nil, err
	}

	r.lock.Lock()
	limit := r.game.MovesLimit(seat.player)
	r.lock.Unlock()
	if len(lines) > limit {
		lines = lines[:limit]
	}
	log.Debug().Int("player", seat.player).Strs("orders", lines).Msg("bot orders")
	return lines, nil
}
