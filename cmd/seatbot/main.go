// Command seatbot plays one seat of a bot arena match over the REST API.
//
// It polls the match, and whenever the seat is due to move it hands the
// player state to a bot ("first", "random" or a command line reading the
// state on stdin) and submits the orders it prints. With --advance it also
// closes the turn after submitting, which is enough to drive games where a
// single seat moves per turn.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/botarena/game/match"
	"github.com/wricardo/botarena/game/service"
)

// seatOptions controls the polling loop
type seatOptions struct {
	Poll    time.Duration
	Advance bool
}

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "seatbot",
		Usage: "Play one seat of a match over the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Arena server URL", Sources: cli.EnvVars("BOTARENA_API_URL")},
			&cli.StringFlag{Name: "match", Usage: "Match ID", Required: true},
			&cli.IntFlag{Name: "player", Usage: "Seat index"},
			&cli.StringFlag{Name: "bot", Value: match.BotFirst, Usage: "first, random or a command line"},
			&cli.IntFlag{Name: "seed", Usage: "Seed for the random bot"},
			&cli.DurationFlag{Name: "poll", Value: 500 * time.Millisecond, Usage: "Delay between match polls"},
			&cli.BoolFlag{Name: "advance", Usage: "Close the turn after submitting"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := NewClient(cmd.String("url"))
			info, err := client.GetMatch(ctx, cmd.String("match"))
			if err != nil {
				return err
			}

			bot, err := match.NewBot(cmd.String("bot"), info.Game, int64(cmd.Int("seed")))
			if err != nil {
				return err
			}

			final, err := playSeat(ctx, client, bot, info.ID, cmd.Int("player"), seatOptions{
				Poll:    cmd.Duration("poll"),
				Advance: cmd.Bool("advance"),
			})
			if err != nil {
				return err
			}

			log.Info().
				Str("match_id", final.ID).
				Str("cutoff", final.Cutoff).
				Ints("scores", final.Scores).
				Ints("winners", final.Winners).
				Msg("match over")
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("seatbot failed")
	}
}

// playSeat plays until the match is over and returns its final summary
func playSeat(ctx context.Context, client *Client, bot match.Bot, matchID string, player int, opts seatOptions) (*service.MatchInfo, error) {
	lastTurn := 0

	for {
		info, err := client.GetMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if info.GameOver() {
			return info, nil
		}
		if player >= len(info.Alive) {
			return nil, fmt.Errorf("match %s has no seat %d", matchID, player)
		}
		if !info.Alive[player] {
			return nil, fmt.Errorf("seat %d was eliminated on turn %d", player, info.Turn)
		}

		if info.Turn > lastTurn && slices.Contains(info.ToMove, player) {
			if err := playTurn(ctx, client, bot, info, player, opts.Advance); err != nil {
				return nil, err
			}
			lastTurn = info.Turn
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Poll):
		}
	}
}

// playTurn asks the bot for orders and submits them
func playTurn(ctx context.Context, client *Client, bot match.Bot, info *service.MatchInfo, player int, advance bool) error {
	state, err := client.PlayerState(ctx, info.ID, player)
	if err != nil {
		return err
	}

	orders, err := bot.Play(ctx, state)
	if err != nil {
		return fmt.Errorf("bot %s on turn %d: %w", bot.Name(), info.Turn, err)
	}

	result, err := client.SubmitOrders(ctx, info.ID, player, orders)
	if err != nil {
		return err
	}
	log.Debug().
		Str("match_id", info.ID).
		Int("player", player).
		Int("turn", info.Turn).
		Strs("valid", result.Valid).
		Strs("invalid", result.Invalid).
		Msg("orders submitted")

	if !advance {
		return nil
	}
	_, err = client.Advance(ctx, info.ID)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		// Someone else closed the turn or the match ended
		return nil
	}
	return err
}
