package match

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/rand"

	"github.com/wricardo/botarena/game/engine"
)

var (
	ErrBadState   = errors.New("malformed player state")
	ErrBotTimeout = errors.New("bot timed out")
	ErrNoBot      = errors.New("empty bot specification")
)

// Built-in bot names accepted by NewBot
const (
	BotFirst  = "first"
	BotRandom = "random"
)

// Bot plays one seat of a match. Play receives the player state (the seat
// symbol on the first line followed by the board) and returns raw order
// lines of the form "row col".
type Bot interface {
	Name() string
	Play(ctx context.Context, state string) ([]string, error)
}

// ParseState splits a player state into the seat symbol and the board rows
func ParseState(state string) (byte, []string, error) {
	lines := strings.Split(strings.TrimRight(state, "\n"), "\n")
	if len(lines) < 2 || len(lines[0]) != 1 {
		return 0, nil, ErrBadState
	}
	rows := lines[1:]
	for _, row := range rows {
		if len(row) != len(rows[0]) {
			return 0, nil, fmt.Errorf("%w: ragged board", ErrBadState)
		}
	}
	return lines[0][0], rows, nil
}

// targetSymbol is the cell a sample bot looks for: an empty life cell or a
// lit lights cell
func targetSymbol(v engine.Variant) byte {
	if v == engine.Lights {
		return '1'
	}
	return '-'
}

func candidates(v engine.Variant, rows []string) []engine.Location {
	want := targetSymbol(v)
	var out []engine.Location
	for r, row := range rows {
		for c := 0; c < len(row); c++ {
			if row[c] == want {
				out = append(out, engine.Location{Row: r, Col: c})
			}
		}
	}
	return out
}

func orderLine(loc engine.Location) string {
	return strconv.Itoa(loc.Row) + " " + strconv.Itoa(loc.Col)
}

// FirstFitBot plays the first legal cell in row-major order
type FirstFitBot struct {
	Variant engine.Variant
}

// Name returns "first"
func (b *FirstFitBot) Name() string { return BotFirst }

// Play returns a single order, or none when no cell qualifies
func (b *FirstFitBot) Play(ctx context.Context, state string) ([]string, error) {
	_, rows, err := ParseState(state)
	if err != nil {
		return nil, err
	}
	locs := candidates(b.Variant, rows)
	if len(locs) == 0 {
		return nil, nil
	}
	return []string{orderLine(locs[0])}, nil
}

// RandomBot plays a uniformly chosen legal cell
type RandomBot struct {
	variant engine.Variant
	rng     *rand.Rand
}

// NewRandomBot creates a random bot. The same seed gives the same moves for
// the same sequence of states.
func NewRandomBot(v engine.Variant, seed int64) *RandomBot {
	return &RandomBot{
		variant: v,
		rng:     rand.New(rand.NewSource(uint64(seed))),
	}
}

// Name returns "random"
func (b *RandomBot) Name() string { return BotRandom }

// Play returns a single order, or none when no cell qualifies
func (b *RandomBot) Play(ctx context.Context, state string) ([]string, error) {
	_, rows, err := ParseState(state)
	if err != nil {
		return nil, err
	}
	locs := candidates(b.variant, rows)
	if len(locs) == 0 {
		return nil, nil
	}
	return []string{orderLine(locs[b.rng.Intn(len(locs))])}, nil
}

// processWaitDelay bounds how long a killed bot's children may keep its
// output pipes open
const processWaitDelay = 500 * time.Millisecond

// ProcessBot runs an external program once per turn. The player state is
// written to its stdin, which is then closed, and every non-empty stdout
// line is an order.
type ProcessBot struct {
	Command []string
	Dir     string
}

// Name returns the command line
func (b *ProcessBot) Name() string { return strings.Join(b.Command, " ") }

// Play runs the command until it exits or ctx is done
func (b *ProcessBot) Play(ctx context.Context, state string) ([]string, error) {
	if len(b.Command) == 0 {
		return nil, ErrNoBot
	}

	cmd := exec.CommandContext(ctx, b.Command[0], b.Command[1:]...)
	cmd.Dir = b.Dir
	cmd.WaitDelay = processWaitDelay
	cmd.Stdin = strings.NewReader(state + "\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrBotTimeout, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("bot %q failed: %w: %s", b.Name(), err, msg)
		}
		return nil, fmt.Errorf("bot %q failed: %w", b.Name(), err)
	}

	var lines []string
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// NewBot builds a bot from its name: "first", "random" or a command
// line split on whitespace.
func NewBot(spec string, v engine.Variant, seed int64) (Bot, error) {
	switch strings.TrimSpace(spec) {
	case "":
		return nil, ErrNoBot
	case BotFirst:
		return &FirstFitBot{Variant: v}, nil
	case BotRandom:
		return NewRandomBot(v, seed), nil
	}
	return &ProcessBot{Command: strings.Fields(spec)}, nil
}
