package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// seeds draws engine and player seeds for matches that do not set them. The
// package level x/exp/rand source always starts from the same seed.
var seeds = struct {
	sync.Mutex
	rng *rand.Rand
}{rng: rand.New(rand.NewSource(uint64(time.Now().UnixNano())))}

func newSeed() int64 {
	seeds.Lock()
	defer seeds.Unlock()
	for {
		if n := int64(seeds.rng.Uint64() >> 1); n != 0 {
			return n
		}
	}
}

// Game is the contract every rule set implements. A driver calls StartGame
// once, then per turn StartTurn, DoMoves for each player, FinishTurn and
// GameOver, and finally FinishGame before reading Scores and Replay.
//
// Implementations are not safe for concurrent use.
type Game interface {
	Variant() Variant
	NumPlayers() int
	Options() Options
	Phase() Phase
	Turn() int
	Turns() int

	StartGame()
	StartTurn() error
	DoMoves(player int, lines []string) (OrderReport, error)
	MovesLimit(player int) int
	IsPlayersTurn(player int) bool
	FinishTurn() error
	GameOver() bool
	FinishGame()

	IsAlive(player int) bool
	KillPlayer(player int) error
	RemainingPlayers() []int

	Cutoff() string
	Scores() []int
	PlayerState(player int) (string, error)
	Snapshot() []string
	Replay() *Replay
}

// matchState holds everything the two variants have in common
type matchState struct {
	variant    Variant
	opts       Options
	alpha      *Alphabet
	rule       CellRule
	board      *Board
	initial    []string
	numPlayers int

	phase        Phase
	turn         int
	score        []int
	bonus        []int
	scoreHistory [][]int
	killed       []bool
	cutoff       string
	orders       [][]Location
}

func newMatchState(v Variant, data *MapData, opts Options) (*matchState, error) {
	board, err := data.Board()
	if err != nil {
		return nil, err
	}
	if opts.EngineSeed == 0 {
		opts.EngineSeed = newSeed()
	}
	if opts.PlayerSeed == 0 {
		opts.PlayerSeed = newSeed()
	}

	n := data.NumPlayers
	s := &matchState{
		variant:      v,
		opts:         opts,
		alpha:        AlphabetFor(v),
		rule:         RuleFor(v),
		board:        board,
		numPlayers:   n,
		score:        make([]int, n),
		bonus:        make([]int, n),
		scoreHistory: make([][]int, n),
		killed:       make([]bool, n),
		orders:       make([][]Location, n),
	}
	s.initial = board.Rows(s.alpha)
	for p := range s.scoreHistory {
		s.scoreHistory[p] = []int{0}
	}
	return s, nil
}

// Variant returns the rule set of the match
func (s *matchState) Variant() Variant { return s.variant }

// NumPlayers returns the number of seats declared by the map
func (s *matchState) NumPlayers() int { return s.numPlayers }

// Options returns the match parameters, including generated seeds
func (s *matchState) Options() Options { return s.opts }

// Phase returns the lifecycle position
func (s *matchState) Phase() Phase { return s.phase }

// Turn returns the current turn number (0 before the first turn)
func (s *matchState) Turn() int { return s.turn }

// Turns returns the turn limit of the match
func (s *matchState) Turns() int { return s.opts.Turns }

// Board exposes the live board, read-only by convention
func (s *matchState) Board() *Board { return s.board }

func (s *matchState) checkPlayer(player int) error {
	if player < 0 || player >= s.numPlayers {
		return fmt.Errorf("%w: %d (players: %d)", ErrUnknownPlayer, player, s.numPlayers)
	}
	return nil
}

// StartGame moves a fresh match to its first turn boundary
func (s *matchState) StartGame() {
	if s.phase == NotStarted {
		s.phase = BetweenTurns
	}
}

// StartTurn increments the turn counter and clears every order buffer
func (s *matchState) StartTurn() error {
	switch s.phase {
	case GameOver:
		return ErrGameFinished
	case NotStarted:
		s.StartGame()
	}
	s.turn++
	for p := range s.orders {
		s.orders[p] = nil
	}
	s.phase = TurnActive
	return nil
}

// DoMoves validates a player's raw order lines and stores the accepted ones
// for this turn, replacing any earlier submission in the same turn.
func (s *matchState) DoMoves(player int, lines []string) (OrderReport, error) {
	if err := s.checkPlayer(player); err != nil {
		return OrderReport{}, err
	}
	if s.phase != TurnActive {
		return OrderReport{}, ErrNoActiveTurn
	}
	report := ValidateOrders(s.board, s.rule, lines)
	s.orders[player] = report.ValidOrders
	return report, nil
}

// MovesLimit is the number of order lines read from a bot each turn
func (s *matchState) MovesLimit(player int) int {
	return 1
}

// IsAlive reports whether the player has not been removed from the match
func (s *matchState) IsAlive(player int) bool {
	if s.checkPlayer(player) != nil {
		return false
	}
	return !s.killed[player]
}

// KillPlayer permanently removes a player, e.g. after a crash or timeout
func (s *matchState) KillPlayer(player int) error {
	if err := s.checkPlayer(player); err != nil {
		return err
	}
	s.killed[player] = true
	s.orders[player] = nil
	return nil
}

// RemainingPlayers returns the indexes of players still alive
func (s *matchState) RemainingPlayers() []int {
	alive := make([]int, 0, s.numPlayers)
	for p := 0; p < s.numPlayers; p++ {
		if !s.killed[p] {
			alive = append(alive, p)
		}
	}
	return alive
}

// setCutoff records why the match ended; the first reason wins
func (s *matchState) setCutoff(reason string) {
	if s.cutoff == "" {
		s.cutoff = reason
	}
}

// Cutoff returns the recorded end reason, empty while the match runs
func (s *matchState) Cutoff() string { return s.cutoff }

// Scores returns a copy of the per-player scores
func (s *matchState) Scores() []int {
	out := make([]int, len(s.score))
	copy(out, s.score)
	return out
}

// survivorCutoff checks the player-count conditions shared by both games
func (s *matchState) survivorCutoff() bool {
	switch len(s.RemainingPlayers()) {
	case 0:
		s.setCutoff(CutoffExtermination)
		return true
	case 1:
		s.setCutoff(CutoffLoneSurvivor)
		return true
	}
	return false
}

// recordScores appends the current scores to the history
func (s *matchState) recordScores() {
	for p := range s.scoreHistory {
		s.scoreHistory[p] = append(s.scoreHistory[p], s.score[p])
	}
}

// rewardSurvivors gives every player still alive the maximum score
func (s *matchState) rewardSurvivors() {
	for _, p := range s.RemainingPlayers() {
		s.score[p] = 100
	}
}

// PlayerState renders what a bot receives on stdin: its symbol on the first
// line followed by the board, one character per cell.
func (s *matchState) PlayerState(player int) (string, error) {
	if err := s.checkPlayer(player); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteByte(s.alpha.PlayerSymbol(player))
	sb.WriteByte('\n')
	sb.WriteString(strings.Join(s.board.Rows(s.alpha), "\n"))
	return sb.String(), nil
}

// Snapshot renders the current board in the variant alphabet
func (s *matchState) Snapshot() []string {
	return s.board.Rows(s.alpha)
}

func (s *matchState) replayBase() *Replay {
	history := make([][]int, len(s.scoreHistory))
	for p, h := range s.scoreHistory {
		history[p] = append([]int(nil), h...)
	}
	return &Replay{
		Revision:   ReplayRevision,
		Game:       s.variant,
		Players:    s.numPlayers,
		LoadTime:   s.opts.LoadTime,
		TurnTime:   s.opts.TurnTime,
		Turns:      s.opts.Turns,
		EngineSeed: s.opts.EngineSeed,
		PlayerSeed: s.opts.PlayerSeed,
		Map: ReplayMap{
			Rows: s.board.Height(),
			Cols: s.board.Width(),
			Data: append([]string(nil), s.initial...),
		},
		Scores: history,
		Bonus:  append([]int(nil), s.bonus...),
		Cutoff: s.cutoff,
	}
}
