package engine

import "fmt"

// Variant names one of the supported rule sets
type Variant string

const (
	Life   Variant = "life"
	Lights Variant = "lights"
)

// ParseVariant converts a user supplied game name into a Variant
func ParseVariant(name string) (Variant, error) {
	switch Variant(name) {
	case Life, Lights:
		return Variant(name), nil
	case "lifegame", "game-of-life":
		return Life, nil
	case "lightsout", "lights-out":
		return Lights, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}

// CellState is the content of a single board cell.
//
// Life boards hold Empty or an owner (Owner(0), Owner(1)); lights boards hold
// Off or On. The zero value of a board cell is always the variant's blank
// state, chosen when the board is created.
type CellState int8

const (
	Empty CellState = -1
	Off   CellState = 0
	On    CellState = 1
)

// MaxPlayers is the largest player count any map may declare
const MaxPlayers = 2

// Owner returns the cell state for a cell owned by player
func Owner(player int) CellState {
	return CellState(player)
}

// Cutoff reasons recorded when a match ends
const (
	CutoffExtermination  = "extermination"
	CutoffLoneSurvivor   = "lone survivor"
	CutoffRankStabilized = "rank stabilized"
	CutoffTurnLimit      = "turn limit reached"
)

// ReplayRevision is the replay format version written by Replay()
const ReplayRevision = 1

// Location is a (row, col) board coordinate
type Location struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (l Location) String() string {
	return fmt.Sprintf("(%d, %d)", l.Row, l.Col)
}

// Options are the per-match engine parameters
type Options struct {
	Turns      int   `json:"turns"`
	SimSteps   int   `json:"sim_steps"`
	LoadTime   int   `json:"loadtime"` // milliseconds
	TurnTime   int   `json:"turntime"` // milliseconds
	EngineSeed int64 `json:"engine_seed,omitempty"`
	PlayerSeed int64 `json:"player_seed,omitempty"`
	Scenario   bool  `json:"scenario,omitempty"`
}

// DefaultOptions returns the parameters used when a caller supplies none
func DefaultOptions() Options {
	return Options{
		Turns:    100,
		SimSteps: 20,
		LoadTime: 3000,
		TurnTime: 1000,
	}
}

// Phase is the lifecycle position of a match
type Phase int

const (
	NotStarted Phase = iota
	TurnActive
	BetweenTurns
	GameOver
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not_started"
	case TurnActive:
		return "turn_active"
	case BetweenTurns:
		return "between_turns"
	case GameOver:
		return "game_over"
	}
	return "unknown"
}

// Cell is a life cell record created when an order gives birth to a cell
type Cell struct {
	Loc       Location `json:"loc"`
	Owner     int      `json:"owner"`
	SpawnTurn int      `json:"spawn_turn"`
}

// Change is a lights record of a single cell flip
type Change struct {
	Loc  Location `json:"loc"`
	Turn int      `json:"turn"`
}
