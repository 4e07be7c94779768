package service

import (
	"time"

	"github.com/wricardo/botarena/game/engine"
)

// Map is a loaded and validated map file
type Map struct {
	Name        string          `json:"name"`
	Game        engine.Variant  `json:"game"`
	Description string          `json:"description,omitempty"`
	Text        string          `json:"text"`
	Data        *engine.MapData `json:"data"`
}

// MapInfo provides information about a map file
type MapInfo struct {
	Filename    string         `json:"filename"`
	MapID       string         `json:"map_id"` // The identifier to use for match creation
	Game        engine.Variant `json:"game"`
	Description string         `json:"description,omitempty"`
	Rows        int            `json:"rows"`
	Cols        int            `json:"cols"`
	Players     int            `json:"players"`
}

// CreateMatchRequest describes a match to create. Zero option values fall
// back to the map manager defaults.
type CreateMatchRequest struct {
	Game     engine.Variant `json:"game"`
	Map      string         `json:"map,omitempty"`
	Players  []string       `json:"players,omitempty"`
	Turns    int            `json:"turns,omitempty"`
	SimSteps int            `json:"sim_steps,omitempty"`
	Seed     int64          `json:"seed,omitempty"`
	Scenario bool           `json:"scenario,omitempty"`
}

// MatchInfo provides information about a match
type MatchInfo struct {
	ID        string         `json:"id"`
	Game      engine.Variant `json:"game"`
	Map       string         `json:"map"`
	Players   []string       `json:"players"`
	Phase     string         `json:"phase"`
	Turn      int            `json:"turn"`
	Turns     int            `json:"turns"`
	ToMove    []int          `json:"to_move"`
	Alive     []bool         `json:"alive"`
	Scores    []int          `json:"scores"`
	Cutoff    string         `json:"cutoff,omitempty"`
	Winners   []int          `json:"winners,omitempty"`
	Board     []string       `json:"board"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// GameOver reports whether the match has been settled
func (m *MatchInfo) GameOver() bool {
	return m.Phase == engine.GameOver.String()
}

// OrdersResult is the validator feedback for one submission
type OrdersResult struct {
	MatchID string   `json:"match_id"`
	Player  int      `json:"player"`
	Turn    int      `json:"turn"`
	Valid   []string `json:"valid"`
	Ignored []string `json:"ignored"`
	Invalid []string `json:"invalid"`
}

// RunRequest describes a full match between bots. Each bot is "first",
// "random" or a command line run once per turn.
type RunRequest struct {
	Game     engine.Variant `json:"game"`
	Map      string         `json:"map,omitempty"`
	Bots     []string       `json:"bots"`
	Turns    int            `json:"turns,omitempty"`
	SimSteps int            `json:"sim_steps,omitempty"`
	Seed     int64          `json:"seed,omitempty"`
}

// RunResult summarises a finished bot match
type RunResult struct {
	MatchID string         `json:"match_id"`
	Game    engine.Variant `json:"game"`
	Map     string         `json:"map"`
	Bots    []string       `json:"bots"`
	Turns   int            `json:"turns"`
	Scores  []int          `json:"scores"`
	Winners []int          `json:"winners"`
	Cutoff  string         `json:"cutoff"`
	Errors  []string       `json:"errors,omitempty"`
}

// MatchResult is the stored record of a finished match
type MatchResult struct {
	ID         string         `json:"id"`
	Game       engine.Variant `json:"game"`
	Map        string         `json:"map"`
	Players    []string       `json:"players"`
	Scores     []int          `json:"scores"`
	Winners    []int          `json:"winners"`
	Cutoff     string         `json:"cutoff"`
	Turns      int            `json:"turns"`
	FinishedAt time.Time      `json:"finished_at"`
}

// LeaderboardEntry aggregates results per player name
type LeaderboardEntry struct {
	Player string         `json:"player"`
	Game   engine.Variant `json:"game"`
	Games  int            `json:"games"`
	Wins   int            `json:"wins"`
	Points int            `json:"points"`
}

// MatchEvent is broadcast to spectators after every turn
type MatchEvent struct {
	Match   *MatchInfo `json:"match"`
	Turn    int        `json:"turn"`
	Applied [][]string `json:"applied,omitempty"`
}
