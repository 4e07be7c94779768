package engine

import (
	"encoding/json"
	"sort"
)

// ReplayMap is the initial board stored in a replay
type ReplayMap struct {
	Rows int      `json:"rows"`
	Cols int      `json:"cols"`
	Data []string `json:"data"`
}

// Replay is the immutable summary of a finished match. Cells holds
// [row, col, turn, owner] for life matches, Changes holds [row, col, turn]
// for lights matches; both are ordered by turn. The log of the match's game
// is always written, as [] when nothing happened.
type Replay struct {
	Revision    int       `json:"revision"`
	Game        Variant   `json:"game"`
	Players     int       `json:"players"`
	LoadTime    int       `json:"loadtime"`
	TurnTime    int       `json:"turntime"`
	Turns       int       `json:"turns"`
	EngineSeed  int64     `json:"engine_seed"`
	PlayerSeed  int64     `json:"player_seed"`
	Map         ReplayMap `json:"map"`
	Cells       [][4]int  `json:"cells,omitempty"`
	Changes     [][3]int  `json:"changes,omitempty"`
	Scores      [][]int   `json:"scores"`
	Bonus       []int     `json:"bonus"`
	WinningTurn int       `json:"winning_turn"`
	RankingTurn int       `json:"ranking_turn"`
	Cutoff      string    `json:"cutoff"`
}

type replayFields Replay

// MarshalJSON writes the event log key of the replay's game even when empty
// and leaves out the other game's key.
func (r Replay) MarshalJSON() ([]byte, error) {
	if r.Game == Lights {
		changes := r.Changes
		if changes == nil {
			changes = [][3]int{}
		}
		return json.Marshal(struct {
			replayFields
			Changes [][3]int `json:"changes"`
		}{replayFields(r), changes})
	}
	cells := r.Cells
	if cells == nil {
		cells = [][4]int{}
	}
	return json.Marshal(struct {
		replayFields
		Cells [][4]int `json:"cells"`
	}{replayFields(r), cells})
}

// CellEvents converts a birth log into replay rows sorted by spawn turn.
// Cells born on the same turn keep their log order. The input is not modified.
func CellEvents(cells []Cell) [][4]int {
	sorted := append([]Cell(nil), cells...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SpawnTurn < sorted[j].SpawnTurn
	})
	out := make([][4]int, len(sorted))
	for i, c := range sorted {
		out[i] = [4]int{c.Loc.Row, c.Loc.Col, c.SpawnTurn, c.Owner}
	}
	return out
}

// ChangeEvents converts a flip log into replay rows sorted by turn, keeping
// log order within a turn. The input is not modified.
func ChangeEvents(changes []Change) [][3]int {
	sorted := append([]Change(nil), changes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Turn < sorted[j].Turn
	})
	out := make([][3]int, len(sorted))
	for i, c := range sorted {
		out[i] = [3]int{c.Loc.Row, c.Loc.Col, c.Turn}
	}
	return out
}

// Winners returns the players holding the top score of a replay's final
// scores. It is empty when nobody scored.
func (r *Replay) Winners() []int {
	best := 0
	var winners []int
	for p, history := range r.Scores {
		if len(history) == 0 {
			continue
		}
		s := history[len(history)-1]
		switch {
		case s > best:
			best = s
			winners = []int{p}
		case s == best && s > 0:
			winners = append(winners, p)
		}
	}
	return winners
}

// FinalScores returns the last entry of each player's score history
func (r *Replay) FinalScores() []int {
	out := make([]int, len(r.Scores))
	for p, history := range r.Scores {
		if len(history) > 0 {
			out[p] = history[len(history)-1]
		}
	}
	return out
}
