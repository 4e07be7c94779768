package engine

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLife(t *testing.T, opts Options, rows ...string) *LifeGame {
	t.Helper()
	g, err := NewLifeGame(mapText(rows...), opts)
	require.NoError(t, err)
	return g
}

func scenarioOptions() Options {
	opts := DefaultOptions()
	opts.Scenario = true
	opts.EngineSeed = 1
	opts.PlayerSeed = 2
	return opts
}

// firstEmpty returns the first empty cell in row-major order
func firstEmpty(t *testing.T, g *LifeGame) Location {
	t.Helper()
	b := g.Board()
	for r := 0; r < b.Height(); r++ {
		for c := 0; c < b.Width(); c++ {
			if b.at(r, c) == Empty {
				return Location{Row: r, Col: c}
			}
		}
	}
	t.Fatal("board is full")
	return Location{}
}

func TestLifeScenarioPlacesCell(t *testing.T) {
	g := newLife(t, scenarioOptions(), "w--", "---", "--b")
	g.StartGame()
	require.NoError(t, g.StartTurn())

	mover := -1
	for p := 0; p < g.NumPlayers(); p++ {
		if g.IsPlayersTurn(p) {
			mover = p
		}
	}
	require.Equal(t, 0, mover, "two live cells give the turn to player 0")

	report, err := g.DoMoves(mover, []string{"1 1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1 1"}, report.Valid)
	assert.Empty(t, report.Invalid)

	require.NoError(t, g.FinishTurn())
	assert.Equal(t, []string{"w--", "-w-", "--b"}, g.Snapshot())
	assert.Equal(t, []Cell{{Loc: Location{Row: 1, Col: 1}, Owner: 0, SpawnTurn: 1}}, g.Born())
	assert.Equal(t, []int{2, 1}, g.LiveCells())
	assert.True(t, g.IsPlayersTurn(1))
	assert.False(t, g.IsPlayersTurn(0))
}

func TestLifeTurnParityExclusive(t *testing.T) {
	g := newLife(t, DefaultOptions(), "-----", "-----", "-----", "-----")
	g.StartGame()

	previous := -1
	for turn := 1; turn <= 12; turn++ {
		require.NoError(t, g.StartTurn())

		var movers []int
		for p := 0; p < g.NumPlayers(); p++ {
			if g.IsPlayersTurn(p) {
				movers = append(movers, p)
			}
		}
		require.Len(t, movers, 1, "turn %d", turn)
		mover := movers[0]
		assert.NotEqual(t, previous, mover, "turn %d must alternate", turn)
		previous = mover

		loc := firstEmpty(t, g)
		order := fmt.Sprintf("%d %d", loc.Row, loc.Col)
		for p := 0; p < g.NumPlayers(); p++ {
			_, err := g.DoMoves(p, []string{order})
			require.NoError(t, err)
		}
		require.NoError(t, g.FinishTurn())

		state, err := g.Board().Get(loc)
		require.NoError(t, err)
		assert.Equal(t, Owner(mover), state, "only the mover's order is applied")
		assert.Len(t, g.Born(), turn)
	}
}

func TestLifeKilledPlayerNeverMoves(t *testing.T) {
	g := newLife(t, DefaultOptions(), "---", "---")
	g.StartGame()
	require.NoError(t, g.KillPlayer(0))

	require.NoError(t, g.StartTurn())
	assert.False(t, g.IsPlayersTurn(0))
	assert.False(t, g.IsPlayersTurn(1), "parity still points at the removed player")

	_, err := g.DoMoves(0, []string{"0 0"})
	require.NoError(t, err)
	require.NoError(t, g.FinishTurn())
	assert.Empty(t, g.Born())
	assert.False(t, g.IsAlive(0))
	assert.True(t, g.IsAlive(1))
}

func TestLifeSimulateBlinker(t *testing.T) {
	g := newLife(t, scenarioOptions(), "-----", "--w--", "--w--", "--w--", "-----")

	g.Simulate(1)
	assert.Equal(t, []string{"-----", "-----", "-www-", "-----", "-----"}, g.Snapshot())
	assert.Equal(t, []int{3, 0}, g.LiveCells())

	g.Simulate(1)
	assert.Equal(t, []string{"-----", "--w--", "--w--", "--w--", "-----"}, g.Snapshot())
}

func TestLifeSimulateDeterministic(t *testing.T) {
	rows := []string{
		"--w---b-",
		"-ww--bb-",
		"--w---b-",
		"---wb---",
		"--wbbw--",
		"-----w--",
	}
	first := newLife(t, scenarioOptions(), rows...)
	second := newLife(t, scenarioOptions(), rows...)

	first.Simulate(20)
	second.Simulate(20)

	assert.Equal(t, first.Snapshot(), second.Snapshot())
	assert.Equal(t, first.LiveCells(), second.LiveCells())
}

func TestLifeSimulateBirthOwnership(t *testing.T) {
	g := newLife(t, scenarioOptions(), "w-b", "---", "b--")

	g.Simulate(1)
	state, err := g.Board().Get(Location{Row: 1, Col: 1})
	require.NoError(t, err)
	assert.Equal(t, Owner(1), state, "plurality of neighbours owns the new cell")
}

func TestPlurality(t *testing.T) {
	assert.Equal(t, 0, plurality([]int{2, 1}))
	assert.Equal(t, 1, plurality([]int{1, 2}))
	assert.Equal(t, 0, plurality([]int{2, 2}), "ties go to the lowest index")
	assert.Equal(t, 0, plurality([]int{3}))
}

func TestLifeGameOver(t *testing.T) {
	t.Run("lone survivor", func(t *testing.T) {
		g := newLife(t, DefaultOptions(), "---")
		g.StartGame()
		assert.False(t, g.GameOver())
		require.NoError(t, g.KillPlayer(1))
		assert.True(t, g.GameOver())
		assert.Equal(t, CutoffLoneSurvivor, g.Cutoff())

		g.FinishGame()
		assert.Equal(t, []int{100, 0}, g.Scores())
		assert.Equal(t, GameOver, g.Phase())
	})

	t.Run("extermination", func(t *testing.T) {
		g := newLife(t, DefaultOptions(), "---")
		require.NoError(t, g.KillPlayer(0))
		require.NoError(t, g.KillPlayer(1))
		assert.True(t, g.GameOver())
		assert.Equal(t, CutoffExtermination, g.Cutoff())

		g.FinishGame()
		assert.Equal(t, []int{0, 0}, g.Scores())
	})

	t.Run("cutoff is never overwritten", func(t *testing.T) {
		g := newLife(t, DefaultOptions(), "---")
		require.NoError(t, g.KillPlayer(1))
		require.True(t, g.GameOver())
		require.NoError(t, g.KillPlayer(0))
		require.True(t, g.GameOver())
		assert.Equal(t, CutoffLoneSurvivor, g.Cutoff())
	})
}

func TestLifeFinishGameTurnLimit(t *testing.T) {
	opts := scenarioOptions()
	opts.SimSteps = 1
	g := newLife(t, opts, "-----", "-w---", "-w---", "-----", "-----")
	g.StartGame()

	// turn 1: two live cells, player 0 completes a blinker
	require.NoError(t, g.StartTurn())
	_, err := g.DoMoves(0, []string{"3 1"})
	require.NoError(t, err)
	require.NoError(t, g.FinishTurn())

	// turn 2: player 1 places a lonely cell
	require.NoError(t, g.StartTurn())
	require.True(t, g.IsPlayersTurn(1))
	_, err = g.DoMoves(1, []string{"0 4"})
	require.NoError(t, err)
	require.NoError(t, g.FinishTurn())

	assert.False(t, g.GameOver())
	g.FinishGame()

	assert.Equal(t, CutoffTurnLimit, g.Cutoff())
	assert.Equal(t, []string{"-----", "-----", "www--", "-----", "-----"}, g.Snapshot())
	assert.Equal(t, []int{3, 0}, g.Scores())

	replay := g.Replay()
	assert.Equal(t, [][4]int{{3, 1, 1, 0}, {0, 4, 2, 1}}, replay.Cells)
	assert.Equal(t, [][]int{{0, 0, 0, 3}, {0, 0, 0, 0}}, replay.Scores)
	assert.Equal(t, []string{"-----", "-w---", "-w---", "-----", "-----"}, replay.Map.Data)
	assert.Equal(t, CutoffTurnLimit, replay.Cutoff)
	assert.Equal(t, []int{0}, replay.Winners())

	g.FinishGame()
	assert.Equal(t, []int{3, 0}, g.Scores(), "finishing twice is a no-op")
}

func TestLifePlayerState(t *testing.T) {
	g := newLife(t, scenarioOptions(), "w-", "-b")

	state, err := g.PlayerState(1)
	require.NoError(t, err)
	assert.Equal(t, "b\nw-\n-b", state)

	_, err = g.PlayerState(2)
	require.ErrorIs(t, err, ErrUnknownPlayer)
	assert.Equal(t, 1, g.MovesLimit(0))
}

func TestLifeLifecycleErrors(t *testing.T) {
	g := newLife(t, DefaultOptions(), "--")

	_, err := g.DoMoves(0, []string{"0 0"})
	require.ErrorIs(t, err, ErrNoActiveTurn)
	require.ErrorIs(t, g.FinishTurn(), ErrNoActiveTurn)

	require.NoError(t, g.StartTurn())
	assert.Equal(t, TurnActive, g.Phase())
	_, err = g.DoMoves(5, nil)
	require.ErrorIs(t, err, ErrUnknownPlayer)
	require.ErrorIs(t, g.KillPlayer(-1), ErrUnknownPlayer)

	require.NoError(t, g.FinishTurn())
	g.FinishGame()
	require.ErrorIs(t, g.StartTurn(), ErrGameFinished)
}

func TestLifeSeedsGenerated(t *testing.T) {
	g := newLife(t, Options{Turns: 10}, "--")
	assert.NotZero(t, g.Options().EngineSeed)
	assert.NotZero(t, g.Options().PlayerSeed)

	other := newLife(t, Options{Turns: 10}, "--")
	assert.NotEqual(t, g.Options().EngineSeed, other.Options().EngineSeed)
	assert.NotEqual(t, g.Options().PlayerSeed, other.Options().PlayerSeed)

	g = newLife(t, scenarioOptions(), "--")
	assert.Equal(t, int64(1), g.Options().EngineSeed)
	assert.Equal(t, int64(2), g.Options().PlayerSeed)
}

func TestLifeRepeatedOrderBornOnce(t *testing.T) {
	g := newLife(t, scenarioOptions(), "---", "---", "---")
	g.StartGame()
	require.NoError(t, g.StartTurn())

	report, err := g.DoMoves(0, []string{"1 1", "1 1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1 1", "1 1"}, report.Valid)
	require.NoError(t, g.FinishTurn())

	assert.Equal(t, [][4]int{{1, 1, 1, 0}}, g.Replay().Cells)
	assert.True(t, g.IsPlayersTurn(1), "one live cell hands the turn to player 1")
}

func TestLifeReplayJSONWithoutBirths(t *testing.T) {
	g := newLife(t, DefaultOptions(), "--", "--")
	g.StartGame()
	require.NoError(t, g.StartTurn())
	require.NoError(t, g.FinishTurn())
	g.FinishGame()

	data, err := json.Marshal(g.Replay())
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Contains(t, fields, "cells")
	assert.JSONEq(t, "[]", string(fields["cells"]))
	assert.NotContains(t, fields, "changes")

	var back Replay
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Life, back.Game)
	assert.Empty(t, back.Cells)
}
