package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/botarena/game/engine"
	"github.com/wricardo/botarena/game/service"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	finished := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &service.MatchResult{
		ID:         "m1",
		Game:       engine.Life,
		Map:        "default",
		Players:    []string{"alice", "bob"},
		Scores:     []int{12, 9},
		Winners:    []int{0},
		Cutoff:     engine.CutoffTurnLimit,
		Turns:      100,
		FinishedAt: finished,
	}
	require.NoError(t, s.SaveResult(ctx, r))

	got, err := s.GetResult(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, engine.Life, got.Game)
	assert.Equal(t, []string{"alice", "bob"}, got.Players)
	assert.Equal(t, []int{12, 9}, got.Scores)
	assert.Equal(t, []int{0}, got.Winners)
	assert.Equal(t, 100, got.Turns)
	assert.True(t, finished.Equal(got.FinishedAt))

	_, err = s.GetResult(ctx, "nope")
	assert.ErrorIs(t, err, ErrResultNotFound)

	assert.Error(t, s.SaveResult(ctx, r), "duplicate IDs are rejected")
}

func TestSaveResultDefaults(t *testing.T) {
	s := newTestStore(t)
	r := &service.MatchResult{Game: engine.Lights, Players: []string{"a"}, Scores: []int{100}}
	require.NoError(t, s.SaveResult(context.Background(), r))
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.FinishedAt.IsZero())

	bad := &service.MatchResult{Game: engine.Lights, Players: []string{"a", "b"}, Scores: []int{1}}
	assert.Error(t, s.SaveResult(context.Background(), bad))
}

func TestListResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, game := range []engine.Variant{engine.Life, engine.Lights, engine.Life} {
		require.NoError(t, s.SaveResult(ctx, &service.MatchResult{
			ID:         string(rune('a' + i)),
			Game:       game,
			Players:    []string{"x", "y"},
			Scores:     []int{0, 0},
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.ListResults(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "newest first")
	assert.Equal(t, []string{"x", "y"}, all[0].Players)

	life, err := s.ListResults(ctx, engine.Life, 1)
	require.NoError(t, err)
	require.Len(t, life, 1)
	assert.Equal(t, "c", life[0].ID)
}

func TestLeaderboard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	results := []*service.MatchResult{
		{ID: "1", Game: engine.Lights, Players: []string{"alice", "bob"}, Scores: []int{100, 0}, Winners: []int{0}},
		{ID: "2", Game: engine.Lights, Players: []string{"bob", "carol"}, Scores: []int{0, 100}, Winners: []int{1}},
		{ID: "3", Game: engine.Life, Players: []string{"alice", "bob"}, Scores: []int{7, 7}, Winners: []int{0, 1}},
		{ID: "4", Game: engine.Life, Players: []string{"bob", "alice"}, Scores: []int{9, 3}, Winners: []int{0}},
	}
	for _, r := range results {
		require.NoError(t, s.SaveResult(ctx, r))
	}

	board, err := s.Leaderboard(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, board, 3)

	// alice: 1 win, 110 points; bob: 1 win, 16 points; carol: 1 win, 100 points
	assert.Equal(t, "alice", board[0].Player)
	assert.Equal(t, 3, board[0].Games)
	assert.Equal(t, 1, board[0].Wins)
	assert.Equal(t, 110, board[0].Points)
	assert.Equal(t, "carol", board[1].Player)
	assert.Equal(t, "bob", board[2].Player)
	assert.Equal(t, 4, board[2].Games)

	life, err := s.Leaderboard(ctx, engine.Life, 10)
	require.NoError(t, err)
	require.Len(t, life, 2)
	assert.Equal(t, "bob", life[0].Player, "a shared top score is not a win")
	assert.Equal(t, 1, life[0].Wins)
	assert.Equal(t, 0, life[1].Wins)
	assert.Equal(t, engine.Life, life[0].Game)

	top, err := s.Leaderboard(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}
