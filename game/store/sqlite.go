package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/wricardo/botarena/game/engine"
	"github.com/wricardo/botarena/game/service"
)

var ErrResultNotFound = errors.New("result not found")

// DefaultLimit caps list queries that do not give a limit
const DefaultLimit = 50

// SQLiteStore keeps finished match results and derives the leaderboard
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and runs migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes

	s := &SQLiteStore{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Migrate creates the schema if it does not exist
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			game TEXT NOT NULL,
			map TEXT NOT NULL,
			cutoff TEXT NOT NULL,
			turns INTEGER NOT NULL,
			scores_json TEXT NOT NULL,
			winners_json TEXT NOT NULL,
			finished_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_game_finished ON results(game, finished_at DESC);`,
		`CREATE TABLE IF NOT EXISTS result_players (
			result_id TEXT NOT NULL,
			seat INTEGER NOT NULL,
			player TEXT NOT NULL,
			score INTEGER NOT NULL,
			won INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(result_id, seat),
			FOREIGN KEY(result_id) REFERENCES results(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_result_players_player ON result_players(player);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return tx.Commit()
}

// SaveResult stores a finished match. A seat counts as a win only when it
// holds the top score alone.
func (s *SQLiteStore) SaveResult(ctx context.Context, r *service.MatchResult) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	if len(r.Players) != len(r.Scores) {
		return fmt.Errorf("result %s has %d players and %d scores", r.ID, len(r.Players), len(r.Scores))
	}

	scores, err := json.Marshal(r.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}
	winners, err := json.Marshal(r.Winners)
	if err != nil {
		return fmt.Errorf("failed to marshal winners: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO results (id, game, map, cutoff, turns, scores_json, winners_json, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Game), r.Map, r.Cutoff, r.Turns, string(scores), string(winners), r.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}

	soleWinner := -1
	if len(r.Winners) == 1 {
		soleWinner = r.Winners[0]
	}
	for seat, player := range r.Players {
		won := 0
		if seat == soleWinner {
			won = 1
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO result_players (result_id, seat, player, score, won) VALUES (?, ?, ?, ?, ?)`,
			r.ID, seat, player, r.Scores[seat], won)
		if err != nil {
			return fmt.Errorf("failed to insert result player: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result: %w", err)
	}
	log.Debug().Str("match_id", r.ID).Str("game", string(r.Game)).Msg("result saved")
	return nil
}

// GetResult returns one stored result
func (s *SQLiteStore) GetResult(ctx context.Context, id string) (*service.MatchResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, game, map, cutoff, turns, scores_json, winners_json, finished_at
		 FROM results WHERE id = ?`, id)
	r, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrResultNotFound, id)
		}
		return nil, err
	}
	if err := s.loadPlayers(ctx, []*service.MatchResult{r}); err != nil {
		return nil, err
	}
	return r, nil
}

// ListResults returns the most recent results, optionally for one variant
func (s *SQLiteStore) ListResults(ctx context.Context, variant engine.Variant, limit int) ([]*service.MatchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game, map, cutoff, turns, scores_json, winners_json, finished_at
		 FROM results WHERE (? = '' OR game = ?)
		 ORDER BY finished_at DESC, id LIMIT ?`,
		string(variant), string(variant), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []*service.MatchResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadPlayers(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

// Leaderboard ranks players by wins, then points, then name
func (s *SQLiteStore) Leaderboard(ctx context.Context, variant engine.Variant, limit int) ([]*service.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.player, COUNT(*), SUM(p.won), SUM(p.score)
		 FROM result_players p JOIN results r ON r.id = p.result_id
		 WHERE (? = '' OR r.game = ?)
		 GROUP BY p.player
		 ORDER BY SUM(p.won) DESC, SUM(p.score) DESC, p.player
		 LIMIT ?`,
		string(variant), string(variant), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*service.LeaderboardEntry
	for rows.Next() {
		e := &service.LeaderboardEntry{Game: variant}
		if err := rows.Scan(&e.Player, &e.Games, &e.Wins, &e.Points); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (*service.MatchResult, error) {
	var (
		r                service.MatchResult
		game             string
		scores, winners  string
		finishedAtMillis int64
	)
	if err := row.Scan(&r.ID, &game, &r.Map, &r.Cutoff, &r.Turns, &scores, &winners, &finishedAtMillis); err != nil {
		return nil, err
	}
	r.Game = engine.Variant(game)
	r.FinishedAt = time.UnixMilli(finishedAtMillis)
	if err := json.Unmarshal([]byte(scores), &r.Scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
	}
	if err := json.Unmarshal([]byte(winners), &r.Winners); err != nil {
		return nil, fmt.Errorf("failed to unmarshal winners: %w", err)
	}
	return &r, nil
}

// loadPlayers fills in player names by seat
func (s *SQLiteStore) loadPlayers(ctx context.Context, results []*service.MatchResult) error {
	for _, r := range results {
		rows, err := s.db.QueryContext(ctx,
			`SELECT player FROM result_players WHERE result_id = ? ORDER BY seat`, r.ID)
		if err != nil {
			return fmt.Errorf("failed to query players: %w", err)
		}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan player: %w", err)
			}
			r.Players = append(r.Players, name)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
