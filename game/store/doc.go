// Package store persists finished match results in SQLite.
//
// Every result row keeps the game, map, cutoff reason, turn count, final
// scores and winners; a per-seat table holds player names, scores and wins
// and backs the leaderboard. A seat wins a match only when it holds the top
// score alone.
package store
