package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/botarena/game/engine"
)

// GameService defines all match-related operations
type GameService interface {
	// Match management
	CreateMatch(ctx context.Context, req CreateMatchRequest) (*MatchInfo, error)
	GetMatch(ctx context.Context, matchID string) (*MatchInfo, error)
	ListMatches(ctx context.Context) ([]*MatchInfo, error)
	DeleteMatch(ctx context.Context, matchID string) error

	// Seat operations
	PlayerState(ctx context.Context, matchID string, player int) (string, error)
	SubmitOrders(ctx context.Context, matchID string, player int, lines []string) (*OrdersResult, error)
	KillPlayer(ctx context.Context, matchID string, player int) (*MatchInfo, error)

	// Turn progression
	AdvanceTurn(ctx context.Context, matchID string) (*MatchInfo, error)
	Replay(ctx context.Context, matchID string) (*engine.Replay, error)

	// Bot matches
	RunBots(ctx context.Context, req RunRequest) (*RunResult, error)

	// Maps and results
	ListMaps(ctx context.Context, variant engine.Variant) ([]*MapInfo, error)
	LoadMap(ctx context.Context, variant engine.Variant, name string) (*Map, error)
	Leaderboard(ctx context.Context, variant engine.Variant, limit int) ([]*LeaderboardEntry, error)
}

// SessionManager defines match session storage operations
type SessionManager interface {
	Create(m *Map, opts engine.Options, players []string) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	Save(id string) error
	LoadReplay(id string) (*engine.Replay, error)
}

// MapManager handles map loading
type MapManager interface {
	LoadMap(variant engine.Variant, name string) (*Map, error)
	ListMaps(variant engine.Variant) ([]*MapInfo, error)
	GetDefault(variant engine.Variant) *Map
	DefaultOptions() engine.Options
}

// ResultStore records finished matches
type ResultStore interface {
	SaveResult(ctx context.Context, result *MatchResult) error
	GetResult(ctx context.Context, id string) (*MatchResult, error)
	ListResults(ctx context.Context, variant engine.Variant, limit int) ([]*MatchResult, error)
	Leaderboard(ctx context.Context, variant engine.Variant, limit int) ([]*LeaderboardEntry, error)
}

// Notifier receives match events for live spectators
type Notifier interface {
	BroadcastEvent(matchID string, event string, data interface{})
}

// Session represents a match in progress or finished
type Session struct {
	ID        string
	Map       *Map
	Players   []string
	Game      engine.Game
	CreatedAt time.Time
	UpdatedAt time.Time

	// LastOrders holds the latest order report per seat for the current turn
	LastOrders map[int]engine.OrderReport

	// Automated matches are driven by bots; seats cannot be played by hand
	Automated bool

	mu sync.Mutex
}

// Lock serialises access to the session's game
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session lock
func (s *Session) Unlock() { s.mu.Unlock() }

// Touch records an update to the session
func (s *Session) Touch() { s.UpdatedAt = time.Now() }

// Finished reports whether the match has been settled
func (s *Session) Finished() bool {
	return s.Game.Phase() == engine.GameOver
}
