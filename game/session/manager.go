package session

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/botarena/game/engine"
	"github.com/wricardo/botarena/game/service"
)

var (
	ErrSessionNotFound  = errors.New("match not found")
	ErrInvalidSessionID = errors.New("invalid match ID")
	ErrPlayerCount      = errors.New("player names do not match map players")
)

// Manager handles match session lifecycle. Running matches live in memory
// only; finished matches can be saved as replays.
type Manager struct {
	sessions    map[string]*service.Session
	persistence ReplayPersistence
	mu          sync.RWMutex
}

// NewManager creates a new session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
	}
}

// NewManagerWithPersistence creates a new session manager that saves replays
func NewManagerWithPersistence(persistence ReplayPersistence) *Manager {
	return &Manager{
		sessions:    make(map[string]*service.Session),
		persistence: persistence,
	}
}

// Create builds a new match on a map. Missing player names default to
// "player0", "player1", ...
func (m *Manager) Create(mp *service.Map, opts engine.Options, players []string) (*service.Session, error) {
	if mp == nil {
		return nil, fmt.Errorf("map cannot be nil")
	}

	game, err := engine.New(mp.Game, mp.Text, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	switch {
	case len(players) == 0:
		players = make([]string, game.NumPlayers())
		for i := range players {
			players[i] = "player" + strconv.Itoa(i)
		}
	case len(players) != game.NumPlayers():
		return nil, fmt.Errorf("%w: got %d names for %d players", ErrPlayerCount, len(players), game.NumPlayers())
	}

	now := time.Now()
	session := &service.Session{
		ID:         uuid.NewString(),
		Map:        mp,
		Players:    players,
		Game:       game,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastOrders: make(map[int]engine.OrderReport),
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	log.Debug().Str("match_id", session.ID).Str("game", string(mp.Game)).Str("map", mp.Name).Msg("match created")
	return session, nil
}

// Get retrieves a running or finished in-memory match
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns all in-memory matches, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes a match from memory and its saved replay, if any
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, inMemory := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted replay: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// Save writes the replay of a match to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	session, err := m.Get(id)
	if err != nil {
		return err
	}

	session.Lock()
	defer session.Unlock()
	return m.persistence.Save(session)
}

// LoadReplay returns the replay of an in-memory match or, failing that, a
// persisted one
func (m *Manager) LoadReplay(id string) (*engine.Replay, error) {
	if session, err := m.Get(id); err == nil {
		session.Lock()
		defer session.Unlock()
		return session.Game.Replay(), nil
	}

	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}
	stored, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted replay: %w", err)
	}
	return stored.Replay, nil
}

// CleanupFinished drops finished matches not updated within maxAge. Their
// replays stay in persistence.
func (m *Manager) CleanupFinished(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, session := range m.sessions {
		session.Lock()
		stale := session.Finished() && session.UpdatedAt.Before(cutoff)
		session.Unlock()
		if stale {
			delete(m.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("cleaned up finished matches")
	}
	return removed
}

// Count returns the number of in-memory matches
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ListPersisted returns the IDs of saved replays
func (m *Manager) ListPersisted() ([]string, error) {
	if m.persistence == nil {
		return nil, nil
	}
	return m.persistence.ListAll()
}
