package session

import (
	"time"

	"github.com/wricardo/botarena/game/engine"
	"github.com/wricardo/botarena/game/service"
)

// ReplayPersistence defines the interface for persisting finished matches
type ReplayPersistence interface {
	// Save writes the replay of a finished session to storage
	Save(session *service.Session) error

	// Load retrieves a persisted match by ID
	Load(id string) (*PersistedMatch, error)

	// Delete removes a match from storage
	Delete(id string) error

	// ListAll returns all persisted match IDs
	ListAll() ([]string, error)

	// Exists checks if a match exists in storage
	Exists(id string) bool
}

// PersistedMatch represents the JSON structure of a stored match
type PersistedMatch struct {
	ID         string         `json:"id"`
	MapName    string         `json:"map_name"`
	Players    []string       `json:"players"`
	CreatedAt  time.Time      `json:"created_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Replay     *engine.Replay `json:"replay"`
}
