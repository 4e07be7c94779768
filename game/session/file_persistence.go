package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/botarena/game/service"
)

// FilePersistence implements ReplayPersistence with one JSON file per match
type FilePersistence struct {
	replaysDir string
}

// NewFilePersistence creates a new file-based replay store
func NewFilePersistence(replaysDir string) (*FilePersistence, error) {
	// Create replays directory if it doesn't exist
	if err := os.MkdirAll(replaysDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create replays directory: %w", err)
	}

	return &FilePersistence{replaysDir: replaysDir}, nil
}

// Save writes a session's replay to <id>.json
func (fp *FilePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if err := validateID(session.ID); err != nil {
		return err
	}

	data := PersistedMatch{
		ID:         session.ID,
		MapName:    session.Map.Name,
		Players:    session.Players,
		CreatedAt:  session.CreatedAt,
		FinishedAt: session.UpdatedAt,
		Replay:     session.Game.Replay(),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal replay: %w", err)
	}

	// Write to a temp file first so readers never see a partial replay
	path := fp.getFilePath(session.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write replay file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write replay file: %w", err)
	}

	return nil
}

// Load reads a persisted match
func (fp *FilePersistence) Load(id string) (*PersistedMatch, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	jsonData, err := os.ReadFile(fp.getFilePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read replay file: %w", err)
	}

	var data PersistedMatch
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal replay: %w", err)
	}
	if data.Replay == nil {
		return nil, fmt.Errorf("replay file %s has no replay", id)
	}

	return &data, nil
}

// Delete removes a replay file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}

	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove replay file: %w", err)
	}

	return nil
}

// ListAll returns all persisted match IDs in name order
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.replaysDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read replays directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(ids)

	return ids, nil
}

// Exists checks if a replay file exists
func (fp *FilePersistence) Exists(id string) bool {
	if validateID(id) != nil {
		return false
	}
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.replaysDir, id+".json")
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}
