package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/botarena/game/engine"
	"github.com/wricardo/botarena/game/service"
)

var (
	ErrMapNotFound = errors.New("map not found")
	ErrInvalidMap  = errors.New("invalid map")
)

// DefaultMapName is the identifier of a variant's default map
const DefaultMapName = "default"

const mapExt = ".map"

// Manager handles map file loading and caching. Maps live in one sub
// directory per variant: <dir>/life/*.map and <dir>/lights/*.map.
type Manager struct {
	mapsDir  string
	options  engine.Options
	defaults map[engine.Variant]*service.Map
	maps     map[string]*service.Map
	mu       sync.RWMutex
}

// NewManager creates a new map manager. A missing maps directory is not an
// error; only the built-in default maps are available then.
func NewManager(mapsDir string, opts engine.Options) (*Manager, error) {
	if info, err := os.Stat(mapsDir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("maps path is not a directory: %s", mapsDir)
	}

	m := &Manager{
		mapsDir:  mapsDir,
		options:  opts,
		defaults: make(map[engine.Variant]*service.Map),
		maps:     make(map[string]*service.Map),
	}

	if err := m.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load default maps: %w", err)
	}

	return m, nil
}

func cacheKey(variant engine.Variant, name string) string {
	return string(variant) + "/" + name
}

// LoadMap loads a map by variant and name
func (m *Manager) LoadMap(variant engine.Variant, name string) (*service.Map, error) {
	name = strings.TrimSuffix(name, mapExt)
	if name == "" || name == DefaultMapName {
		if def := m.GetDefault(variant); def != nil {
			return def, nil
		}
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownVariant, variant)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: %q", ErrMapNotFound, name)
	}

	key := cacheKey(variant, name)
	m.mu.RLock()
	if cached, exists := m.maps[key]; exists {
		m.mu.RUnlock()
		return cached, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if cached, exists := m.maps[key]; exists {
		return cached, nil
	}

	path := filepath.Join(m.mapsDir, string(variant), name+mapExt)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrMapNotFound, variant, name)
		}
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}

	loaded, err := Parse(variant, name, string(data))
	if err != nil {
		return nil, err
	}

	m.maps[key] = loaded
	return loaded, nil
}

// Parse validates map text for a variant. Life maps with live cells are
// only valid in scenario mode, so they are checked as scenarios here and
// rejected at match creation unless scenario is requested.
func Parse(variant engine.Variant, name, text string) (*service.Map, error) {
	data, err := engine.ParseMap(variant, text, true)
	if err != nil {
		return nil, fmt.Errorf("%w %s/%s: %v", ErrInvalidMap, variant, name, err)
	}
	return &service.Map{
		Name:        name,
		Game:        variant,
		Description: description(text),
		Text:        text,
		Data:        data,
	}, nil
}

// description joins the comment lines at the top of a map file
func description(text string) string {
	var parts []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			break
		}
		parts = append(parts, strings.TrimSpace(strings.TrimPrefix(line, "#")))
	}
	return strings.Join(parts, " ")
}

// ListMaps returns information about all available maps of a variant, or of
// every variant when variant is empty. Built-in defaults are listed first.
func (m *Manager) ListMaps(variant engine.Variant) ([]*service.MapInfo, error) {
	variants := engine.Variants()
	if variant != "" {
		if _, err := engine.ParseVariant(string(variant)); err != nil {
			return nil, err
		}
		variants = []engine.Variant{variant}
	}

	var maps []*service.MapInfo
	for _, v := range variants {
		maps = append(maps, mapInfo(m.GetDefault(v), ""))

		dir := filepath.Join(m.mapsDir, string(v))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read maps directory: %w", err)
		}

		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), mapExt) {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)

		for _, filename := range names {
			loaded, err := m.LoadMap(v, strings.TrimSuffix(filename, mapExt))
			if err != nil {
				// Skip invalid maps
				log.Warn().Err(err).Str("file", filename).Msg("skipping invalid map")
				continue
			}
			maps = append(maps, mapInfo(loaded, filename))
		}
	}

	return maps, nil
}

func mapInfo(m *service.Map, filename string) *service.MapInfo {
	return &service.MapInfo{
		Filename:    filename,
		MapID:       m.Name,
		Game:        m.Game,
		Description: m.Description,
		Rows:        m.Data.Height,
		Cols:        m.Data.Width,
		Players:     m.Data.NumPlayers,
	}
}

// GetDefault returns the default map of a variant
func (m *Manager) GetDefault(variant engine.Variant) *service.Map {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaults[variant]
}

// SetDefault makes a map file the default of its variant
func (m *Manager) SetDefault(variant engine.Variant, name string) error {
	loaded, err := m.LoadMap(variant, name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults[variant] = loaded
	return nil
}

// DefaultOptions returns the engine options used when a request omits them
func (m *Manager) DefaultOptions() engine.Options {
	return m.options
}

// RefreshCache drops every cached map so files are read again
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.maps = make(map[string]*service.Map)
	m.mu.Unlock()

	return m.loadDefaults()
}

// loadDefaults prefers <variant>/default.map and falls back to the
// built-in maps
func (m *Manager) loadDefaults() error {
	for _, v := range engine.Variants() {
		path := filepath.Join(m.mapsDir, string(v), DefaultMapName+mapExt)
		text, err := os.ReadFile(path)
		if err != nil {
			text = []byte(BuiltinMap(v))
		}

		loaded, err := Parse(v, DefaultMapName, string(text))
		if err != nil {
			return err
		}

		m.mu.Lock()
		m.defaults[v] = loaded
		m.mu.Unlock()
	}
	return nil
}

// SaveMap validates and writes a map file
func (m *Manager) SaveMap(variant engine.Variant, name, text string) error {
	name = strings.TrimSuffix(name, mapExt)
	if name == "" || name == DefaultMapName || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid name %q", ErrInvalidMap, name)
	}

	loaded, err := Parse(variant, name, text)
	if err != nil {
		return err
	}

	dir := filepath.Join(m.mapsDir, string(variant))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create maps directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+mapExt), []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write map file: %w", err)
	}

	m.mu.Lock()
	m.maps[cacheKey(variant, name)] = loaded
	m.mu.Unlock()

	return nil
}
