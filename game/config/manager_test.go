package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/wricardo/botarena/game/engine"
)

const smallLife = "# two player skirmish\nrows 3\ncols 4\nplayers 2\nm ----\nm ----\nm ----\n"

const crossLights = "rows 3\ncols 3\nplayers 2\nm 010\nm 111\nm 010\n"

func writeMapFile(t *testing.T, dir string, variant engine.Variant, name, text string) {
	t.Helper()
	sub := filepath.Join(dir, string(variant))
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("Failed to create map dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, name+".map"), []byte(text), 0644); err != nil {
		t.Fatalf("Failed to write map file: %v", err)
	}
}

func newTestManager(t *testing.T, dir string) *Manager {
	t.Helper()
	manager, err := NewManager(dir, engine.DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return manager
}

func TestNewManager(t *testing.T) {
	t.Run("missing directory uses built-in maps", func(t *testing.T) {
		manager := newTestManager(t, filepath.Join(t.TempDir(), "nope"))

		life := manager.GetDefault(engine.Life)
		if life == nil {
			t.Fatal("Expected default life map")
		}
		if life.Data.Height != 29 || life.Data.Width != 29 || life.Data.NumPlayers != 2 {
			t.Errorf("Expected 29x29 two player map, got %dx%d with %d players",
				life.Data.Height, life.Data.Width, life.Data.NumPlayers)
		}
		if len(life.Data.Cells) != 0 {
			t.Errorf("Expected empty default life board, got %d cells", len(life.Data.Cells))
		}

		lights := manager.GetDefault(engine.Lights)
		if lights == nil || len(lights.Data.Cells) == 0 {
			t.Fatal("Expected default lights map with lit cells")
		}
	})

	t.Run("file path is rejected", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "maps")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewManager(file, engine.DefaultOptions()); err == nil {
			t.Error("Expected error for non-directory maps path")
		}
	})

	t.Run("default.map overrides built-in", func(t *testing.T) {
		dir := t.TempDir()
		writeMapFile(t, dir, engine.Life, "default", smallLife)
		manager := newTestManager(t, dir)

		def := manager.GetDefault(engine.Life)
		if def.Data.Width != 4 {
			t.Errorf("Expected default.map to be used, got width %d", def.Data.Width)
		}
	})
}

func TestLoadMap(t *testing.T) {
	dir := t.TempDir()
	writeMapFile(t, dir, engine.Life, "small", smallLife)
	writeMapFile(t, dir, engine.Lights, "cross", crossLights)
	writeMapFile(t, dir, engine.Lights, "broken", "rows 2\ncols 2\nplayers 2\nm 01\n")
	manager := newTestManager(t, dir)

	m, err := manager.LoadMap(engine.Life, "small")
	if err != nil {
		t.Fatalf("Failed to load map: %v", err)
	}
	if m.Name != "small" || m.Game != engine.Life {
		t.Errorf("Unexpected map identity %s/%s", m.Game, m.Name)
	}
	if m.Description != "two player skirmish" {
		t.Errorf("Expected description from comment, got %q", m.Description)
	}

	again, err := manager.LoadMap(engine.Life, "small.map")
	if err != nil {
		t.Fatalf("Failed to load map with extension: %v", err)
	}
	if again != m {
		t.Error("Expected cached map instance")
	}

	if _, err := manager.LoadMap(engine.Lights, "cross"); err != nil {
		t.Errorf("Failed to load lights map: %v", err)
	}

	if _, err := manager.LoadMap(engine.Life, "cross"); !errors.Is(err, ErrMapNotFound) {
		t.Errorf("Expected ErrMapNotFound for map of other variant, got %v", err)
	}

	if _, err := manager.LoadMap(engine.Life, "../lights/cross"); !errors.Is(err, ErrMapNotFound) {
		t.Errorf("Expected ErrMapNotFound for path traversal, got %v", err)
	}

	_, err = manager.LoadMap(engine.Lights, "broken")
	if !errors.Is(err, ErrInvalidMap) {
		t.Fatalf("Expected ErrInvalidMap, got %v", err)
	}
	if !strings.Contains(err.Error(), "Incorrect number of rows") {
		t.Errorf("Expected parser reason in error, got %v", err)
	}

	def, err := manager.LoadMap(engine.Lights, "")
	if err != nil || def != manager.GetDefault(engine.Lights) {
		t.Errorf("Expected empty name to resolve to the default map, got %v", err)
	}
}

func TestListMaps(t *testing.T) {
	dir := t.TempDir()
	writeMapFile(t, dir, engine.Life, "small", smallLife)
	writeMapFile(t, dir, engine.Life, "bad", "players 9\n")
	writeMapFile(t, dir, engine.Lights, "cross", crossLights)
	if err := os.WriteFile(filepath.Join(dir, "life", "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	manager := newTestManager(t, dir)

	all, err := manager.ListMaps("")
	if err != nil {
		t.Fatalf("Failed to list maps: %v", err)
	}

	var ids []string
	for _, info := range all {
		ids = append(ids, string(info.Game)+"/"+info.MapID)
	}
	want := "life/default,life/small,lights/default,lights/cross"
	if got := strings.Join(ids, ","); got != want {
		t.Errorf("Expected maps %s, got %s", want, got)
	}

	life, err := manager.ListMaps(engine.Life)
	if err != nil {
		t.Fatalf("Failed to list life maps: %v", err)
	}
	if len(life) != 2 {
		t.Fatalf("Expected 2 life maps, got %d", len(life))
	}
	small := life[1]
	if small.Filename != "small.map" || small.Rows != 3 || small.Cols != 4 || small.Players != 2 {
		t.Errorf("Unexpected map info: %+v", small)
	}

	if _, err := manager.ListMaps("chess"); !errors.Is(err, engine.ErrUnknownVariant) {
		t.Errorf("Expected ErrUnknownVariant, got %v", err)
	}
}

func TestSaveMap(t *testing.T) {
	dir := t.TempDir()
	manager := newTestManager(t, dir)

	if err := manager.SaveMap(engine.Lights, "cross", crossLights); err != nil {
		t.Fatalf("Failed to save map: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "lights", "cross.map")); err != nil {
		t.Errorf("Expected map file on disk: %v", err)
	}
	if _, err := manager.LoadMap(engine.Lights, "cross"); err != nil {
		t.Errorf("Expected saved map to load: %v", err)
	}

	if err := manager.SaveMap(engine.Lights, "bad", "rows 1\n"); !errors.Is(err, ErrInvalidMap) {
		t.Errorf("Expected ErrInvalidMap, got %v", err)
	}
	if err := manager.SaveMap(engine.Lights, "default", crossLights); !errors.Is(err, ErrInvalidMap) {
		t.Errorf("Expected default name to be reserved, got %v", err)
	}
}

func TestSetDefaultAndRefresh(t *testing.T) {
	dir := t.TempDir()
	writeMapFile(t, dir, engine.Life, "small", smallLife)
	manager := newTestManager(t, dir)

	if err := manager.SetDefault(engine.Life, "small"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if manager.GetDefault(engine.Life).Name != "small" {
		t.Error("Expected small to be the default map")
	}

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("Failed to refresh: %v", err)
	}
	if manager.GetDefault(engine.Life).Name != DefaultMapName {
		t.Error("Expected refresh to restore the default map")
	}
}

func TestConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	writeMapFile(t, dir, engine.Lights, "cross", crossLights)
	manager := newTestManager(t, dir)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.LoadMap(engine.Lights, "cross"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent load failed: %v", err)
	}
}

func TestBuiltinMapsParse(t *testing.T) {
	for _, v := range engine.Variants() {
		if _, err := Parse(v, DefaultMapName, BuiltinMap(v)); err != nil {
			t.Errorf("Built-in %s map does not parse: %v", v, err)
		}
	}
	if manager := newTestManager(t, t.TempDir()); manager.DefaultOptions().Turns != 100 {
		t.Errorf("Expected default turn limit 100, got %d", manager.DefaultOptions().Turns)
	}
}
