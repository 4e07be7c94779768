package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/botarena/game/engine"
)

// ValidationResult captures the outcome of validating a single map file.
// Notes summarises a valid map; Errors lists what is wrong with an invalid
// one.
type ValidationResult struct {
	File   string         `json:"file"`
	Game   engine.Variant `json:"game"`
	Valid  bool           `json:"valid"`
	Errors []string       `json:"errors,omitempty"`
	Notes  []string       `json:"notes,omitempty"`
}

// VariantFromPath guesses the game of a map from its parent directory,
// e.g. maps/lights/cross.map. It returns "" when the directory is not a
// known variant.
func VariantFromPath(path string) engine.Variant {
	dir := filepath.Base(filepath.Dir(path))
	v, err := engine.ParseVariant(dir)
	if err != nil {
		return ""
	}
	return v
}

// ValidateFile checks a map file for variant. An empty variant is taken
// from the file's directory. Live cells are reported, since life maps only
// accept them in scenario matches.
func ValidateFile(variant engine.Variant, path string) ValidationResult {
	result := ValidationResult{
		File:  path,
		Game:  variant,
		Valid: true,
	}

	if result.Game == "" {
		result.Game = VariantFromPath(path)
	}
	if result.Game == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "Unknown game: pass one or keep the map under a life/ or lights/ directory")
		return result
	}
	if _, err := engine.ParseVariant(string(result.Game)); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	parsed, err := engine.ParseMap(result.Game, string(data), true)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	alpha := engine.AlphabetFor(result.Game)
	counts := make(map[string]int)
	alive := 0
	for _, c := range parsed.Cells {
		counts[string(alpha.Symbol(c.State))]++
		if alpha.Alive(c.State) {
			alive++
		}
	}

	result.Notes = append(result.Notes, fmt.Sprintf("Grid: %dx%d", parsed.Height, parsed.Width))
	result.Notes = append(result.Notes, fmt.Sprintf("Players: %d", parsed.NumPlayers))
	if desc := description(string(data)); desc != "" {
		result.Notes = append(result.Notes, "Description: "+desc)
	}
	if len(counts) > 0 {
		symbols := make([]string, 0, len(counts))
		for s := range counts {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		parts := make([]string, len(symbols))
		for i, s := range symbols {
			parts[i] = fmt.Sprintf("%s=%d", s, counts[s])
		}
		result.Notes = append(result.Notes, "Cells: "+strings.Join(parts, " "))
	}

	switch {
	case result.Game == engine.Life && alive > 0:
		result.Notes = append(result.Notes, "Scenario only: the map has live cells")
	case result.Game == engine.Lights && alive == 0:
		result.Notes = append(result.Notes, "Every light is off: a match ends on its first turn")
	}

	return result
}
