package engine

import (
	"fmt"
	"sort"
)

// Factory builds a Game from map text
type Factory func(mapText string, opts Options) (Game, error)

var factories = map[Variant]Factory{
	Life: func(mapText string, opts Options) (Game, error) {
		return NewLifeGame(mapText, opts)
	},
	Lights: func(mapText string, opts Options) (Game, error) {
		return NewLightsOut(mapText, opts)
	},
}

// New creates a match of the given variant
func New(v Variant, mapText string, opts Options) (Game, error) {
	factory, ok := factories[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
	return factory(mapText, opts)
}

// Variants lists the supported rule sets in name order
func Variants() []Variant {
	out := make([]Variant, 0, len(factories))
	for v := range factories {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rules returns a short plain text description of a variant, as shown to
// bot authors.
func Rules(v Variant) string {
	switch v {
	case Life:
		return `Game of Life (two players).
Input: the first line is your symbol (w or b), followed by the board where
w and b are owned cells and - is empty.
Output: one line "row col" naming an empty cell to occupy.
You move when the number of live cells has your parity (w: even, b: odd).
At the turn limit the board runs through the Game of Life rules and each
player scores its surviving cells.`
	case Lights:
		return `Lights Out (two players).
Input: the first line is your symbol (1 or 2), followed by the board where
1 is ON and 0 is OFF.
Output: one line "row col" naming an ON cell. That cell and its right and
lower neighbours are toggled.
Player 1 moves on odd turns, player 2 on even turns. Switching off the last
light wins the game.`
	}
	return ""
}
