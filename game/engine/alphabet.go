package engine

// Alphabet is the fixed symbol mapping a variant uses for map text, the
// player-visible board and replays.
type Alphabet struct {
	// owners[i] is the symbol of a cell owned by player i (life only)
	owners []byte
	// states maps non-owner symbols to their cell state
	states map[byte]CellState
	// players[i] is the first line of player i's state message
	players [MaxPlayers]byte
	// blank is the state of a symbol-less cell
	blank CellState
}

var lifeAlphabet = &Alphabet{
	owners:  []byte{'w', 'b'},
	states:  map[byte]CellState{'-': Empty},
	players: [MaxPlayers]byte{'w', 'b'},
	blank:   Empty,
}

var lightsAlphabet = &Alphabet{
	states:  map[byte]CellState{'0': Off, '1': On},
	players: [MaxPlayers]byte{'1', '2'},
	blank:   Off,
}

// AlphabetFor returns the alphabet of a variant
func AlphabetFor(v Variant) *Alphabet {
	if v == Lights {
		return lightsAlphabet
	}
	return lifeAlphabet
}

// Decode maps a map symbol to a cell state. Owner symbols are only valid for
// players below numPlayers.
func (a *Alphabet) Decode(symbol byte, numPlayers int) (CellState, bool) {
	for i, o := range a.owners {
		if o == symbol {
			if i >= numPlayers {
				return a.blank, false
			}
			return Owner(i), true
		}
	}
	s, ok := a.states[symbol]
	return s, ok
}

// Symbol renders a cell state
func (a *Alphabet) Symbol(state CellState) byte {
	if len(a.owners) > 0 && state >= 0 && int(state) < len(a.owners) {
		return a.owners[state]
	}
	for sym, s := range a.states {
		if s == state {
			return sym
		}
	}
	return '?'
}

// PlayerSymbol is the character identifying player in its state message
func (a *Alphabet) PlayerSymbol(player int) byte {
	if player < 0 || player >= MaxPlayers {
		return '?'
	}
	return a.players[player]
}

// Alive reports whether a state counts as a live/ON cell for the
// scenario-only check
func (a *Alphabet) Alive(state CellState) bool {
	if len(a.owners) > 0 {
		return state >= 0
	}
	return state == On
}
