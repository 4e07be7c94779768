package engine

import (
	"strconv"
	"strings"
	"unicode"
)

// MapCell is a non-blank cell declared by a map
type MapCell struct {
	Loc   Location  `json:"loc"`
	State CellState `json:"state"`
}

// MapData is the parsed form of a map text
type MapData struct {
	Variant    Variant   `json:"variant"`
	Height     int       `json:"rows"`
	Width      int       `json:"cols"`
	NumPlayers int       `json:"players"`
	Cells      []MapCell `json:"cells,omitempty"`
}

// Board builds the initial board described by the map
func (m *MapData) Board() (*Board, error) {
	b, err := NewBoard(m.Height, m.Width, AlphabetFor(m.Variant).blank)
	if err != nil {
		return nil, err
	}
	for _, c := range m.Cells {
		if err := b.Set(c.Loc, c.State); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Render writes the map back in the text format accepted by ParseMap
func (m *MapData) Render() (string, error) {
	b, err := m.Board()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("rows " + strconv.Itoa(m.Height) + "\n")
	sb.WriteString("cols " + strconv.Itoa(m.Width) + "\n")
	sb.WriteString("players " + strconv.Itoa(m.NumPlayers) + "\n")
	for _, row := range b.Rows(AlphabetFor(m.Variant)) {
		sb.WriteString("m " + row + "\n")
	}
	return sb.String(), nil
}

// ParseMap parses a line oriented map description.
//
// Recognised directives are "cols", "rows", "players" and "m" (one board row);
// keys are case-insensitive, blank lines and lines starting with '#' are
// skipped and unknown keys are ignored. Pre-populated cells are only accepted
// when scenario is true.
func ParseMap(v Variant, text string, scenario bool) (*MapData, error) {
	alpha := AlphabetFor(v)
	data := &MapData{Variant: v}
	height, width, players := -1, -1, -1
	row := 0

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || line[0] == '#' {
			continue
		}

		sep := strings.IndexFunc(line, unicode.IsSpace)
		if sep < 0 {
			return nil, mapErrorf(lineNo, "expected '<key> <value>', got %q", line)
		}
		key := strings.ToLower(line[:sep])
		value := strings.TrimSpace(line[sep+1:])

		switch key {
		case "cols", "rows", "players":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, mapErrorf(lineNo, "%s must be an integer, got %q", key, value)
			}
			switch key {
			case "cols":
				if n <= 0 {
					return nil, mapErrorf(lineNo, "cols must be positive, got %d", n)
				}
				width = n
			case "rows":
				if n <= 0 {
					return nil, mapErrorf(lineNo, "rows must be positive, got %d", n)
				}
				height = n
			case "players":
				if n < 1 || n > MaxPlayers {
					return nil, mapErrorf(lineNo, "player count must be 1 or 2")
				}
				players = n
			}

		case "m":
			if players < 0 {
				return nil, mapErrorf(lineNo, "players count expected before map lines")
			}
			if width < 0 || height < 0 {
				return nil, mapErrorf(lineNo, "cols and rows expected before map lines")
			}
			if len(value) != width {
				return nil, mapErrorf(lineNo, "Incorrect number of cols in row %d. Got %d, expected %d.", row, len(value), width)
			}
			for col := 0; col < len(value); col++ {
				state, ok := alpha.Decode(value[col], players)
				if !ok {
					return nil, mapErrorf(lineNo, "Invalid character in map: %c", value[col])
				}
				if state != alpha.blank {
					data.Cells = append(data.Cells, MapCell{Loc: Location{Row: row, Col: col}, State: state})
				}
			}
			row++
		}
	}

	if players < 0 {
		return nil, mapErrorf(0, "players directive missing")
	}
	if width < 0 || height < 0 {
		return nil, mapErrorf(0, "cols and rows directives are required")
	}
	if height != row {
		return nil, mapErrorf(0, "Incorrect number of rows.  Expected %d, got %d", height, row)
	}
	if !scenario {
		for _, c := range data.Cells {
			if alpha.Alive(c.State) {
				return nil, mapErrorf(0, "Only scenarios support alive cells in map files")
			}
		}
	}

	data.Height, data.Width, data.NumPlayers = height, width, players
	return data, nil
}
