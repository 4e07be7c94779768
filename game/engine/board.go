package engine

import "fmt"

// mooreOffsets are the 8 neighbours of a cell, origin excluded
var mooreOffsets = [8]Location{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Board is a fixed size grid of cell states. It only checks bounds; whether a
// write is legal is decided by the order validator.
type Board struct {
	height int
	width  int
	blank  CellState
	cells  []CellState
}

// NewBoard creates a height x width board with every cell set to blank
func NewBoard(height, width int, blank CellState) (*Board, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, height, width)
	}
	cells := make([]CellState, height*width)
	for i := range cells {
		cells[i] = blank
	}
	return &Board{height: height, width: width, blank: blank, cells: cells}, nil
}

// Height returns the number of rows
func (b *Board) Height() int { return b.height }

// Width returns the number of columns
func (b *Board) Width() int { return b.width }

// Blank returns the state of a cell that was never set
func (b *Board) Blank() CellState { return b.blank }

// InBounds reports whether loc lies inside the board
func (b *Board) InBounds(loc Location) bool {
	return loc.Row >= 0 && loc.Row < b.height && loc.Col >= 0 && loc.Col < b.width
}

// Get returns the state at loc
func (b *Board) Get(loc Location) (CellState, error) {
	if !b.InBounds(loc) {
		return b.blank, fmt.Errorf("%w: %s on %dx%d board", ErrOutOfBounds, loc, b.height, b.width)
	}
	return b.cells[loc.Row*b.width+loc.Col], nil
}

// Set overwrites the state at loc
func (b *Board) Set(loc Location, state CellState) error {
	if !b.InBounds(loc) {
		return fmt.Errorf("%w: %s on %dx%d board", ErrOutOfBounds, loc, b.height, b.width)
	}
	b.cells[loc.Row*b.width+loc.Col] = state
	return nil
}

// at is Get without the bounds check, for loops that already iterate in range
func (b *Board) at(row, col int) CellState {
	return b.cells[row*b.width+col]
}

// CountNeighborOwners returns, for each of numPlayers players, how many cells
// in the Moore neighbourhood of loc that player owns. Neighbours outside the
// board are skipped.
func (b *Board) CountNeighborOwners(loc Location, numPlayers int) ([]int, error) {
	if !b.InBounds(loc) {
		return nil, fmt.Errorf("%w: %s on %dx%d board", ErrOutOfBounds, loc, b.height, b.width)
	}
	counts := make([]int, numPlayers)
	for _, off := range mooreOffsets {
		n := Location{Row: loc.Row + off.Row, Col: loc.Col + off.Col}
		if !b.InBounds(n) {
			continue
		}
		owner := int(b.at(n.Row, n.Col))
		if owner >= 0 && owner < numPlayers {
			counts[owner]++
		}
	}
	return counts, nil
}

// Count returns how many cells hold state
func (b *Board) Count(state CellState) int {
	n := 0
	for _, c := range b.cells {
		if c == state {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of the board
func (b *Board) Clone() *Board {
	cells := make([]CellState, len(b.cells))
	copy(cells, b.cells)
	return &Board{height: b.height, width: b.width, blank: b.blank, cells: cells}
}

// Equal reports whether two boards have the same shape and content
func (b *Board) Equal(other *Board) bool {
	if other == nil || b.height != other.height || b.width != other.width {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Rows renders the board one string per row using the given alphabet
func (b *Board) Rows(a *Alphabet) []string {
	rows := make([]string, b.height)
	buf := make([]byte, b.width)
	for r := 0; r < b.height; r++ {
		for c := 0; c < b.width; c++ {
			buf[c] = a.Symbol(b.at(r, c))
		}
		rows[r] = string(buf)
	}
	return rows
}
