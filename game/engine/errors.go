package engine

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds       = errors.New("location out of bounds")
	ErrInvalidDimensions = errors.New("invalid board dimensions")
	ErrUnknownVariant    = errors.New("unknown game variant")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrNoActiveTurn      = errors.New("no active turn")
	ErrGameFinished      = errors.New("game already finished")
)

// MapError reports a map that cannot be used to create a match
type MapError struct {
	Line   int // 1-based line number, 0 when the whole map is at fault
	Reason string
}

func (e *MapError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("map error on line %d: %s", e.Line, e.Reason)
	}
	return "map error: " + e.Reason
}

func mapErrorf(line int, format string, args ...any) *MapError {
	return &MapError{Line: line, Reason: fmt.Sprintf(format, args...)}
}
