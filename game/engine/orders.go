package engine

import (
	"errors"
	"strconv"
	"strings"
)

// Order rejection reasons reported back to bots
const (
	ReasonBadFormat   = "incorrectly formatted order"
	ReasonNotIntegers = "orders should be integers"
	ReasonOutOfBounds = "out of bounds"
	ReasonOccupied    = "cell already occupied"
	ReasonMustBeOn    = "cell state must be ON"
)

// RejectedOrder is a raw order line together with the reason it was refused
type RejectedOrder struct {
	Line   string `json:"line"`
	Reason string `json:"reason"`
}

func (r RejectedOrder) String() string {
	return r.Line + " # " + r.Reason
}

// OrderReport is the four-way classification of one player's submission
type OrderReport struct {
	ValidOrders []Location      `json:"valid_orders"`
	Valid       []string        `json:"valid"`
	Ignored     []RejectedOrder `json:"ignored"`
	Invalid     []RejectedOrder `json:"invalid"`
}

// IgnoredLines renders ignored orders as "line # reason"
func (r OrderReport) IgnoredLines() []string {
	return rejectedLines(r.Ignored)
}

// InvalidLines renders invalid orders as "line # reason"
func (r OrderReport) InvalidLines() []string {
	return rejectedLines(r.Invalid)
}

func rejectedLines(rs []RejectedOrder) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return out
}

// CellRule decides whether an order may target a cell in the given state.
// It returns the rejection reason when it may not.
type CellRule func(state CellState) (reason string, ok bool)

func lifeRule(state CellState) (string, bool) {
	if state != Empty {
		return ReasonOccupied, false
	}
	return "", true
}

func lightsRule(state CellState) (string, bool) {
	if state != On {
		return ReasonMustBeOn, false
	}
	return "", true
}

// parseOrders is the syntax stage: every line must be two integers
func parseOrders(lines []string) (orders []Location, valid []string, invalid []RejectedOrder) {
	for _, raw := range lines {
		line := strings.ToLower(strings.TrimSpace(raw))
		fields := strings.Fields(line)
		if len(fields) != 2 {
			invalid = append(invalid, RejectedOrder{Line: line, Reason: ReasonBadFormat})
			continue
		}
		row, errRow := parseCoord(fields[0])
		col, errCol := parseCoord(fields[1])
		if errRow != nil || errCol != nil {
			invalid = append(invalid, RejectedOrder{Line: line, Reason: ReasonNotIntegers})
			continue
		}
		orders = append(orders, Location{Row: row, Col: col})
		valid = append(valid, line)
	}
	return orders, valid, invalid
}

// parseCoord reads one coordinate. An integer too large for int becomes -1 so
// the bounds stage rejects it as out of bounds.
func parseCoord(field string) (int, error) {
	n, err := strconv.Atoi(field)
	if errors.Is(err, strconv.ErrRange) {
		return -1, nil
	}
	return n, err
}

// ValidateOrders runs both validation stages for a raw submission against
// the current board. The board is not modified.
func ValidateOrders(b *Board, rule CellRule, lines []string) OrderReport {
	orders, lines, invalid := parseOrders(lines)
	report := OrderReport{
		ValidOrders: []Location{},
		Valid:       []string{},
		Ignored:     []RejectedOrder{},
		Invalid:     invalid,
	}
	if report.Invalid == nil {
		report.Invalid = []RejectedOrder{}
	}

	for i, loc := range orders {
		state, err := b.Get(loc)
		if err != nil {
			report.Invalid = append(report.Invalid, RejectedOrder{Line: lines[i], Reason: ReasonOutOfBounds})
			continue
		}
		if reason, ok := rule(state); !ok {
			report.Invalid = append(report.Invalid, RejectedOrder{Line: lines[i], Reason: reason})
			continue
		}
		report.ValidOrders = append(report.ValidOrders, loc)
		report.Valid = append(report.Valid, lines[i])
	}
	return report
}

// RuleFor returns the cell legality rule of a variant
func RuleFor(v Variant) CellRule {
	if v == Lights {
		return lightsRule
	}
	return lifeRule
}
