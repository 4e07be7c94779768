package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boardFrom(t *testing.T, v Variant, rows ...string) *Board {
	t.Helper()
	data, err := ParseMap(v, mapText(rows...), true)
	require.NoError(t, err)
	b, err := data.Board()
	require.NoError(t, err)
	return b
}

func TestValidateOrdersLife(t *testing.T) {
	b := boardFrom(t, Life, "w--", "---", "--b")

	report := ValidateOrders(b, RuleFor(Life), []string{
		"1 1",
		"  0 2  ",
		"0 0",
		"2 2",
		"3 0",
		"0 -1",
		"a b",
		"1",
		"1 2 3",
		"",
	})

	assert.Equal(t, []Location{{Row: 1, Col: 1}, {Row: 0, Col: 2}}, report.ValidOrders)
	assert.Equal(t, []string{"1 1", "0 2"}, report.Valid)
	assert.Empty(t, report.Ignored)
	assert.Equal(t, []RejectedOrder{
		{Line: "a b", Reason: ReasonNotIntegers},
		{Line: "1", Reason: ReasonBadFormat},
		{Line: "1 2 3", Reason: ReasonBadFormat},
		{Line: "", Reason: ReasonBadFormat},
		{Line: "0 0", Reason: ReasonOccupied},
		{Line: "2 2", Reason: ReasonOccupied},
		{Line: "3 0", Reason: ReasonOutOfBounds},
		{Line: "0 -1", Reason: ReasonOutOfBounds},
	}, report.Invalid)
	assert.Equal(t, "a b # orders should be integers", report.InvalidLines()[0])
}

func TestValidateOrdersLights(t *testing.T) {
	b := boardFrom(t, Lights, "10", "01")

	report := ValidateOrders(b, RuleFor(Lights), []string{"0 0", "0 1", "1 1", "5 5"})

	assert.Equal(t, []string{"0 0", "1 1"}, report.Valid)
	assert.Equal(t, []string{
		"0 1 # cell state must be ON",
		"5 5 # out of bounds",
	}, report.InvalidLines())
}

func TestValidateOrdersIdempotent(t *testing.T) {
	b := boardFrom(t, Life, "w---", "----", "---b")
	before := b.Clone()

	first := ValidateOrders(b, RuleFor(Life), []string{"0 1", "3 3", "X", "2 2", "9 0"})
	second := ValidateOrders(b, RuleFor(Life), first.Valid)

	assert.Equal(t, first.ValidOrders, second.ValidOrders)
	assert.Equal(t, first.Valid, second.Valid)
	assert.Empty(t, second.Invalid)
	assert.True(t, b.Equal(before), "validation must not modify the board")
}

func TestValidateOrdersEmptySubmission(t *testing.T) {
	b := boardFrom(t, Life, "--")
	report := ValidateOrders(b, RuleFor(Life), nil)
	assert.NotNil(t, report.ValidOrders)
	assert.NotNil(t, report.Invalid)
	assert.Empty(t, report.Valid)
	assert.Empty(t, report.Ignored)
}

func TestValidateOrdersHugeCoordinates(t *testing.T) {
	b := boardFrom(t, Life, "--", "--")

	report := ValidateOrders(b, RuleFor(Life), []string{
		"99999999999999999999 0",
		"0 -99999999999999999999",
		"1 1",
	})

	assert.Equal(t, []string{"1 1"}, report.Valid)
	assert.Equal(t, []RejectedOrder{
		{Line: "99999999999999999999 0", Reason: ReasonOutOfBounds},
		{Line: "0 -99999999999999999999", Reason: ReasonOutOfBounds},
	}, report.Invalid)
}
