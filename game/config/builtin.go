package config

import (
	"strings"

	"github.com/wricardo/botarena/game/engine"
)

// lightsPattern is the built-in Lights Out board
var lightsPattern = []string{
	"0110110",
	"1001001",
	"1010101",
	"0101010",
	"1010101",
	"1001001",
	"0110110",
}

// BuiltinMap returns the map text used when no default map file exists:
// an empty 29x29 board for life and a symmetric 7x7 pattern for lights.
func BuiltinMap(v engine.Variant) string {
	var sb strings.Builder
	switch v {
	case engine.Lights:
		sb.WriteString("# built-in 7x7 board\n")
		sb.WriteString("rows 7\ncols 7\nplayers 2\n")
		for _, row := range lightsPattern {
			sb.WriteString("m " + row + "\n")
		}
	default:
		sb.WriteString("# built-in empty 29x29 board\n")
		sb.WriteString("rows 29\ncols 29\nplayers 2\n")
		row := strings.Repeat("-", 29)
		for i := 0; i < 29; i++ {
			sb.WriteString("m " + row + "\n")
		}
	}
	return sb.String()
}
