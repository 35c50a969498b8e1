package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommandKind(t *testing.T) {
	tests := []struct {
		input     string
		expected  CommandKind
		direction int
	}{
		{input: "next", expected: CommandNext, direction: 1},
		{input: "prev", expected: CommandPrev, direction: -1},
		{input: "refresh", expected: CommandRefresh, direction: 0},
		{input: "none", expected: CommandNone, direction: 0},
		{input: "", expected: CommandNone, direction: 0},
		{input: "reboot", expected: CommandNone, direction: 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseCommandKind(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.direction, got.Direction())
		})
	}
}
