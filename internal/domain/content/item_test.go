package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		expected Type
		ok       bool
	}{
		{input: "image", expected: TypeImage, ok: true},
		{input: "video", expected: TypeVideo, ok: true},
		{input: "url", expected: TypeURL, ok: true},
		{input: "widget", expected: TypeWidget, ok: true},
		{input: "audio", ok: false},
		{input: "", ok: false},
		{input: "IMAGE", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseType(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestWithDefaultDuration(t *testing.T) {
	items := []Item{
		{ID: "1", Type: TypeImage, Duration: 5 * time.Second},
		{ID: "2", Type: TypeURL},
		{ID: "3", Type: TypeVideo, Duration: -1},
	}

	result := WithDefaultDuration(items, 10*time.Second)

	assert.Equal(t, 5*time.Second, result[0].Duration)
	assert.Equal(t, 10*time.Second, result[1].Duration)
	assert.Equal(t, 10*time.Second, result[2].Duration)

	// Input is not mutated
	assert.Equal(t, time.Duration(0), items[1].Duration)
}

func TestItem_Same(t *testing.T) {
	a := Item{ID: "1", Type: TypeImage, Source: "/a.png", Duration: 5 * time.Second}
	b := a

	assert.True(t, a.Same(b))

	b.Duration = 6 * time.Second
	assert.False(t, a.Same(b))
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []string{}, IDs(nil))
	assert.Equal(t, []string{"a", "b"}, IDs([]Item{{ID: "a"}, {ID: "b"}}))
}
