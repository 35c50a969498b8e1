package kiosk

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/19screen/internal/domain/signal"
	"github.com/osa030/19screen/internal/infra/clock"
)

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func newTestShell() (*Shell, *clock.Fake, *recorder) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	rec := &recorder{}
	s := New(Config{Clock: clk, IdleTimeout: 3 * time.Second, OnChange: rec.record})
	return s, clk, rec
}

func TestMapKey(t *testing.T) {
	tests := []struct {
		key  string
		want Action
	}{
		{"ArrowRight", ActionNext},
		{" ", ActionNext},
		{"ArrowLeft", ActionPrev},
		{"f", ActionToggleFullscreen},
		{"F", ActionToggleFullscreen},
		{"Enter", ActionNone},
		{"", ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, MapKey(tt.key))
		})
	}
}

func TestAction_Command(t *testing.T) {
	assert.Equal(t, signal.CommandNext, ActionNext.Command())
	assert.Equal(t, signal.CommandPrev, ActionPrev.Command())
	assert.Equal(t, signal.CommandNone, ActionToggleFullscreen.Command())
	assert.Equal(t, "fullscreen", ActionToggleFullscreen.String())
}

func TestShell_IdleHidesCursorAndControls(t *testing.T) {
	s, clk, rec := newTestShell()
	defer s.Close()

	assert.Equal(t, State{}, s.State())

	s.PointerMoved()
	assert.Equal(t, State{CursorVisible: true, ControlsVisible: true}, s.State())
	assert.Equal(t, 1, rec.count())

	clk.Advance(2 * time.Second)
	s.PointerMoved()
	assert.Equal(t, 1, rec.count(), "already visible, no change to report")

	// The first timers were re-armed and must not fire
	clk.Advance(2 * time.Second)
	assert.True(t, s.State().CursorVisible)
	assert.True(t, s.State().ControlsVisible)

	clk.Advance(time.Second)
	assert.False(t, s.State().CursorVisible)
	assert.False(t, s.State().ControlsVisible)
	assert.Equal(t, 3, rec.count(), "cursor and controls hide independently")
}

func TestShell_ToggleFullscreen(t *testing.T) {
	s, _, rec := newTestShell()

	assert.True(t, s.ToggleFullscreen())
	assert.True(t, s.State().Fullscreen)
	assert.Equal(t, ActionToggleFullscreen, s.Key("F"))
	assert.False(t, s.State().Fullscreen)
	assert.Equal(t, 2, rec.count())

	assert.Equal(t, ActionNext, s.Key("ArrowRight"))
	assert.Equal(t, 2, rec.count(), "navigation keys do not change shell state")
}

func TestShell_Close(t *testing.T) {
	s, clk, rec := newTestShell()

	s.PointerMoved()
	s.Close()
	assert.Zero(t, clk.Pending())

	clk.Advance(10 * time.Second)
	assert.True(t, s.State().CursorVisible)
	assert.Equal(t, 1, rec.count())
}
