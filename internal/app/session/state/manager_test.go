package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/19screen/internal/domain/display"
)

func TestManager(t *testing.T) {
	m := New("p-1", "lobby")

	assert.Equal(t, PhaseStarting, m.GetPhase())
	assert.Equal(t, "loading", m.GetIndicator().Status)
	assert.Equal(t, display.Default(), m.GetDisplay())

	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	assert.True(t, m.SetIndicator("ok", "", at))
	assert.False(t, m.SetIndicator("ok", "", at.Add(time.Minute)), "same status is not a change")
	assert.Equal(t, at.Add(time.Minute), m.GetIndicator().UpdatedAt)
	assert.True(t, m.SetIndicator("error", "Unable to load content", at))

	m.SetPhase(PhaseRunning)
	m.SetStartedAt(at)
	m.SetPlaylistInfo("7", "Morning")

	info := m.BuildInfo()
	assert.Equal(t, "p-1", info.PlayerID)
	assert.Equal(t, "lobby", info.PlayerName)
	assert.Equal(t, "running", info.Phase)
	assert.Equal(t, "error", info.Indicator.Status)
	assert.Equal(t, "Morning", info.PlaylistName)
	assert.Equal(t, at, info.StartedAt)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "starting", PhaseStarting.String())
	assert.Equal(t, "stopping", PhaseStopping.String())
	assert.Equal(t, "stopped", PhaseStopped.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
