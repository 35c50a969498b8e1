package state

import (
	"sync"
	"time"

	"github.com/osa030/19screen/internal/domain/display"
)

// Manager manages session state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Player identity
	playerID   string
	playerName string

	// Session lifecycle
	phase     Phase
	startedAt time.Time

	// Content
	indicator    Indicator
	playlistID   string
	playlistName string
	display      display.Config
}

// New creates a new state manager.
func New(playerID, playerName string) *Manager {
	return &Manager{
		playerID:   playerID,
		playerName: playerName,
		phase:      PhaseStarting,
		indicator:  Indicator{Status: "loading"},
		display:    display.Default(),
	}
}

// GetPhase returns the current session phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// SetPhase sets the session phase.
func (m *Manager) SetPhase(p Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = p
}

// GetPlayerID returns the player ID.
func (m *Manager) GetPlayerID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playerID
}

// GetPlayerName returns the player name.
func (m *Manager) GetPlayerName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playerName
}

// SetStartedAt sets the start time.
func (m *Manager) SetStartedAt(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startedAt = t
}

// GetIndicator returns the status indicator.
func (m *Manager) GetIndicator() Indicator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indicator
}

// SetIndicator sets the status indicator.
// Returns true if the status or message changed.
func (m *Manager) SetIndicator(status, message string, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := m.indicator.Status != status || m.indicator.Message != message
	m.indicator = Indicator{Status: status, Message: message, UpdatedAt: at}
	return changed
}

// SetPlaylistInfo sets playlist information.
func (m *Manager) SetPlaylistInfo(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playlistID = id
	m.playlistName = name
}

// GetDisplay returns the current display configuration.
func (m *Manager) GetDisplay() display.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.display
}

// SetDisplay sets the display configuration.
func (m *Manager) SetDisplay(cfg display.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.display = cfg
}

// BuildInfo creates a complete Info with all fields.
func (m *Manager) BuildInfo() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Info{
		PlayerID:     m.playerID,
		PlayerName:   m.playerName,
		Phase:        m.phase.String(),
		Indicator:    m.indicator,
		PlaylistID:   m.playlistID,
		PlaylistName: m.playlistName,
		StartedAt:    m.startedAt,
	}
}
