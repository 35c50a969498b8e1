// Package state provides player session state management.
package state

import "time"

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseStarting Phase = iota // Waiting for the first content fetch
	PhaseRunning               // Pollers and engine are running
	PhaseStopping              // Shutdown in progress
	PhaseStopped               // All goroutines have returned
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Indicator is the status line shown on the kiosk page.
type Indicator struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Info is a read-only copy of the session state.
type Info struct {
	PlayerID     string    `json:"player_id"`
	PlayerName   string    `json:"player_name"`
	Phase        string    `json:"phase"`
	Indicator    Indicator `json:"indicator"`
	PlaylistID   string    `json:"playlist_id,omitempty"`
	PlaylistName string    `json:"playlist_name,omitempty"`
	StartedAt    time.Time `json:"started_at"`
}
