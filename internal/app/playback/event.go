package playback

import (
	"github.com/osa030/19screen/internal/app/transition"
	"github.com/osa030/19screen/internal/domain/content"
)

// EventType represents a playback event type.
type EventType int

const (
	EventItemShown         EventType = iota // An item became the displayed item
	EventTransitionStarted                  // A hand-off to another item started
	EventEmpty                              // The content list became empty
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventItemShown:
		return "item_shown"
	case EventTransitionStarted:
		return "transition_started"
	case EventEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Cause tells what made the engine change the displayed item.
type Cause string

const (
	CauseReload   Cause = "reload"   // New content list
	CauseTimer    Cause = "timer"    // Auto-advance timer
	CauseMedia    Cause = "media"    // Video end or error
	CauseNavigate Cause = "navigate" // Manual navigation
)

// Event represents a playback event.
type Event struct {
	Type       EventType
	Cause      Cause
	Snapshot   Snapshot
	Item       content.Item    // Shown item, or outgoing item of a transition
	Next       content.Item    // Incoming item of a transition
	Transition transition.Plan // Plan of a started transition
}
