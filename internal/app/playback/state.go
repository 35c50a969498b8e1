// Package playback provides the playback engine that owns what is on screen.
package playback

import "github.com/osa030/19screen/internal/domain/content"

// State represents the playback state.
type State int

const (
	StateEmpty         State = iota // No items to display
	StateDisplaying                 // Showing Items[CurrentIndex]
	StateTransitioning              // Hand-off from CurrentIndex to Next in progress
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDisplaying:
		return "displaying"
	case StateTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent read-only copy of the playback state.
// Items is shared with the engine and must not be modified.
type Snapshot struct {
	Items        []content.Item
	CurrentIndex int
	State        State
	Next         int    // Destination index while transitioning
	ShowSeq      uint64 // Incremented every time an item is (re)shown
}

// Transitioning returns true while a hand-off is in progress.
func (s Snapshot) Transitioning() bool {
	return s.State == StateTransitioning
}

// Current returns the item at CurrentIndex.
func (s Snapshot) Current() (content.Item, bool) {
	if s.State == StateEmpty || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Items) {
		return content.Item{}, false
	}
	return s.Items[s.CurrentIndex], true
}

// Pending returns the destination item while transitioning.
func (s Snapshot) Pending() (content.Item, bool) {
	if s.State != StateTransitioning || s.Next < 0 || s.Next >= len(s.Items) {
		return content.Item{}, false
	}
	return s.Items[s.Next], true
}
