// Package playlist provides the Playlist domain entity returned by the CMS.
package playlist

import (
	"time"

	"github.com/osa030/19screen/internal/domain/content"
)

// Playlist represents the active playlist as resolved by the CMS schedule.
type Playlist struct {
	ID    string         // CMS playlist ID (empty when the CMS returned no playlist)
	Name  string         // Playlist name
	Items []content.Item // Items in display order
}

// ItemIDs returns all item IDs in the playlist.
func (p *Playlist) ItemIDs() []string {
	return content.IDs(p.Items)
}

// TotalDuration returns the sum of the timed items.
// Videos are excluded because their length is only known while playing.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, it := range p.Items {
		if it.IsVideo() {
			continue
		}
		total += it.Duration
	}
	return total
}

// VideoCount returns the number of event-driven items.
func (p *Playlist) VideoCount() int {
	n := 0
	for _, it := range p.Items {
		if it.IsVideo() {
			n++
		}
	}
	return n
}

// IsEmpty returns true if the playlist has nothing to display.
func (p *Playlist) IsEmpty() bool {
	return len(p.Items) == 0
}
