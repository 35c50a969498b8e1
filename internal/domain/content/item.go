// Package content provides the content Item domain entity.
package content

import "time"

// Type represents the kind of a content item.
type Type string

const (
	TypeImage  Type = "image"  // Still image shown for Duration
	TypeVideo  Type = "video"  // Video advanced by media end/error events
	TypeURL    Type = "url"    // Embedded page shown for Duration
	TypeWidget Type = "widget" // Full-screen info page shown for Duration
)

// ParseType converts a wire value to a Type.
// Returns false for unknown types.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeImage, TypeVideo, TypeURL, TypeWidget:
		return Type(s), true
	default:
		return "", false
	}
}

// Item represents one entry of the rotation.
// Items are immutable once fetched; the whole list is replaced on every successful fetch.
type Item struct {
	ID       string        // Playlist entry ID
	AssetID  string        // Underlying asset ID (empty for pure URLs)
	Type     Type          // Content type
	Name     string        // Human readable name
	Source   string        // URL the renderer loads (empty for widget items)
	Duration time.Duration // Display duration (ignored for videos)
	Position int           // Position inside the playlist
}

// IsVideo returns true if the item is advanced by media events instead of a timer.
func (i Item) IsVideo() bool {
	return i.Type == TypeVideo
}

// Same reports whether two items would render identically.
func (i Item) Same(o Item) bool {
	return i == o
}

// WithDefaultDuration returns a copy of items where non-positive durations are
// replaced by def.
func WithDefaultDuration(items []Item, def time.Duration) []Item {
	result := make([]Item, len(items))
	for idx, it := range items {
		if it.Duration <= 0 {
			it.Duration = def
		}
		result[idx] = it
	}
	return result
}

// IDs returns the IDs of the given items in order.
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
