// Package widget provides the overlay Widget definition entity.
package widget

import (
	"encoding/json"
	"fmt"
)

// Kind represents the widget type.
type Kind string

const (
	KindClock   Kind = "clock"
	KindWeather Kind = "weather"
	KindText    Kind = "text"
)

// Position represents the screen corner/edge where a widget is drawn.
type Position string

const (
	PositionTopLeft      Position = "top-left"
	PositionTopCenter    Position = "top-center"
	PositionTopRight     Position = "top-right"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomCenter Position = "bottom-center"
	PositionBottomRight  Position = "bottom-right"

	// PositionCenter is only used by the full-screen info page.
	PositionCenter Position = "center"
)

// ParsePosition converts a wire value to a Position.
// Unknown values fall back to bottom-right.
func ParsePosition(s string) Position {
	switch Position(s) {
	case PositionTopLeft, PositionTopCenter, PositionTopRight,
		PositionBottomLeft, PositionBottomCenter, PositionBottomRight:
		return Position(s)
	default:
		return PositionBottomRight
	}
}

// Definition is a widget as configured in the CMS.
type Definition struct {
	ID       string
	Kind     Kind
	Name     string
	Position Position
	Config   map[string]any
	Enabled  bool
}

// Fingerprint returns a stable string identifying the rendered configuration.
// Two definitions with the same fingerprint render identically.
func (d Definition) Fingerprint() string {
	cfg, err := json.Marshal(d.Config)
	if err != nil {
		cfg = []byte(fmt.Sprintf("%v", d.Config))
	}
	return fmt.Sprintf("%s|%s|%s|%t|%s", d.Kind, d.Position, d.Name, d.Enabled, cfg)
}
