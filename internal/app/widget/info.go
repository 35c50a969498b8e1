package widget

import (
	"github.com/osa030/19screen/internal/domain/widget"
)

// Info page widget IDs.
const (
	InfoClockID   = "info-clock"
	InfoWeatherID = "info-weather"
)

// InfoPage returns the widgets composing the full-screen info page shown
// for widget content items: the time with seconds, the date and the weather.
// The weather city comes from the local weather settings.
func InfoPage() []widget.Definition {
	return []widget.Definition{
		{
			ID:       InfoClockID,
			Kind:     widget.KindClock,
			Name:     "Info clock",
			Position: widget.PositionCenter,
			Config:   map[string]any{"showDate": true, "showSeconds": true},
			Enabled:  true,
		},
		{
			ID:       InfoWeatherID,
			Kind:     widget.KindWeather,
			Name:     "Info weather",
			Position: widget.PositionCenter,
			Enabled:  true,
		},
	}
}
