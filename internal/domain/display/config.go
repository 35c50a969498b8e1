// Package display provides the display configuration entity and its partial merge rules.
package display

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// Effect represents a transition effect between two items.
type Effect string

const (
	EffectNone  Effect = "none"
	EffectFade  Effect = "fade"
	EffectSlide Effect = "slide"
	EffectZoom  Effect = "zoom"
)

// Valid returns true if the effect is known.
func (e Effect) Valid() bool {
	switch e {
	case EffectNone, EffectFade, EffectSlide, EffectZoom:
		return true
	default:
		return false
	}
}

// Orientation values.
const (
	OrientationLandscape = "landscape"
	OrientationPortrait  = "portrait"
)

// Config represents the display configuration.
type Config struct {
	Rotation           int           `json:"rotation"`            // 0, 90, 180 or 270 degrees
	Effect             Effect        `json:"transition_effect"`   // Transition effect
	TransitionDuration time.Duration `json:"-"`                   // Transition length
	TransitionMs       int64         `json:"transition_duration"` // Transition length for the kiosk page
	Orientation        string        `json:"orientation"`         // landscape or portrait
}

// Default returns the configuration used before the first successful fetch.
func Default() Config {
	return Config{
		Rotation:           0,
		Effect:             EffectFade,
		TransitionDuration: 500 * time.Millisecond,
		TransitionMs:       500,
		Orientation:        OrientationLandscape,
	}
}

// IsRotated returns true when width and height are swapped on screen.
func (c Config) IsRotated() bool {
	return c.Rotation == 90 || c.Rotation == 270
}

// Patch is a partial display configuration. Nil fields are absent from the source.
type Patch struct {
	Rotation     *int    `mapstructure:"display_rotation"`
	Effect       *string `mapstructure:"transition_effect"`
	TransitionMs *int    `mapstructure:"transition_duration"`
	Orientation  *string `mapstructure:"screen_orientation"`
}

// ParsePatch decodes the CMS key/value configuration into a Patch.
// Values may be strings ("90") or numbers; unrelated keys are ignored.
// On a decode error the fields that could be decoded are still returned.
func ParsePatch(raw map[string]any) (Patch, error) {
	var p Patch
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return p, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return p, errors.Wrap(err, "failed to decode display config")
	}
	return p, nil
}

// Merge returns c with the present and valid fields of p applied.
// Invalid values keep the previous setting.
func (c Config) Merge(p Patch) Config {
	if p.Rotation != nil {
		switch *p.Rotation {
		case 0, 90, 180, 270:
			c.Rotation = *p.Rotation
		default:
			zlog.Warn().Msgf("display: ignoring invalid rotation: %d", *p.Rotation)
		}
	}
	if p.Effect != nil {
		if e := Effect(*p.Effect); e.Valid() {
			c.Effect = e
		} else {
			zlog.Warn().Msgf("display: ignoring unknown transition effect: %q", *p.Effect)
		}
	}
	if p.TransitionMs != nil {
		if *p.TransitionMs >= 0 {
			c.TransitionMs = int64(*p.TransitionMs)
			c.TransitionDuration = time.Duration(*p.TransitionMs) * time.Millisecond
		} else {
			zlog.Warn().Msgf("display: ignoring negative transition duration: %d", *p.TransitionMs)
		}
	}
	if p.Orientation != nil {
		switch *p.Orientation {
		case OrientationLandscape, OrientationPortrait:
			c.Orientation = *p.Orientation
		default:
			zlog.Warn().Msgf("display: ignoring unknown orientation: %q", *p.Orientation)
		}
	}
	return c
}
