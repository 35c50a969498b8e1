// Package widget provides the overlay widget kinds and the overlay that runs them.
package widget

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/19screen/internal/infra/cms"
)

// WeatherSource looks up the current weather of a city.
type WeatherSource interface {
	FetchWeather(ctx context.Context, city string) (cms.Weather, error)
}

// Deps holds the collaborators a widget kind may need.
type Deps struct {
	Weather WeatherSource
}

// Renderer is the interface for widget kinds.
type Renderer interface {
	// Name returns the widget kind (as sent by the CMS).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ValidateConfig decodes and validates the widget settings.
	ValidateConfig(settings map[string]any) error
	// Interval returns the refresh cadence. Zero renders once.
	Interval() time.Duration
	// Render produces the data shown by the widget at now.
	Render(ctx context.Context, now time.Time) (map[string]any, error)
}

// registry holds registered widget factories.
var registry = make(map[string]func(Deps) Renderer)

// Register registers a widget factory.
func Register(name string, factory func(Deps) Renderer) {
	registry[name] = factory
}

// GetRegistered returns all registered widget factories.
func GetRegistered() map[string]func(Deps) Renderer {
	return registry
}

// decodeSettings fills out from settings, then applies defaults and validation.
func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

// mergeSettings returns base overlaid with override.
func mergeSettings(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
