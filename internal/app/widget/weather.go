package widget

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

func init() {
	Register("weather", func(d Deps) Renderer { return NewWeatherWidget(d.Weather) })
}

// WeatherConfig represents the configuration for WeatherWidget.
type WeatherConfig struct {
	City string `mapstructure:"city" default:"Paris" validate:"required"`
}

// WeatherWidget shows the current weather fetched through the CMS proxy.
type WeatherWidget struct {
	source WeatherSource
	config WeatherConfig
}

// NewWeatherWidget creates a new weather widget.
func NewWeatherWidget(source WeatherSource) *WeatherWidget {
	w := &WeatherWidget{source: source}
	_ = w.ValidateConfig(nil)
	return w
}

func (w *WeatherWidget) Name() string {
	return "weather"
}

func (w *WeatherWidget) Description() string {
	return "Shows the current weather of a city"
}

func (w *WeatherWidget) Interval() time.Duration {
	return 10 * time.Minute
}

func (w *WeatherWidget) ValidateConfig(settings map[string]any) error {
	var config WeatherConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	w.config = config
	return nil
}

func (w *WeatherWidget) Render(ctx context.Context, now time.Time) (map[string]any, error) {
	if w.source == nil {
		return nil, errors.New("weather source not configured")
	}

	weather, err := w.source.FetchWeather(ctx, w.config.City)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to render weather for %s", w.config.City)
	}
	return map[string]any{
		"temp":        weather.Temp,
		"description": weather.Description,
		"icon":        weather.Icon,
		"city":        weather.City,
	}, nil
}
