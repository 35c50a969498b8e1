package widget

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

func init() {
	Register("clock", func(Deps) Renderer { return NewClockWidget() })
}

// ClockConfig represents the configuration for ClockWidget.
type ClockConfig struct {
	ShowDate    *bool  `mapstructure:"showDate" default:"true"`
	ShowSeconds *bool  `mapstructure:"showSeconds" default:"true"`
	Timezone    string `mapstructure:"timezone"`
	DateLayout  string `mapstructure:"dateLayout" default:"Monday 2 January 2006"`
}

// ClockWidget shows the local time and date.
type ClockWidget struct {
	config   ClockConfig
	location *time.Location
}

// NewClockWidget creates a new clock widget with default settings.
func NewClockWidget() *ClockWidget {
	w := &ClockWidget{}
	_ = w.ValidateConfig(nil)
	return w
}

func (w *ClockWidget) Name() string {
	return "clock"
}

func (w *ClockWidget) Description() string {
	return "Shows the current time and date"
}

func (w *ClockWidget) Interval() time.Duration {
	return time.Second
}

func (w *ClockWidget) ValidateConfig(settings map[string]any) error {
	var config ClockConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}

	loc := time.Local
	if config.Timezone != "" {
		l, err := time.LoadLocation(config.Timezone)
		if err != nil {
			return errors.Wrapf(err, "unknown timezone %q", config.Timezone)
		}
		loc = l
	}

	w.config = config
	w.location = loc
	return nil
}

func (w *ClockWidget) Render(ctx context.Context, now time.Time) (map[string]any, error) {
	now = now.In(w.location)

	layout := "15:04"
	if *w.config.ShowSeconds {
		layout = "15:04:05"
	}
	data := map[string]any{
		"time": now.Format(layout),
	}
	if *w.config.ShowDate {
		data["date"] = now.Format(w.config.DateLayout)
	}
	return data, nil
}
