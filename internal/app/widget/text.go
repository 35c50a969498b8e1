package widget

import (
	"context"
	"time"
)

func init() {
	Register("text", func(Deps) Renderer { return NewTextWidget() })
}

// TextConfig represents the configuration for TextWidget.
type TextConfig struct {
	Text      string `mapstructure:"text"`
	Scrolling bool   `mapstructure:"scrolling"`
	SpeedSec  int    `mapstructure:"speedSec" default:"20" validate:"gte=1,lte=600"`
}

// TextWidget shows a static or scrolling message.
type TextWidget struct {
	config TextConfig
}

// NewTextWidget creates a new text widget.
func NewTextWidget() *TextWidget {
	w := &TextWidget{}
	_ = w.ValidateConfig(nil)
	return w
}

func (w *TextWidget) Name() string {
	return "text"
}

func (w *TextWidget) Description() string {
	return "Shows a static or scrolling message"
}

func (w *TextWidget) Interval() time.Duration {
	return 0
}

func (w *TextWidget) ValidateConfig(settings map[string]any) error {
	var config TextConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	w.config = config
	return nil
}

func (w *TextWidget) Render(ctx context.Context, now time.Time) (map[string]any, error) {
	return map[string]any{
		"text":      w.config.Text,
		"scrolling": w.config.Scrolling,
		"speed_sec": w.config.SpeedSec,
	}, nil
}
