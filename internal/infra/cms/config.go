package cms

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/domain/display"
	"github.com/osa030/19screen/internal/domain/widget"
)

// configResponse represents the response from the system config endpoint.
type configResponse struct {
	Config map[string]any `json:"config"`
}

// widgetsResponse represents the response from the widgets endpoint.
type widgetsResponse struct {
	Widgets []struct {
		ID        flexString     `json:"id"`
		Type      string         `json:"type"`
		Name      string         `json:"name"`
		Position  string         `json:"position"`
		Config    map[string]any `json:"config"`
		IsEnabled *bool          `json:"is_enabled"`
	} `json:"widgets"`
}

// FetchDisplayConfig retrieves the display settings as a partial update.
// Keys missing from the response stay nil in the patch.
func (c *Client) FetchDisplayConfig(ctx context.Context) (display.Patch, error) {
	var resp configResponse
	if err := c.getJSON(ctx, c.paths.Config, &resp); err != nil {
		return display.Patch{}, errors.Wrap(err, "failed to fetch display config")
	}

	patch, err := display.ParsePatch(resp.Config)
	if err != nil {
		// Partially decoded fields are still usable
		zlog.Warn().Msgf("cms: display config partially invalid: %v", err)
	}
	return patch, nil
}

// FetchWidgets retrieves the enabled overlay widgets.
// Widgets of unknown kinds are skipped.
func (c *Client) FetchWidgets(ctx context.Context) ([]widget.Definition, error) {
	var resp widgetsResponse
	if err := c.getJSON(ctx, c.paths.Widgets, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch widgets")
	}

	defs := make([]widget.Definition, 0, len(resp.Widgets))
	for _, w := range resp.Widgets {
		kind := widget.Kind(w.Type)
		switch kind {
		case widget.KindClock, widget.KindWeather, widget.KindText:
		default:
			zlog.Warn().Msgf("cms: skipping widget with unknown type: id=%s, type=%q", w.ID, w.Type)
			continue
		}

		enabled := true
		if w.IsEnabled != nil {
			enabled = *w.IsEnabled
		}
		cfg := w.Config
		if cfg == nil {
			cfg = map[string]any{}
		}

		defs = append(defs, widget.Definition{
			ID:       string(w.ID),
			Kind:     kind,
			Name:     w.Name,
			Position: widget.ParsePosition(w.Position),
			Config:   cfg,
			Enabled:  enabled,
		})
	}
	return defs, nil
}
