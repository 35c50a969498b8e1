package cms

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/domain/content"
	"github.com/osa030/19screen/internal/domain/playlist"
)

// currentResponse represents the response from the current content endpoint.
type currentResponse struct {
	Playlist *struct {
		ID   flexString `json:"id"`
		Name string     `json:"name"`
	} `json:"playlist"`
	Items []struct {
		ID       flexString `json:"id"`
		AssetID  flexString `json:"asset_id"`
		Type     string     `json:"type"`
		Name     string     `json:"name"`
		Path     string     `json:"path"`
		URL      string     `json:"url"`
		Duration flexString `json:"duration"`
		Position int        `json:"position"`
	} `json:"items"`
}

// FetchContent retrieves the active playlist.
// A successful response without items returns the (empty) playlist together
// with ErrEmptyContent.
func (c *Client) FetchContent(ctx context.Context) (playlist.Playlist, error) {
	var resp currentResponse
	if err := c.getJSON(ctx, c.paths.Content, &resp); err != nil {
		return playlist.Playlist{}, errors.Wrap(err, "failed to fetch content")
	}

	var pl playlist.Playlist
	if resp.Playlist != nil {
		pl.ID = string(resp.Playlist.ID)
		pl.Name = resp.Playlist.Name
	}

	items := make([]content.Item, 0, len(resp.Items))
	for _, raw := range resp.Items {
		typ, ok := content.ParseType(raw.Type)
		if !ok {
			zlog.Warn().Msgf("cms: dropping item with unknown type: id=%s, type=%q", raw.ID, raw.Type)
			continue
		}

		var source string
		switch {
		case typ == content.TypeWidget:
			// Drawn by the player itself; the asset file behind it is a placeholder
		case raw.URL != "":
			source = raw.URL
		case typ == content.TypeURL:
			source = raw.Path
		case raw.AssetID != "":
			source = fmt.Sprintf("/api/assets/%s/file", raw.AssetID)
		}
		if source == "" && typ != content.TypeWidget {
			zlog.Warn().Msgf("cms: dropping item without source: id=%s", raw.ID)
			continue
		}
		if source != "" && typ != content.TypeURL {
			source = c.resolve(source)
		}

		items = append(items, content.Item{
			ID:       string(raw.ID),
			AssetID:  string(raw.AssetID),
			Type:     typ,
			Name:     raw.Name,
			Source:   source,
			Duration: time.Duration(math.Round(raw.Duration.seconds()*1000)) * time.Millisecond,
			Position: raw.Position,
		})
	}
	pl.Items = content.WithDefaultDuration(items, c.defDuration)

	if pl.IsEmpty() {
		return pl, ErrEmptyContent
	}
	return pl, nil
}
