package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19screen/internal/domain/content"
	"github.com/osa030/19screen/internal/domain/display"
	"github.com/osa030/19screen/internal/domain/signal"
	"github.com/osa030/19screen/internal/domain/widget"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL:  server.URL + "/",
		Token:    "test-token",
		PlayerID: "player-1",
	})
	require.NoError(t, err)
	return client
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestFetchContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/player/current", r.URL.Path)
		assert.Equal(t, "player-1", r.Header.Get("X-Player-ID"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		response := `{
			"playlist": {"id": 3, "name": "Lobby"},
			"items": [
				{"id": 10, "asset_id": 7, "type": "image", "name": "Poster", "path": "poster.png", "duration": 5, "position": 0, "url": "/api/assets/7/file"},
				{"id": 11, "asset_id": 8, "type": "video", "name": "Clip", "path": "clip.mp4", "duration": null, "position": 1},
				{"id": 12, "asset_id": 9, "type": "url", "name": "Site", "path": "https://example.com", "duration": 20, "position": 2, "url": "https://example.com"},
				{"id": 13, "asset_id": 10, "type": "hologram", "name": "Bogus", "duration": 5, "position": 3},
				{"id": 14, "asset_id": 11, "type": "image", "name": "NoDuration", "position": 4, "url": "/api/assets/11/file"}
			]
		}`
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, response)
	})

	pl, err := client.FetchContent(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "3", pl.ID)
	assert.Equal(t, "Lobby", pl.Name)
	require.Len(t, pl.Items, 4)

	assert.Equal(t, content.Item{
		ID:       "10",
		AssetID:  "7",
		Type:     content.TypeImage,
		Name:     "Poster",
		Source:   client.BaseURL() + "/api/assets/7/file",
		Duration: 5 * time.Second,
		Position: 0,
	}, pl.Items[0])

	assert.Equal(t, content.TypeVideo, pl.Items[1].Type)
	assert.Equal(t, client.BaseURL()+"/api/assets/8/file", pl.Items[1].Source, "source falls back to asset file")

	assert.Equal(t, "https://example.com", pl.Items[2].Source)
	assert.Equal(t, 20*time.Second, pl.Items[2].Duration)

	assert.Equal(t, "14", pl.Items[3].ID, "unknown types are dropped")
	assert.Equal(t, 10*time.Second, pl.Items[3].Duration, "missing duration falls back to default")
}

func TestFetchContent_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message": "No content available", "items": []}`)
	})

	pl, err := client.FetchContent(context.Background())
	assert.True(t, errors.Is(err, ErrEmptyContent))
	assert.False(t, errors.Is(err, ErrFetch))
	assert.True(t, pl.IsEmpty())
}

func TestFetchContent_WidgetItemHasNoSource(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [
			{"id": 20, "asset_id": 5, "type": "widget", "name": "Info", "duration": 15, "position": 0, "url": "/api/assets/5/file"},
			{"id": 21, "type": "image", "name": "Orphan", "duration": 5, "position": 1}
		]}`)
	})

	pl, err := client.FetchContent(context.Background())
	require.NoError(t, err)
	require.Len(t, pl.Items, 1, "items without a source are dropped unless drawn by the player")

	assert.Equal(t, content.TypeWidget, pl.Items[0].Type)
	assert.Empty(t, pl.Items[0].Source)
	assert.Equal(t, 15*time.Second, pl.Items[0].Duration)
}

func TestFetchContent_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"items": [`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.FetchContent(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFetch))
		})
	}
}

func TestFetchContent_Unreachable(t *testing.T) {
	client, err := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)

	_, err = client.FetchContent(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))
}

func TestFetchDisplayConfig(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/system/config", r.URL.Path)
		fmt.Fprint(w, `{"config": {"display_rotation": "90", "transition_effect": "slide", "player_command": "next"}}`)
	})

	patch, err := client.FetchDisplayConfig(context.Background())
	require.NoError(t, err)

	cfg := display.Default().Merge(patch)
	assert.Equal(t, 90, cfg.Rotation)
	assert.Equal(t, display.EffectSlide, cfg.Effect)
	assert.Equal(t, 500*time.Millisecond, cfg.TransitionDuration, "absent keys keep previous value")
	assert.Nil(t, patch.Orientation)
}

func TestFetchWidgets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/widgets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("enabled"))
		fmt.Fprint(w, `{"widgets": [
			{"id": 1, "type": "clock", "name": "Clock", "position": "top-right", "config": {"showSeconds": false}, "is_enabled": true},
			{"id": 2, "type": "weather", "name": "Weather", "position": "nowhere", "config": null},
			{"id": 3, "type": "radar", "name": "Radar"}
		]}`)
	})

	defs, err := client.FetchWidgets(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "1", defs[0].ID)
	assert.Equal(t, widget.KindClock, defs[0].Kind)
	assert.Equal(t, widget.PositionTopRight, defs[0].Position)
	assert.Equal(t, false, defs[0].Config["showSeconds"])

	assert.Equal(t, widget.PositionBottomRight, defs[1].Position)
	assert.True(t, defs[1].Enabled)
	assert.NotNil(t, defs[1].Config)
}

func TestFetchSignal(t *testing.T) {
	tests := []struct {
		name string
		body string
		want signal.Remote
	}{
		{
			name: "dedicated shape",
			body: `{"refreshToken": "r1", "command": "next", "commandIssuedAt": 1700000000000}`,
			want: signal.Remote{
				RefreshToken: "r1",
				Command:      signal.Command{Kind: signal.CommandNext, IssuedAt: "1700000000000"},
			},
		},
		{
			name: "system config shape",
			body: `{"config": {"player_refresh_token": "1700000000001", "player_command": "prev", "player_command_time": "1700000000002"}}`,
			want: signal.Remote{
				RefreshToken: "1700000000001",
				Command:      signal.Command{Kind: signal.CommandPrev, IssuedAt: "1700000000002"},
			},
		},
		{
			name: "nothing set",
			body: `{"config": {"display_rotation": "0"}}`,
			want: signal.Remote{Command: signal.Command{Kind: signal.CommandNone}},
		},
		{
			name: "unknown command",
			body: `{"command": "dance", "commandIssuedAt": "t1"}`,
			want: signal.Remote{Command: signal.Command{Kind: signal.CommandNone, IssuedAt: "t1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})
			got, err := client.FetchSignal(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchWeather_Cached(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/widgets/weather", r.URL.Path)
		assert.Equal(t, "Lyon", r.URL.Query().Get("city"))
		fmt.Fprint(w, `{"temp": 18, "description": "Cloudy", "icon": "c", "city": "Lyon"}`)
	})

	ctx := context.Background()
	weather, err := client.FetchWeather(ctx, "Lyon")
	require.NoError(t, err)
	assert.Equal(t, Weather{Temp: "18", Description: "Cloudy", Icon: "c", City: "Lyon"}, weather)

	cached, err := client.FetchWeather(ctx, "lyon ")
	require.NoError(t, err)
	assert.Equal(t, weather, cached)
	assert.Equal(t, int32(1), calls.Load())

	_, err = client.FetchWeather(ctx, "")
	assert.Error(t, err)
}

func TestFetchWeather_Unavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"temp": "--", "description": "Unavailable", "icon": "?", "city": "Paris"}`)
	})

	weather, err := client.FetchWeather(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, "--", weather.Temp)
}

func TestPostStatus(t *testing.T) {
	received := make(chan Status, 1)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/player/status", r.URL.Path)
		var st Status
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&st))
		received <- st
		fmt.Fprint(w, `{"message": "Status received"}`)
	})

	err := client.PostStatus(context.Background(), Status{State: "displaying", Index: 2, ItemCount: 5, Status: "ok"})
	require.NoError(t, err)

	st := <-received
	assert.Equal(t, "player-1", st.PlayerID)
	assert.Equal(t, "displaying", st.State)
	assert.Equal(t, 2, st.Index)
}
