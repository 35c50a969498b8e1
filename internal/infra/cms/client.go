// Package cms provides a client for the content management server consumed by the player.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrFetch marks transport, HTTP status and decoding failures.
	ErrFetch = errors.New("cms fetch failed")
	// ErrEmptyContent is returned when the CMS answered with no items.
	ErrEmptyContent = errors.New("no content configured")
)

// Paths holds the endpoint paths relative to the base URL.
type Paths struct {
	Content string
	Config  string
	Widgets string
	Signal  string
	Weather string
	Status  string
}

// DefaultPaths returns the endpoints exposed by the stock CMS.
func DefaultPaths() Paths {
	return Paths{
		Content: "/api/player/current",
		Config:  "/api/system/config",
		Widgets: "/api/widgets?enabled=true",
		Signal:  "/api/system/config",
		Weather: "/api/widgets/weather",
		Status:  "/api/player/status",
	}
}

// Config represents CMS client configuration.
type Config struct {
	BaseURL             string
	Token               string
	PlayerID            string
	Timeout             time.Duration
	Paths               Paths
	DefaultItemDuration time.Duration
	WeatherTTL          time.Duration
}

// Client is a CMS API client.
type Client struct {
	baseURL     string
	token       string
	playerID    string
	paths       Paths
	defDuration time.Duration
	httpClient  *http.Client

	// Cache for weather lookups, keyed by city
	weatherTTL   time.Duration
	weatherCache map[string]*weatherCacheEntry
	cacheMu      sync.RWMutex
}

// New creates a new CMS client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("cms base URL is required")
	}

	paths := cfg.Paths
	def := DefaultPaths()
	if paths.Content == "" {
		paths.Content = def.Content
	}
	if paths.Config == "" {
		paths.Config = def.Config
	}
	if paths.Widgets == "" {
		paths.Widgets = def.Widgets
	}
	if paths.Signal == "" {
		paths.Signal = def.Signal
	}
	if paths.Weather == "" {
		paths.Weather = def.Weather
	}
	if paths.Status == "" {
		paths.Status = def.Status
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	defDuration := cfg.DefaultItemDuration
	if defDuration <= 0 {
		defDuration = 10 * time.Second
	}
	weatherTTL := cfg.WeatherTTL
	if weatherTTL <= 0 {
		weatherTTL = 5 * time.Minute
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		playerID:     cfg.PlayerID,
		paths:        paths,
		defDuration:  defDuration,
		httpClient:   &http.Client{Timeout: timeout},
		weatherTTL:   weatherTTL,
		weatherCache: make(map[string]*weatherCacheEntry),
	}, nil
}

// BaseURL returns the CMS root URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// resolve turns a CMS-relative path into an absolute URL.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// getJSON performs a GET and decodes the JSON body into out.
// All failures are marked with ErrFetch.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to create request"), ErrFetch)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// postJSON performs a POST with a JSON body.
func (c *Client) postJSON(ctx context.Context, path string, in any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), bytes.NewReader(body))
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to create request"), ErrFetch)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.playerID != "" {
		req.Header.Set("X-Player-ID", c.playerID)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to send request"), ErrFetch)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to read response body"), ErrFetch)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Mark(errors.Newf("unexpected status %d from %s", resp.StatusCode, req.URL.Path), ErrFetch)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Mark(errors.Wrap(err, "failed to parse response"), ErrFetch)
	}
	return nil
}
