package cms

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Weather represents the weather proxy answer.
type Weather struct {
	Temp        string // Rounded temperature, "--" when unavailable
	Description string
	Icon        string
	City        string
}

// weatherCacheEntry represents a cached weather result.
type weatherCacheEntry struct {
	weather   Weather
	fetchedAt time.Time
}

// weatherResponse represents the response from the weather endpoint.
type weatherResponse struct {
	Temp        flexString `json:"temp"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	City        string     `json:"city"`
}

// FetchWeather retrieves the current weather for a city through the CMS proxy.
// Results are cached per city.
func (c *Client) FetchWeather(ctx context.Context, city string) (Weather, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Weather{}, errors.New("city is required")
	}

	cacheKey := strings.ToLower(city)
	c.cacheMu.RLock()
	if entry, ok := c.weatherCache[cacheKey]; ok && time.Since(entry.fetchedAt) < c.weatherTTL {
		c.cacheMu.RUnlock()
		return entry.weather, nil
	}
	c.cacheMu.RUnlock()

	path := c.paths.Weather
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	path += sep + url.Values{"city": {city}}.Encode()

	var resp weatherResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return Weather{}, errors.Wrap(err, "failed to fetch weather")
	}

	w := Weather{
		Temp:        string(resp.Temp),
		Description: resp.Description,
		Icon:        resp.Icon,
		City:        resp.City,
	}
	if w.Temp == "" {
		w.Temp = "--"
	}
	if w.City == "" {
		w.City = city
	}

	c.cacheMu.Lock()
	c.weatherCache[cacheKey] = &weatherCacheEntry{weather: w, fetchedAt: time.Now()}
	c.cacheMu.Unlock()

	return w, nil
}
