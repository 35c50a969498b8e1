// Package poller provides the loops that keep the player in sync with the CMS.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/domain/content"
	"github.com/osa030/19screen/internal/domain/display"
	"github.com/osa030/19screen/internal/domain/playlist"
	"github.com/osa030/19screen/internal/domain/widget"
	"github.com/osa030/19screen/internal/infra/cms"
	"github.com/osa030/19screen/internal/infra/metrics"
)

// ContentSource fetches the authoritative state from the CMS.
type ContentSource interface {
	FetchContent(ctx context.Context) (playlist.Playlist, error)
	FetchDisplayConfig(ctx context.Context) (display.Patch, error)
	FetchWidgets(ctx context.Context) ([]widget.Definition, error)
}

// Player receives content lists and transition settings.
type Player interface {
	Reload(items []content.Item)
	SetTransition(cfg display.Config)
}

// WidgetUpdater receives the enabled widget definitions.
type WidgetUpdater interface {
	Update(defs []widget.Definition)
}

// Status is the outcome of the last content fetch.
type Status string

const (
	StatusLoading Status = "loading" // No fetch completed yet
	StatusOK      Status = "ok"      // Content is playing
	StatusEmpty   Status = "empty"   // CMS has no content
	StatusError   Status = "error"   // Last fetch failed
)

// Result describes one content fetch.
type Result struct {
	Status   Status
	Playlist playlist.Playlist
	Err      error
	At       time.Time
}

// Observer is notified of fetch outcomes and display changes.
type Observer interface {
	ContentFetched(r Result)
	DisplayChanged(cfg display.Config)
}

// ContentConfig holds content poller configuration.
type ContentConfig struct {
	Source   ContentSource
	Player   Player
	Widgets  WidgetUpdater // Optional
	Observer Observer      // Optional
	Metrics  *metrics.Metrics
	Interval time.Duration
	Display  display.Config // Starting display configuration
}

// ContentPoller fetches content, display configuration and widgets on an
// interval and on demand.
type ContentPoller struct {
	source   ContentSource
	player   Player
	widgets  WidgetUpdater
	observer Observer
	metrics  *metrics.Metrics
	interval time.Duration

	refreshCh chan struct{}

	mu      sync.RWMutex
	display display.Config
	last    Result
}

// NewContentPoller creates a new content poller.
func NewContentPoller(cfg ContentConfig) *ContentPoller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	disp := cfg.Display
	if disp.Effect == "" {
		disp = display.Default()
	}
	return &ContentPoller{
		source:    cfg.Source,
		player:    cfg.Player,
		widgets:   cfg.Widgets,
		observer:  cfg.Observer,
		metrics:   cfg.Metrics,
		interval:  interval,
		refreshCh: make(chan struct{}, 1),
		display:   disp,
		last:      Result{Status: StatusLoading},
	}
}

// Refresh requests an immediate full re-fetch. Requests made while one is
// already pending are coalesced.
func (p *ContentPoller) Refresh() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

// Display returns the current merged display configuration.
func (p *ContentPoller) Display() display.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.display
}

// Last returns the outcome of the last content fetch.
func (p *ContentPoller) Last() Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Run polls once immediately and then on every interval or refresh request.
func (p *ContentPoller) Run(ctx context.Context) {
	zlog.Info().Msgf("content: poller started: interval=%v", p.interval)

	p.PollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zlog.Debug().Msg("content: poller stopped")
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		case <-p.refreshCh:
			zlog.Info().Msg("content: refresh requested")
			p.PollOnce(ctx)
			ticker.Reset(p.interval)
		}
	}
}

// PollOnce runs one fetch cycle. The three fetches fail independently.
func (p *ContentPoller) PollOnce(ctx context.Context) {
	p.pollContent(ctx)
	p.pollDisplay(ctx)
	p.pollWidgets(ctx)
}

func (p *ContentPoller) pollContent(ctx context.Context) {
	start := time.Now()
	pl, err := p.source.FetchContent(ctx)
	elapsed := time.Since(start)

	result := Result{Playlist: pl, At: time.Now()}
	switch {
	case err == nil:
		p.metrics.ObserveFetch("content", nil, elapsed)
		result.Status = StatusOK
		p.player.Reload(pl.Items)
		zlog.Debug().Msgf("content: fetched: playlist=%s, items=%d", pl.Name, len(pl.Items))

	case errors.Is(err, cms.ErrEmptyContent):
		p.metrics.ObserveEmpty("content", elapsed)
		result.Status = StatusEmpty
		result.Err = err
		p.player.Reload(nil)
		zlog.Info().Msg("content: no content configured")

	default:
		if ctx.Err() != nil {
			return
		}
		p.metrics.ObserveFetch("content", err, elapsed)
		result.Status = StatusError
		result.Err = err
		// Previous content keeps playing
		zlog.Warn().Msgf("content: fetch failed: %v", err)
	}
	if result.Status != StatusError {
		p.metrics.SetContentItems(len(pl.Items))
	}

	p.mu.Lock()
	if result.Status == StatusError {
		// Keep the last known playlist for status reporting
		result.Playlist = p.last.Playlist
	}
	p.last = result
	p.mu.Unlock()

	if p.observer != nil {
		p.observer.ContentFetched(result)
	}
}

func (p *ContentPoller) pollDisplay(ctx context.Context) {
	start := time.Now()
	patch, err := p.source.FetchDisplayConfig(ctx)
	p.metrics.ObserveFetch("config", err, time.Since(start))
	if err != nil {
		if ctx.Err() == nil {
			zlog.Warn().Msgf("content: display config fetch failed: %v", err)
		}
		return
	}

	p.mu.Lock()
	prev := p.display
	p.display = prev.Merge(patch)
	next := p.display
	p.mu.Unlock()

	if next == prev {
		return
	}
	zlog.Info().Msgf("content: display config changed: rotation=%d, effect=%s, transition=%v, orientation=%s",
		next.Rotation, next.Effect, next.TransitionDuration, next.Orientation)
	p.player.SetTransition(next)
	if p.observer != nil {
		p.observer.DisplayChanged(next)
	}
}

func (p *ContentPoller) pollWidgets(ctx context.Context) {
	if p.widgets == nil {
		return
	}
	start := time.Now()
	defs, err := p.source.FetchWidgets(ctx)
	p.metrics.ObserveFetch("widgets", err, time.Since(start))
	if err != nil {
		if ctx.Err() == nil {
			zlog.Warn().Msgf("content: widgets fetch failed, keeping previous widgets: %v", err)
		}
		return
	}
	p.widgets.Update(defs)
}
