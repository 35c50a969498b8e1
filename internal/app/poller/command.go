package poller

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/domain/signal"
	"github.com/osa030/19screen/internal/infra/metrics"
)

// SignalSource fetches the remote signal.
type SignalSource interface {
	FetchSignal(ctx context.Context) (signal.Remote, error)
}

// Navigator moves the playback manually.
type Navigator interface {
	Navigate(direction int)
}

// Refresher triggers a full content re-fetch.
type Refresher interface {
	Refresh()
}

// CommandConfig holds command poller configuration.
type CommandConfig struct {
	Source    SignalSource
	Navigator Navigator
	Refresher Refresher
	Metrics   *metrics.Metrics
	Interval  time.Duration
}

// CommandPoller watches the command channel and acts on changed tokens.
type CommandPoller struct {
	source    SignalSource
	navigator Navigator
	refresher Refresher
	metrics   *metrics.Metrics
	interval  time.Duration

	nowCh chan struct{}

	// Last observed tokens, kept for the process lifetime
	mu               sync.Mutex
	lastRefreshToken string
	lastCommandToken string
}

// NewCommandPoller creates a new command poller.
func NewCommandPoller(cfg CommandConfig) *CommandPoller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &CommandPoller{
		source:    cfg.Source,
		navigator: cfg.Navigator,
		refresher: cfg.Refresher,
		metrics:   cfg.Metrics,
		interval:  interval,
		nowCh:     make(chan struct{}, 1),
	}
}

// PollNow requests a poll ahead of the next tick.
func (p *CommandPoller) PollNow() {
	select {
	case p.nowCh <- struct{}{}:
	default:
	}
}

// LastSeen returns the last observed refresh and command tokens.
func (p *CommandPoller) LastSeen() (refreshToken, commandToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRefreshToken, p.lastCommandToken
}

// Run polls on every interval until ctx is cancelled.
// Polls never overlap: each one completes before the next starts.
func (p *CommandPoller) Run(ctx context.Context) {
	zlog.Info().Msgf("command: poller started: interval=%v", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zlog.Debug().Msg("command: poller stopped")
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		case <-p.nowCh:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce fetches the signal and dispatches what changed.
// The refresh token is evaluated before the command.
func (p *CommandPoller) PollOnce(ctx context.Context) {
	start := time.Now()
	remote, err := p.source.FetchSignal(ctx)
	p.metrics.ObserveFetch("signal", err, time.Since(start))
	if err != nil {
		// Tokens are left untouched so nothing is replayed on recovery
		zlog.Debug().Msgf("command: signal fetch failed: %v", err)
		return
	}

	p.mu.Lock()
	refresh := remote.RefreshToken != "" && remote.RefreshToken != p.lastRefreshToken
	if refresh {
		p.lastRefreshToken = remote.RefreshToken
	}
	cmd := remote.Command
	dispatch := cmd.Kind != signal.CommandNone && cmd.IssuedAt != "" && cmd.IssuedAt != p.lastCommandToken
	if dispatch {
		p.lastCommandToken = cmd.IssuedAt
	}
	p.mu.Unlock()

	if refresh {
		zlog.Info().Msgf("command: refresh token changed: token=%s", remote.RefreshToken)
		p.refresher.Refresh()
	}
	if dispatch {
		p.dispatch(cmd)
	}
}

func (p *CommandPoller) dispatch(cmd signal.Command) {
	zlog.Info().Msgf("command: dispatching: kind=%s, issued_at=%s", cmd.Kind, cmd.IssuedAt)
	p.metrics.CommandDispatched(string(cmd.Kind))

	switch cmd.Kind {
	case signal.CommandNext, signal.CommandPrev:
		p.navigator.Navigate(cmd.Kind.Direction())
	case signal.CommandRefresh:
		p.refresher.Refresh()
	}
}
