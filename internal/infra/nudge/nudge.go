// Package nudge listens on a Redis channel for hints that a new remote
// command is waiting. A nudge only triggers an extra command poll; the
// polled channel stays authoritative.
package nudge

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/infra/metrics"
)

// Config holds nudge listener configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	PlayerID string
	Player   string // Player name, also accepted as a target
}

// Listener subscribes to the nudge channel.
type Listener struct {
	client  *redis.Client
	channel string
	targets []string
	metrics *metrics.Metrics
}

// New creates a new nudge listener. The connection is made lazily by Run.
func New(cfg Config, m *metrics.Metrics) (*Listener, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	channel := cfg.Channel
	if channel == "" {
		channel = "player:nudge"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	var targets []string
	for _, t := range []string{cfg.PlayerID, cfg.Player} {
		if t != "" {
			targets = append(targets, t)
		}
	}

	return &Listener{
		client:  client,
		channel: channel,
		targets: targets,
		metrics: m,
	}, nil
}

// Run delivers matching nudges to onNudge until ctx is cancelled.
// An unreachable server is not fatal; the client keeps reconnecting.
func (l *Listener) Run(ctx context.Context, onNudge func()) error {
	defer l.client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := l.client.Ping(pingCtx).Err(); err != nil {
		zlog.Warn().Err(err).Msgf("nudge: redis not reachable, will keep retrying: channel=%s", l.channel)
	}
	cancel()

	pubsub := l.client.Subscribe(ctx, l.channel)
	defer pubsub.Close()

	zlog.Info().Msgf("nudge: listening: channel=%s", l.channel)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			zlog.Debug().Msg("nudge: listener stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("nudge channel closed")
			}
			if !Matches(msg.Payload, l.targets...) {
				continue
			}
			zlog.Debug().Msgf("nudge: received: payload=%q", msg.Payload)
			l.metrics.NudgeReceived()
			onNudge()
		}
	}
}

// Matches reports whether a nudge payload addresses one of targets.
// An empty payload or "*" addresses every player; otherwise the payload is
// a comma separated list of player IDs or names.
func Matches(payload string, targets ...string) bool {
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == "*" {
		return true
	}
	for _, p := range strings.Split(payload, ",") {
		p = strings.TrimSpace(p)
		for _, t := range targets {
			if p == t {
				return true
			}
		}
	}
	return false
}
