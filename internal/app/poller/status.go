package poller

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/infra/cms"
	"github.com/osa030/19screen/internal/infra/metrics"
)

// StatusSink receives player heartbeats.
type StatusSink interface {
	PostStatus(ctx context.Context, status cms.Status) error
}

// StatusConfig holds status reporter configuration.
type StatusConfig struct {
	Sink     StatusSink
	Collect  func() cms.Status // Builds the current status
	Metrics  *metrics.Metrics
	Interval time.Duration // Zero disables reporting
}

// StatusReporter periodically posts the player status for monitoring.
type StatusReporter struct {
	sink     StatusSink
	collect  func() cms.Status
	metrics  *metrics.Metrics
	interval time.Duration
}

// NewStatusReporter creates a new status reporter.
func NewStatusReporter(cfg StatusConfig) *StatusReporter {
	return &StatusReporter{
		sink:     cfg.Sink,
		collect:  cfg.Collect,
		metrics:  cfg.Metrics,
		interval: cfg.Interval,
	}
}

// Run reports once immediately and then on every interval.
func (r *StatusReporter) Run(ctx context.Context) {
	if r.interval <= 0 {
		zlog.Debug().Msg("status: reporting disabled")
		return
	}
	zlog.Info().Msgf("status: reporter started: interval=%v", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	_ = r.ReportOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.ReportOnce(ctx)
		}
	}
}

// ReportOnce posts the current status.
func (r *StatusReporter) ReportOnce(ctx context.Context) error {
	status := r.collect()
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	start := time.Now()
	err := r.sink.PostStatus(ctx, status)
	r.metrics.ObserveFetch("status", err, time.Since(start))
	if err != nil {
		zlog.Debug().Msgf("status: report failed: %v", err)
		return err
	}
	zlog.Debug().Msgf("status: reported: state=%s, index=%d, status=%s", status.State, status.Index, status.Status)
	return nil
}
