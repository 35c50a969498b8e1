package widget

import (
	"context"
	"sort"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/domain/widget"
	"github.com/osa030/19screen/internal/infra/clock"
	"github.com/osa030/19screen/internal/infra/metrics"
)

// Frame is one rendering of a widget.
type Frame struct {
	ID         string          `json:"id"`
	Kind       widget.Kind     `json:"type"`
	Name       string          `json:"name"`
	Position   widget.Position `json:"position"`
	Data       map[string]any  `json:"data"`
	RenderedAt time.Time       `json:"rendered_at"`
}

// Sink receives widget frames and removals.
type Sink interface {
	WidgetFrame(f Frame)
	WidgetRemoved(id string)
}

// OverlayConfig holds overlay configuration.
type OverlayConfig struct {
	Deps     Deps
	Sink     Sink
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Enabled  func(kind string) bool           // Local kill switch per kind (all enabled when nil)
	Settings func(kind string) map[string]any // Local settings, overridden by the CMS config
}

// Overlay runs one renderer per enabled widget definition.
type Overlay struct {
	cfg   OverlayConfig
	clock clock.Clock

	mu      sync.Mutex
	runners map[string]*runner
	frames  map[string]Frame
	closed  bool
}

type runner struct {
	def         widget.Definition
	fingerprint string
	renderer    Renderer
	ctx         context.Context
	cancel      context.CancelFunc

	mu    sync.Mutex
	timer clock.Timer
}

// NewOverlay creates a new widget overlay.
func NewOverlay(cfg OverlayConfig) *Overlay {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Overlay{
		cfg:     cfg,
		clock:   clk,
		runners: make(map[string]*runner),
		frames:  make(map[string]Frame),
	}
}

// Update reconciles the running widgets with defs.
// Widgets whose definition is unchanged keep running untouched.
func (o *Overlay) Update(defs []widget.Definition) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	wanted := make(map[string]widget.Definition, len(defs))
	for _, d := range defs {
		if !d.Enabled || !o.kindEnabled(d.Kind) {
			continue
		}
		wanted[d.ID] = d
	}

	for id, r := range o.runners {
		d, ok := wanted[id]
		if ok && d.Fingerprint() == r.fingerprint {
			delete(wanted, id)
			continue
		}
		o.stopLocked(id, r, !ok)
	}

	ids := make([]string, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		o.startLocked(wanted[id])
	}

	o.cfg.Metrics.SetWidgetsActive(len(o.runners))
	zlog.Debug().Msgf("widget: overlay updated: active=%d", len(o.runners))
}

// Frames returns the latest frame of every running widget, ordered by ID.
func (o *Overlay) Frames() []Frame {
	o.mu.Lock()
	defer o.mu.Unlock()

	frames := make([]Frame, 0, len(o.frames))
	for _, f := range o.frames {
		frames = append(frames, f)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].ID < frames[j].ID })
	return frames
}

// Active returns the number of running widgets.
func (o *Overlay) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.runners)
}

// Close stops every widget. Later updates are ignored.
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for id, r := range o.runners {
		o.stopLocked(id, r, false)
	}
	o.closed = true
	o.cfg.Metrics.SetWidgetsActive(0)
}

func (o *Overlay) kindEnabled(kind widget.Kind) bool {
	if o.cfg.Enabled == nil {
		return true
	}
	return o.cfg.Enabled(string(kind))
}

func (o *Overlay) startLocked(d widget.Definition) {
	factory, ok := registry[string(d.Kind)]
	if !ok {
		zlog.Warn().Msgf("widget: unknown kind, skipping: id=%s, kind=%s", d.ID, d.Kind)
		return
	}

	renderer := factory(o.cfg.Deps)
	var local map[string]any
	if o.cfg.Settings != nil {
		local = o.cfg.Settings(string(d.Kind))
	}
	if err := renderer.ValidateConfig(mergeSettings(local, d.Config)); err != nil {
		zlog.Warn().Err(err).Msgf("widget: invalid config, skipping: id=%s, kind=%s", d.ID, d.Kind)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &runner{
		def:         d,
		fingerprint: d.Fingerprint(),
		renderer:    renderer,
		ctx:         ctx,
		cancel:      cancel,
	}
	o.runners[d.ID] = r

	zlog.Info().Msgf("widget: started: id=%s, kind=%s, position=%s", d.ID, d.Kind, d.Position)
	go o.tick(r)
}

func (o *Overlay) stopLocked(id string, r *runner, notify bool) {
	r.cancel()
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	delete(o.runners, id)
	delete(o.frames, id)
	zlog.Info().Msgf("widget: stopped: id=%s, kind=%s", id, r.def.Kind)

	if notify && o.cfg.Sink != nil {
		o.cfg.Sink.WidgetRemoved(id)
	}
}

// tick renders r once and schedules the next rendering.
func (o *Overlay) tick(r *runner) {
	if r.ctx.Err() != nil {
		return
	}

	now := o.clock.Now()
	data, err := r.renderer.Render(r.ctx, now)
	if err != nil {
		// The previous frame stays on screen
		zlog.Warn().Err(err).Msgf("widget: render failed: id=%s, kind=%s", r.def.ID, r.def.Kind)
	} else {
		o.publish(r, Frame{
			ID:         r.def.ID,
			Kind:       r.def.Kind,
			Name:       r.def.Name,
			Position:   r.def.Position,
			Data:       data,
			RenderedAt: now,
		})
	}

	interval := r.renderer.Interval()
	if interval <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx.Err() != nil {
		return
	}
	r.timer = o.clock.AfterFunc(interval, func() { o.tick(r) })
}

func (o *Overlay) publish(r *runner, f Frame) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.runners[f.ID] != r {
		return
	}
	o.frames[f.ID] = f
	if o.cfg.Sink != nil {
		o.cfg.Sink.WidgetFrame(f)
	}
}
