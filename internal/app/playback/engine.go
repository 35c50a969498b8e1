package playback

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/app/transition"
	"github.com/osa030/19screen/internal/domain/content"
	"github.com/osa030/19screen/internal/domain/display"
	"github.com/osa030/19screen/internal/infra/clock"
)

// ErrMediaPlayback marks a video that failed to play.
var ErrMediaPlayback = errors.New("media playback failed")

const (
	defaultInboxSize  = 256
	defaultEventSize  = 64
	fallbackItemDelay = 10 * time.Second
)

// Config holds engine configuration.
type Config struct {
	Clock       clock.Clock    // Time source for timers (wall clock when nil)
	Transition  display.Config // Initial transition settings
	EventBuffer int            // Size of the event channel
}

type msgKind int

const (
	msgReload msgKind = iota
	msgAdvance
	msgNavigate
	msgMediaEnded
	msgMediaFailed
	msgSetTransition
	msgSnapshot
	msgAdvanceTimer
	msgTransitionTimer
)

type message struct {
	kind      msgKind
	items     []content.Item
	direction int
	seq       uint64
	reason    string
	display   display.Config
	gen       uint64
	reply     chan Snapshot
}

// Engine is the single writer of the playback state.
// All inputs are queued on one inbox and applied in order by Run, so no
// locking is needed on the state below.
type Engine struct {
	clock   clock.Clock
	inbox   chan message
	eventCh chan Event
	done    chan struct{}
	final   chan Snapshot

	// State owned by the Run goroutine
	items      []content.Item
	index      int
	next       int
	offset     int // Steps from index to next while transitioning
	transCause Cause
	state      State
	showSeq    uint64
	transition display.Config

	// Timers; a fired timer is only honored when its generation is current
	advanceGen   uint64
	advanceTimer clock.Timer
	transGen     uint64
	transTimer   clock.Timer
}

// New creates a new playback engine. Call Run to start processing.
func New(cfg Config) *Engine {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	eventSize := cfg.EventBuffer
	if eventSize <= 0 {
		eventSize = defaultEventSize
	}
	tr := cfg.Transition
	if tr.Effect == "" {
		tr = display.Default()
	}

	return &Engine{
		clock:      clk,
		inbox:      make(chan message, defaultInboxSize),
		eventCh:    make(chan Event, eventSize),
		done:       make(chan struct{}),
		final:      make(chan Snapshot, 1),
		state:      StateEmpty,
		transition: tr,
	}
}

// Events returns the event channel.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Run processes inputs until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	defer func() {
		e.stopAdvanceTimer()
		e.stopTransitionTimer()
		e.final <- e.snapshot()
	}()

	zlog.Debug().Msg("playback: engine started")
	for {
		select {
		case <-ctx.Done():
			zlog.Debug().Msg("playback: engine stopped")
			return
		case m := <-e.inbox:
			e.handle(m)
		}
	}
}

// Reload replaces the content list.
func (e *Engine) Reload(items []content.Item) {
	copied := make([]content.Item, len(items))
	copy(copied, items)
	e.post(message{kind: msgReload, items: copied})
}

// Advance moves by direction the way an item completion does.
// Ignored unless an item is displayed; a pending transition is not superseded.
func (e *Engine) Advance(direction int) {
	if direction == 0 {
		return
	}
	e.post(message{kind: msgAdvance, direction: direction})
}

// Navigate moves manually by direction (+1 next, -1 previous).
// The auto-advance timer is cancelled and the newest call wins over a pending transition.
func (e *Engine) Navigate(direction int) {
	if direction == 0 {
		return
	}
	e.post(message{kind: msgNavigate, direction: direction})
}

// MediaEnded reports the natural end of the video shown with seq.
func (e *Engine) MediaEnded(seq uint64) {
	e.post(message{kind: msgMediaEnded, seq: seq})
}

// MediaFailed reports a playback error of the video shown with seq.
func (e *Engine) MediaFailed(seq uint64, reason string) {
	e.post(message{kind: msgMediaFailed, seq: seq, reason: reason})
}

// SetTransition updates the settings used by future transitions.
func (e *Engine) SetTransition(cfg display.Config) {
	e.post(message{kind: msgSetTransition, display: cfg})
}

// Snapshot returns a consistent copy of the state.
// It waits for every previously queued input to be applied.
func (e *Engine) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !e.post(message{kind: msgSnapshot, reply: reply}) {
		return e.finalSnapshot()
	}
	select {
	case s := <-reply:
		return s
	case <-e.done:
		return e.finalSnapshot()
	}
}

func (e *Engine) finalSnapshot() Snapshot {
	s := <-e.final
	e.final <- s
	return s
}

// post queues a message. Returns false once the engine has stopped.
func (e *Engine) post(m message) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.inbox <- m:
		return true
	case <-e.done:
		return false
	}
}

func (e *Engine) handle(m message) {
	switch m.kind {
	case msgReload:
		e.reload(m.items)
	case msgAdvance:
		e.advance(m.direction, CauseTimer)
	case msgNavigate:
		e.navigate(m.direction)
	case msgMediaEnded:
		e.mediaDone(m.seq, nil)
	case msgMediaFailed:
		e.mediaDone(m.seq, errors.Mark(errors.Newf("video failed: %s", m.reason), ErrMediaPlayback))
	case msgSetTransition:
		e.transition = m.display
		zlog.Debug().Msgf("playback: transition set: %s", transition.New(m.display))
	case msgSnapshot:
		m.reply <- e.snapshot()
	case msgAdvanceTimer:
		if m.gen != e.advanceGen || e.state != StateDisplaying {
			return
		}
		e.advanceTimer = nil
		e.advance(1, CauseTimer)
	case msgTransitionTimer:
		if m.gen != e.transGen || e.state != StateTransitioning {
			return
		}
		e.transTimer = nil
		e.show(e.next, e.transCause)
	}
}

func (e *Engine) reload(items []content.Item) {
	if len(items) == 0 {
		wasEmpty := e.state == StateEmpty
		e.stopAdvanceTimer()
		e.stopTransitionTimer()
		e.items = nil
		e.index = 0
		e.next = 0
		e.offset = 0
		e.state = StateEmpty
		if !wasEmpty {
			zlog.Info().Msg("playback: content list is empty")
			e.sendEvent(Event{Type: EventEmpty, Cause: CauseReload, Snapshot: e.snapshot()})
		}
		return
	}

	prevState := e.state
	prevItems := e.items
	prevIndex := e.index
	e.items = items

	switch prevState {
	case StateEmpty:
		zlog.Info().Msgf("playback: content loaded: items=%d", len(items))
		e.show(0, CauseReload)

	case StateDisplaying:
		idx := clampIndex(prevIndex, len(items))
		if idx == prevIndex && items[idx].Same(prevItems[prevIndex]) {
			// Same item still on screen; the pending timer stays as is
			zlog.Debug().Msgf("playback: content reloaded, current item unchanged: items=%d, index=%d", len(items), idx)
			return
		}
		zlog.Info().Msgf("playback: content reloaded: items=%d, index=%d", len(items), idx)
		e.show(idx, CauseReload)

	case StateTransitioning:
		e.index = clampIndex(prevIndex, len(items))
		if len(items) == 1 {
			e.stopTransitionTimer()
			e.show(0, CauseReload)
			return
		}
		e.next = wrap(e.index+e.offset, len(items))
		zlog.Debug().Msgf("playback: content reloaded during transition: index=%d, next=%d", e.index, e.next)
	}
}

func (e *Engine) navigate(direction int) {
	switch e.state {
	case StateEmpty:
		return
	case StateTransitioning:
		e.offset += direction
		e.next = wrap(e.index+e.offset, len(e.items))
		zlog.Info().Msgf("playback: navigate during transition: direction=%d, next=%d", direction, e.next)
		e.startTransition(CauseNavigate)
	case StateDisplaying:
		if len(e.items) <= 1 {
			return
		}
		e.stopAdvanceTimer()
		zlog.Info().Msgf("playback: navigate: direction=%d", direction)
		e.advance(direction, CauseNavigate)
	}
}

func (e *Engine) mediaDone(seq uint64, failure error) {
	if e.state != StateDisplaying || seq != e.showSeq {
		zlog.Debug().Msgf("playback: ignoring stale media event: seq=%d, current=%d", seq, e.showSeq)
		return
	}
	item := e.items[e.index]
	if !item.IsVideo() {
		return
	}
	if failure != nil {
		zlog.Warn().Msgf("playback: %v: id=%s, name=%s", failure, item.ID, item.Name)
	} else {
		zlog.Debug().Msgf("playback: video ended: id=%s", item.ID)
	}
	e.advance(1, CauseMedia)
}

// advance moves from the displayed item by direction.
func (e *Engine) advance(direction int, cause Cause) {
	if e.state != StateDisplaying {
		return
	}
	if len(e.items) == 1 {
		// Videos are shown again so they loop; anything else stays on screen
		if e.items[0].IsVideo() {
			e.show(0, cause)
		} else {
			e.stopAdvanceTimer()
			e.armAdvanceTimer(e.items[0])
		}
		return
	}

	e.stopAdvanceTimer()
	e.offset = direction
	e.next = wrap(e.index+direction, len(e.items))
	e.startTransition(cause)
}

// startTransition enters (or restarts) the hand-off to e.next.
func (e *Engine) startTransition(cause Cause) {
	plan := transition.New(e.transition)
	if plan.Immediate() {
		e.stopTransitionTimer()
		e.show(e.next, cause)
		return
	}

	e.state = StateTransitioning
	e.transCause = cause
	e.stopTransitionTimer()
	e.transGen++
	gen := e.transGen
	e.transTimer = e.clock.AfterFunc(plan.Hold, func() {
		e.post(message{kind: msgTransitionTimer, gen: gen})
	})

	e.sendEvent(Event{
		Type:       EventTransitionStarted,
		Cause:      cause,
		Snapshot:   e.snapshot(),
		Item:       e.items[e.index],
		Next:       e.items[e.next],
		Transition: plan,
	})
}

// show commits index and enters Displaying, arming the auto-advance timer.
func (e *Engine) show(index int, cause Cause) {
	e.stopAdvanceTimer()
	e.index = index
	e.next = index
	e.offset = 0
	e.state = StateDisplaying
	e.showSeq++

	item := e.items[index]
	if !item.IsVideo() {
		e.armAdvanceTimer(item)
	}

	zlog.Info().Msgf("playback: showing item: index=%d, id=%s, type=%s, name=%s, cause=%s", index, item.ID, item.Type, item.Name, cause)
	e.sendEvent(Event{
		Type:     EventItemShown,
		Cause:    cause,
		Snapshot: e.snapshot(),
		Item:     item,
	})
}

// armAdvanceTimer schedules the auto-advance after the item's duration.
func (e *Engine) armAdvanceTimer(item content.Item) {
	d := item.Duration
	if d <= 0 {
		d = fallbackItemDelay
	}
	e.advanceGen++
	gen := e.advanceGen
	e.advanceTimer = e.clock.AfterFunc(d, func() {
		e.post(message{kind: msgAdvanceTimer, gen: gen})
	})
}

func (e *Engine) stopAdvanceTimer() {
	e.advanceGen++
	if e.advanceTimer != nil {
		e.advanceTimer.Stop()
		e.advanceTimer = nil
	}
}

func (e *Engine) stopTransitionTimer() {
	e.transGen++
	if e.transTimer != nil {
		e.transTimer.Stop()
		e.transTimer = nil
	}
}

func (e *Engine) snapshot() Snapshot {
	return Snapshot{
		Items:        e.items,
		CurrentIndex: e.index,
		State:        e.state,
		Next:         e.next,
		ShowSeq:      e.showSeq,
	}
}

// sendEvent sends an event without blocking.
func (e *Engine) sendEvent(ev Event) {
	select {
	case e.eventCh <- ev:
	default:
		zlog.Warn().Msgf("playback: event channel full, dropping %s", ev.Type)
	}
}

// clampIndex keeps i inside a list of length n (n > 0).
func clampIndex(i, n int) int {
	if i >= n {
		return n - 1
	}
	if i < 0 {
		return 0
	}
	return i
}

// wrap returns i modulo n in both directions.
func wrap(i, n int) int {
	return ((i % n) + n) % n
}
