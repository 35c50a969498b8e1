// Package session provides the session manager that wires the player together.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/app/kiosk"
	"github.com/osa030/19screen/internal/app/notification"
	"github.com/osa030/19screen/internal/app/playback"
	"github.com/osa030/19screen/internal/app/poller"
	"github.com/osa030/19screen/internal/app/session/state"
	"github.com/osa030/19screen/internal/app/widget"
	"github.com/osa030/19screen/internal/domain/content"
	"github.com/osa030/19screen/internal/domain/display"
	"github.com/osa030/19screen/internal/infra/clock"
	"github.com/osa030/19screen/internal/infra/cms"
	"github.com/osa030/19screen/internal/infra/config"
	"github.com/osa030/19screen/internal/infra/metrics"
	"github.com/osa030/19screen/internal/infra/nudge"
)

var (
	ErrSessionNotRunning = errors.New("session is not running")
	ErrAlreadyStarted    = errors.New("session already started")
	ErrUnknownAction     = errors.New("unknown control action")
)

var playbackStates = []string{
	playback.StateEmpty.String(),
	playback.StateDisplaying.String(),
	playback.StateTransitioning.String(),
}

// Window is a browser window the session can drive.
type Window interface {
	SetFullscreen(on bool) error
}

// Deps holds the collaborators of the session.
type Deps struct {
	Client  *cms.Client      // Built from the configuration when nil
	Metrics *metrics.Metrics // Optional
	Clock   clock.Clock      // Wall clock when nil
}

// Manager manages the player session.
type Manager struct {
	mu sync.RWMutex

	// Configuration
	config *config.Config

	// Components
	stateMgr     *state.Manager
	client       *cms.Client
	engine       *playback.Engine
	content      *poller.ContentPoller
	commands     *poller.CommandPoller
	status       *poller.StatusReporter
	overlay      *widget.Overlay
	info         *widget.Overlay
	shell        *kiosk.Shell
	notification *notification.Manager
	nudge        *nudge.Listener
	metrics      *metrics.Metrics
	clock        clock.Clock
	window       Window

	// Last show message, replayed to pages that connect later
	lastShow *notification.Message
	empty    bool

	// Lifecycle
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a new session manager.
func NewManager(cfg *config.Config, deps Deps) (*Manager, error) {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}

	client := deps.Client
	if client == nil {
		c, err := cms.New(cms.Config{
			BaseURL:  cfg.CMS.BaseURL,
			Token:    cfg.CMS.Token,
			PlayerID: cfg.Player.ID,
			Timeout:  cfg.CMSTimeout(),
			Paths: cms.Paths{
				Content: cfg.CMS.ContentPath,
				Config:  cfg.CMS.ConfigPath,
				Widgets: cfg.CMS.WidgetsPath,
				Signal:  cfg.CMS.SignalPath,
				Weather: cfg.CMS.WeatherPath,
				Status:  cfg.CMS.StatusPath,
			},
			DefaultItemDuration: cfg.DefaultItemDuration(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create CMS client")
		}
		client = c
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:       cfg,
		stateMgr:     state.New(cfg.Player.ID, cfg.Player.Name),
		client:       client,
		notification: notification.NewManager(deps.Metrics),
		metrics:      deps.Metrics,
		clock:        clk,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	m.engine = playback.New(playback.Config{
		Clock:      clk,
		Transition: display.Default(),
	})

	m.overlay = widget.NewOverlay(widget.OverlayConfig{
		Deps:     widget.Deps{Weather: client},
		Sink:     m,
		Clock:    clk,
		Metrics:  deps.Metrics,
		Enabled:  cfg.IsWidgetEnabled,
		Settings: cfg.WidgetSettings,
	})

	m.info = widget.NewOverlay(widget.OverlayConfig{
		Deps:     widget.Deps{Weather: client},
		Sink:     infoSink{m},
		Clock:    clk,
		Enabled:  cfg.IsWidgetEnabled,
		Settings: cfg.WidgetSettings,
	})

	m.shell = kiosk.New(kiosk.Config{
		Clock:       clk,
		IdleTimeout: cfg.IdleTimeout(),
		Fullscreen:  !cfg.Kiosk.Windowed,
		OnChange:    m.onKioskChanged,
	})

	m.content = poller.NewContentPoller(poller.ContentConfig{
		Source:   client,
		Player:   m.engine,
		Widgets:  m.overlay,
		Observer: m,
		Metrics:  deps.Metrics,
		Interval: cfg.ContentInterval(),
		Display:  display.Default(),
	})

	m.commands = poller.NewCommandPoller(poller.CommandConfig{
		Source:    client,
		Navigator: m.engine,
		Refresher: m.content,
		Metrics:   deps.Metrics,
		Interval:  cfg.CommandInterval(),
	})

	m.status = poller.NewStatusReporter(poller.StatusConfig{
		Sink:     client,
		Collect:  m.collectStatus,
		Metrics:  deps.Metrics,
		Interval: cfg.StatusInterval(),
	})

	if cfg.Nudge.RedisAddr != "" {
		l, err := nudge.New(nudge.Config{
			Addr:     cfg.Nudge.RedisAddr,
			Password: cfg.Nudge.Password,
			DB:       cfg.Nudge.DB,
			Channel:  cfg.Nudge.Channel,
			PlayerID: cfg.Player.ID,
			Player:   cfg.Player.Name,
		}, deps.Metrics)
		if err != nil {
			cancel()
			return nil, errors.Wrap(err, "failed to create nudge listener")
		}
		m.nudge = l
	}

	return m, nil
}

// Start starts the engine, the pollers and the event relay.
func (m *Manager) Start(ctx context.Context) error {
	if m.stateMgr.GetPhase() != state.PhaseStarting {
		return ErrAlreadyStarted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.stateMgr.SetStartedAt(m.clock.Now())
	m.stateMgr.SetPhase(state.PhaseRunning)
	m.metrics.SetPlaybackState(playback.StateEmpty.String(), playbackStates...)
	zlog.Info().Msgf("phase changed: phase=RUNNING player_id=%s name=%s", m.stateMgr.GetPlayerID(), m.stateMgr.GetPlayerName())

	m.goRun(func() { m.engine.Run(m.ctx) })
	m.goRun(m.eventLoop)
	m.goRun(func() { m.content.Run(m.ctx) })
	m.goRun(func() { m.commands.Run(m.ctx) })
	m.goRun(func() { m.status.Run(m.ctx) })
	if m.nudge != nil {
		m.goRun(func() {
			if err := m.nudge.Run(m.ctx, m.commands.PollNow); err != nil {
				zlog.Warn().Err(err).Msg("nudge: listener exited")
			}
		})
	}

	return nil
}

func (m *Manager) goRun(f func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		f()
	}()
}

// Done returns a channel closed once the session has fully stopped.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close stops every goroutine and waits for them.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.stateMgr.SetPhase(state.PhaseStopping)
		m.cancel()
		m.wg.Wait()

		m.overlay.Close()
		m.info.Close()
		m.shell.Close()
		m.notification.Close()

		m.stateMgr.SetPhase(state.PhaseStopped)
		zlog.Info().Msgf("phase changed: phase=STOPPED player_id=%s", m.stateMgr.GetPlayerID())
		close(m.done)
	})
}

// AttachWindow lets the session drive the fullscreen state of a browser.
func (m *Manager) AttachWindow(w Window) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.window = w
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Snapshot returns the current playback state.
func (m *Manager) Snapshot() playback.Snapshot {
	return m.engine.Snapshot()
}

// Control applies a local control action: next, prev, refresh or fullscreen.
func (m *Manager) Control(action string) error {
	if m.stateMgr.GetPhase() != state.PhaseRunning {
		return ErrSessionNotRunning
	}

	switch action {
	case "next":
		m.engine.Navigate(1)
	case "prev":
		m.engine.Navigate(-1)
	case "refresh":
		m.content.Refresh()
	case "fullscreen":
		m.shell.ToggleFullscreen()
	default:
		return errors.Wrapf(ErrUnknownAction, "action %q", action)
	}
	m.metrics.CommandDispatched(action)
	zlog.Info().Msgf("control: action=%s", action)
	return nil
}

// Subscribe registers a kiosk page and sends it the current state.
func (m *Manager) Subscribe(stream notification.Stream) string {
	id := m.notification.Subscribe(stream)

	initial := []*notification.Message{
		newDisplayMessage(m.stateMgr.GetDisplay()),
		{Type: notification.TypeKiosk, Payload: m.shell.State()},
		{Type: notification.TypeStatus, Payload: m.stateMgr.GetIndicator()},
	}

	m.mu.RLock()
	switch {
	case m.empty:
		initial = append(initial, &notification.Message{
			Type:    notification.TypeEmpty,
			Payload: EmptyPayload{Message: m.config.Messages.Empty},
		})
	case m.lastShow != nil:
		show := *m.lastShow
		initial = append(initial, &show)
	}
	m.mu.RUnlock()

	for _, f := range m.info.Frames() {
		initial = append(initial, &notification.Message{Type: notification.TypeInfo, Payload: f})
	}
	for _, f := range m.overlay.Frames() {
		initial = append(initial, &notification.Message{Type: notification.TypeWidget, Payload: f})
	}

	for _, msg := range initial {
		if err := m.notification.Send(id, msg); err != nil {
			zlog.Debug().Err(err).Msgf("session: initial state not delivered: subscription=%s", id)
			m.notification.Unsubscribe(id)
			break
		}
	}
	return id
}

// Unsubscribe removes a kiosk page.
func (m *Manager) Unsubscribe(id string) {
	m.notification.Unsubscribe(id)
}

// HandlePageMessage applies a message sent by a kiosk page.
func (m *Manager) HandlePageMessage(msg PageMessage) {
	switch msg.Type {
	case notification.TypeMediaEnded:
		m.engine.MediaEnded(msg.Seq)
	case notification.TypeMediaError:
		m.engine.MediaFailed(msg.Seq, msg.Reason)
	case notification.TypeKey:
		action := m.shell.Key(msg.Key)
		if dir := action.Command().Direction(); dir != 0 {
			m.engine.Navigate(dir)
			m.metrics.CommandDispatched("key")
		}
	case notification.TypePointer:
		m.shell.PointerMoved()
	default:
		zlog.Debug().Msgf("session: ignoring page message: type=%s", msg.Type)
	}
}

// Status represents the current player status.
type Status struct {
	state.Info
	Playback PlaybackStatus `json:"playback"`
	Display  display.Config `json:"display"`
	Kiosk    kiosk.State    `json:"kiosk"`
	Widgets  []widget.Frame `json:"widgets"`
	InfoPage bool           `json:"info_page"`
	Clients  int            `json:"clients"`
	Tokens   TokenStatus    `json:"tokens"`
}

// PlaybackStatus is the playback part of Status.
type PlaybackStatus struct {
	State     string       `json:"state"`
	Index     int          `json:"index"`
	Next      int          `json:"next"`
	ItemCount int          `json:"item_count"`
	ShowSeq   uint64       `json:"show_seq"`
	Current   *ItemPayload `json:"current,omitempty"`
	Pending   *ItemPayload `json:"pending,omitempty"`
}

// TokenStatus holds the last command channel tokens acted upon.
type TokenStatus struct {
	Refresh string `json:"refresh"`
	Command string `json:"command"`
}

// GetStatus returns the current player status.
func (m *Manager) GetStatus() *Status {
	var snap playback.Snapshot
	if m.stateMgr.GetPhase() != state.PhaseStarting {
		snap = m.engine.Snapshot()
	}
	refresh, command := m.commands.LastSeen()

	pb := PlaybackStatus{
		State:     snap.State.String(),
		Index:     snap.CurrentIndex,
		Next:      snap.Next,
		ItemCount: len(snap.Items),
		ShowSeq:   snap.ShowSeq,
	}
	if it, ok := snap.Current(); ok {
		p := newItemPayload(it)
		pb.Current = &p
	}
	if it, ok := snap.Pending(); ok {
		p := newItemPayload(it)
		pb.Pending = &p
	}

	return &Status{
		Info:     m.stateMgr.BuildInfo(),
		Playback: pb,
		Display:  m.stateMgr.GetDisplay(),
		Kiosk:    m.shell.State(),
		Widgets:  m.overlay.Frames(),
		InfoPage: m.info.Active() > 0,
		Clients:  m.notification.SubscriberCount(),
		Tokens:   TokenStatus{Refresh: refresh, Command: command},
	}
}

// eventLoop relays engine events to the kiosk pages.
func (m *Manager) eventLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-m.engine.Events():
			m.handlePlaybackEvent(ev)
		}
	}
}

func (m *Manager) handlePlaybackEvent(ev playback.Event) {
	m.metrics.SetPlaybackState(ev.Snapshot.State.String(), playbackStates...)

	switch ev.Type {
	case playback.EventItemShown:
		msg := newShowMessage(ev)
		// Broadcast stamps the sequence number on msg; the replay keeps its own copy
		replay := *msg
		m.mu.Lock()
		m.lastShow = &replay
		m.empty = false
		m.mu.Unlock()

		m.metrics.ItemShown(string(ev.Item.Type), string(ev.Cause))
		m.notification.Broadcast(msg)
		m.showInfoPage(ev.Item.Type == content.TypeWidget)

	case playback.EventTransitionStarted:
		m.metrics.TransitionStarted(string(ev.Transition.Effect))
		m.notification.Broadcast(newTransitionMessage(ev))

	case playback.EventEmpty:
		m.mu.Lock()
		m.lastShow = nil
		m.empty = true
		m.mu.Unlock()
		m.showInfoPage(false)

		m.notification.Broadcast(&notification.Message{
			Type:    notification.TypeEmpty,
			Payload: EmptyPayload{Message: m.config.Messages.Empty},
		})
	}
}

// showInfoPage starts or stops the widgets of the full-screen info page.
func (m *Manager) showInfoPage(on bool) {
	if on {
		m.info.Update(widget.InfoPage())
		return
	}
	m.info.Update(nil)
}

// infoSink relays info page frames; the page drops them with the item.
type infoSink struct {
	m *Manager
}

func (s infoSink) WidgetFrame(f widget.Frame) {
	s.m.notification.Broadcast(&notification.Message{Type: notification.TypeInfo, Payload: f})
}

func (s infoSink) WidgetRemoved(string) {}

// ContentFetched implements poller.Observer.
func (m *Manager) ContentFetched(r poller.Result) {
	var message string
	switch r.Status {
	case poller.StatusOK:
		m.stateMgr.SetPlaylistInfo(r.Playlist.ID, r.Playlist.Name)
		m.metrics.SetContentItems(len(r.Playlist.Items))
		zlog.Debug().Msgf("session: playlist fetched: id=%s, items=%v, videos=%d, timed=%v",
			r.Playlist.ID, r.Playlist.ItemIDs(), r.Playlist.VideoCount(), r.Playlist.TotalDuration())
	case poller.StatusEmpty:
		message = m.config.Messages.Empty
		m.stateMgr.SetPlaylistInfo(r.Playlist.ID, r.Playlist.Name)
		m.metrics.SetContentItems(0)
	case poller.StatusError:
		message = m.config.Messages.FetchError
	}

	if m.stateMgr.SetIndicator(string(r.Status), message, r.At) {
		zlog.Info().Msgf("session: status changed: status=%s", r.Status)
		m.notification.Broadcast(&notification.Message{
			Type:    notification.TypeStatus,
			Payload: m.stateMgr.GetIndicator(),
		})
	}
}

// DisplayChanged implements poller.Observer.
func (m *Manager) DisplayChanged(cfg display.Config) {
	m.stateMgr.SetDisplay(cfg)
	m.notification.Broadcast(newDisplayMessage(cfg))
}

// WidgetFrame implements widget.Sink.
func (m *Manager) WidgetFrame(f widget.Frame) {
	m.notification.Broadcast(&notification.Message{Type: notification.TypeWidget, Payload: f})
}

// WidgetRemoved implements widget.Sink.
func (m *Manager) WidgetRemoved(id string) {
	m.notification.Broadcast(&notification.Message{
		Type:    notification.TypeWidgetRemove,
		Payload: WidgetRemovePayload{ID: id},
	})
}

func (m *Manager) onKioskChanged(s kiosk.State) {
	m.mu.RLock()
	w := m.window
	m.mu.RUnlock()
	if w != nil {
		if err := w.SetFullscreen(s.Fullscreen); err != nil {
			zlog.Warn().Err(err).Msg("session: failed to apply fullscreen to browser")
		}
	}

	m.notification.Broadcast(&notification.Message{Type: notification.TypeKiosk, Payload: s})
}

// collectStatus builds the heartbeat posted to the CMS.
func (m *Manager) collectStatus() cms.Status {
	snap := m.engine.Snapshot()
	status := cms.Status{
		PlayerID:  m.stateMgr.GetPlayerID(),
		Name:      m.stateMgr.GetPlayerName(),
		State:     snap.State.String(),
		Index:     snap.CurrentIndex,
		ItemCount: len(snap.Items),
		Status:    m.stateMgr.GetIndicator().Status,
		Timestamp: m.clock.Now().UTC().Truncate(time.Millisecond),
	}
	if it, ok := snap.Current(); ok {
		status.ItemID = it.ID
	}
	return status
}
