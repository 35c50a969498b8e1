package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19screen/internal/domain/content"
	"github.com/osa030/19screen/internal/domain/display"
	"github.com/osa030/19screen/internal/domain/playlist"
	"github.com/osa030/19screen/internal/domain/signal"
	"github.com/osa030/19screen/internal/domain/widget"
	"github.com/osa030/19screen/internal/infra/cms"
)

// fakeCMS serves canned answers and counts calls.
type fakeCMS struct {
	mu sync.Mutex

	playlist   playlist.Playlist
	contentErr error
	patch      display.Patch
	configErr  error
	widgets    []widget.Definition
	widgetsErr error
	remote     signal.Remote
	signalErr  error
	statusErr  error

	contentCalls int
	widgetCalls  int
	statuses     []cms.Status
}

func (f *fakeCMS) FetchContent(ctx context.Context) (playlist.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contentCalls++
	return f.playlist, f.contentErr
}

func (f *fakeCMS) FetchDisplayConfig(ctx context.Context) (display.Patch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.patch, f.configErr
}

func (f *fakeCMS) FetchWidgets(ctx context.Context) ([]widget.Definition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.widgetCalls++
	return f.widgets, f.widgetsErr
}

func (f *fakeCMS) FetchSignal(ctx context.Context) (signal.Remote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remote, f.signalErr
}

func (f *fakeCMS) PostStatus(ctx context.Context, status cms.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return f.statusErr
}

func (f *fakeCMS) setRemote(r signal.Remote, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote = r
	f.signalErr = err
}

func (f *fakeCMS) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contentCalls
}

// fakePlayer records engine inputs.
type fakePlayer struct {
	mu          sync.Mutex
	reloads     [][]content.Item
	transitions []display.Config
	navigations []int
}

func (p *fakePlayer) Reload(items []content.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reloads = append(p.reloads, items)
}

func (p *fakePlayer) SetTransition(cfg display.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitions = append(p.transitions, cfg)
}

func (p *fakePlayer) Navigate(direction int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, direction)
}

type fakeWidgets struct {
	updates [][]widget.Definition
}

func (w *fakeWidgets) Update(defs []widget.Definition) {
	w.updates = append(w.updates, defs)
}

type fakeObserver struct {
	results  []Result
	displays []display.Config
}

func (o *fakeObserver) ContentFetched(r Result) {
	o.results = append(o.results, r)
}

func (o *fakeObserver) DisplayChanged(cfg display.Config) {
	o.displays = append(o.displays, cfg)
}

type countingRefresher struct {
	mu    sync.Mutex
	count int
}

func (r *countingRefresher) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

func (r *countingRefresher) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func fetchErr(msg string) error { return errors.Mark(errors.New(msg), cms.ErrFetch) }

func samplePlaylist() playlist.Playlist {
	return playlist.Playlist{
		ID:   "1",
		Name: "Lobby",
		Items: []content.Item{
			{ID: "a", Type: content.TypeImage, Source: "/a.png", Duration: 5 * time.Second},
			{ID: "b", Type: content.TypeVideo, Source: "/b.mp4"},
		},
	}
}

func TestContentPoller_Success(t *testing.T) {
	src := &fakeCMS{
		playlist: samplePlaylist(),
		patch:    display.Patch{Effect: strPtr("slide"), TransitionMs: intPtr(800)},
		widgets:  []widget.Definition{{ID: "1", Kind: widget.KindClock, Enabled: true}},
	}
	player := &fakePlayer{}
	widgets := &fakeWidgets{}
	obs := &fakeObserver{}

	p := NewContentPoller(ContentConfig{Source: src, Player: player, Widgets: widgets, Observer: obs})
	assert.Equal(t, StatusLoading, p.Last().Status)

	p.PollOnce(context.Background())

	require.Len(t, player.reloads, 1)
	assert.Equal(t, []string{"a", "b"}, content.IDs(player.reloads[0]))
	require.Len(t, obs.results, 1)
	assert.Equal(t, StatusOK, obs.results[0].Status)
	assert.Equal(t, "Lobby", p.Last().Playlist.Name)

	require.Len(t, player.transitions, 1)
	assert.Equal(t, display.EffectSlide, player.transitions[0].Effect)
	assert.Equal(t, 800*time.Millisecond, player.transitions[0].TransitionDuration)
	assert.Equal(t, player.transitions[0], p.Display())
	assert.Len(t, obs.displays, 1)

	require.Len(t, widgets.updates, 1)
	assert.Len(t, widgets.updates[0], 1)
}

func TestContentPoller_UnchangedDisplayNotPushed(t *testing.T) {
	src := &fakeCMS{playlist: samplePlaylist(), patch: display.Patch{Rotation: intPtr(90)}}
	player := &fakePlayer{}

	p := NewContentPoller(ContentConfig{Source: src, Player: player})
	p.PollOnce(context.Background())
	p.PollOnce(context.Background())

	assert.Len(t, player.reloads, 2, "content is always handed to the engine")
	assert.Len(t, player.transitions, 1, "display pushed only on change")
	assert.Equal(t, 90, p.Display().Rotation)
}

func TestContentPoller_Empty(t *testing.T) {
	src := &fakeCMS{contentErr: cms.ErrEmptyContent}
	player := &fakePlayer{}
	obs := &fakeObserver{}

	p := NewContentPoller(ContentConfig{Source: src, Player: player, Observer: obs})
	p.PollOnce(context.Background())

	require.Len(t, player.reloads, 1)
	assert.Empty(t, player.reloads[0])
	require.Len(t, obs.results, 1)
	assert.Equal(t, StatusEmpty, obs.results[0].Status)
	assert.True(t, errors.Is(obs.results[0].Err, cms.ErrEmptyContent))
}

func TestContentPoller_FetchErrorKeepsState(t *testing.T) {
	src := &fakeCMS{playlist: samplePlaylist(), widgets: []widget.Definition{{ID: "1", Kind: widget.KindText}}}
	player := &fakePlayer{}
	widgets := &fakeWidgets{}
	obs := &fakeObserver{}

	p := NewContentPoller(ContentConfig{Source: src, Player: player, Widgets: widgets, Observer: obs})
	p.PollOnce(context.Background())

	src.contentErr = fetchErr("connection refused")
	src.configErr = fetchErr("connection refused")
	src.widgetsErr = fetchErr("connection refused")
	p.PollOnce(context.Background())

	assert.Len(t, player.reloads, 1, "engine untouched on failure")
	assert.Len(t, widgets.updates, 1, "previous widgets kept")
	require.Len(t, obs.results, 2)
	assert.Equal(t, StatusError, obs.results[1].Status)
	assert.True(t, errors.Is(obs.results[1].Err, cms.ErrFetch))
	assert.Equal(t, "Lobby", p.Last().Playlist.Name, "last known playlist retained")
}

func TestContentPoller_IndependentFetches(t *testing.T) {
	src := &fakeCMS{
		contentErr: fetchErr("timeout"),
		patch:      display.Patch{Effect: strPtr("none")},
		widgets:    []widget.Definition{{ID: "1", Kind: widget.KindClock}},
	}
	player := &fakePlayer{}
	widgets := &fakeWidgets{}

	p := NewContentPoller(ContentConfig{Source: src, Player: player, Widgets: widgets})
	p.PollOnce(context.Background())

	assert.Empty(t, player.reloads)
	assert.Len(t, player.transitions, 1)
	assert.Len(t, widgets.updates, 1)
}

func TestContentPoller_RunAndRefresh(t *testing.T) {
	src := &fakeCMS{playlist: samplePlaylist()}
	player := &fakePlayer{}

	p := NewContentPoller(ContentConfig{Source: src, Player: player, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return src.calls() == 1 }, time.Second, 5*time.Millisecond, "startup fetch")

	p.Refresh()
	assert.Eventually(t, func() bool { return src.calls() == 2 }, time.Second, 5*time.Millisecond, "refresh fetch")

	cancel()
	<-done
}

func TestCommandPoller_Dedup(t *testing.T) {
	src := &fakeCMS{}
	player := &fakePlayer{}
	refresher := &countingRefresher{}
	p := NewCommandPoller(CommandConfig{Source: src, Navigator: player, Refresher: refresher})
	ctx := context.Background()

	src.setRemote(signal.Remote{Command: signal.Command{Kind: signal.CommandNext, IssuedAt: "t1"}}, nil)
	p.PollOnce(ctx)
	p.PollOnce(ctx)
	assert.Equal(t, []int{1}, player.navigations, "same token dispatched once")

	src.setRemote(signal.Remote{Command: signal.Command{Kind: signal.CommandPrev, IssuedAt: "t2"}}, nil)
	p.PollOnce(ctx)
	assert.Equal(t, []int{1, -1}, player.navigations)

	src.setRemote(signal.Remote{Command: signal.Command{Kind: signal.CommandNext}}, nil)
	p.PollOnce(ctx)
	assert.Len(t, player.navigations, 2, "missing token is ignored")

	src.setRemote(signal.Remote{Command: signal.Command{Kind: signal.CommandNone, IssuedAt: "t3"}}, nil)
	p.PollOnce(ctx)
	assert.Len(t, player.navigations, 2, "none is ignored")
	_, cmdToken := p.LastSeen()
	assert.Equal(t, "t2", cmdToken)
}

func TestCommandPoller_RefreshToken(t *testing.T) {
	src := &fakeCMS{}
	player := &fakePlayer{}
	refresher := &countingRefresher{}
	p := NewCommandPoller(CommandConfig{Source: src, Navigator: player, Refresher: refresher})
	ctx := context.Background()

	src.setRemote(signal.Remote{RefreshToken: "a"}, nil)
	p.PollOnce(ctx)
	require.Equal(t, 1, refresher.Count(), "first observation acts")

	src.setRemote(signal.Remote{RefreshToken: "b"}, nil)
	p.PollOnce(ctx)
	assert.Equal(t, 2, refresher.Count(), "a to b triggers exactly one refresh")

	p.PollOnce(ctx)
	assert.Equal(t, 2, refresher.Count(), "b again triggers none")

	src.setRemote(signal.Remote{}, nil)
	p.PollOnce(ctx)
	assert.Equal(t, 2, refresher.Count(), "absent token is ignored")
	refreshToken, _ := p.LastSeen()
	assert.Equal(t, "b", refreshToken)
}

func TestCommandPoller_IndependentChannels(t *testing.T) {
	src := &fakeCMS{}
	player := &fakePlayer{}
	refresher := &countingRefresher{}
	p := NewCommandPoller(CommandConfig{Source: src, Navigator: player, Refresher: refresher})

	src.setRemote(signal.Remote{
		RefreshToken: "r1",
		Command:      signal.Command{Kind: signal.CommandNext, IssuedAt: "c1"},
	}, nil)
	p.PollOnce(context.Background())

	assert.Equal(t, 1, refresher.Count())
	assert.Equal(t, []int{1}, player.navigations)
}

func TestCommandPoller_RefreshCommand(t *testing.T) {
	src := &fakeCMS{}
	refresher := &countingRefresher{}
	p := NewCommandPoller(CommandConfig{Source: src, Navigator: &fakePlayer{}, Refresher: refresher})

	src.setRemote(signal.Remote{Command: signal.Command{Kind: signal.CommandRefresh, IssuedAt: "c1"}}, nil)
	p.PollOnce(context.Background())
	p.PollOnce(context.Background())

	assert.Equal(t, 1, refresher.Count())
}

func TestCommandPoller_FailureKeepsTokens(t *testing.T) {
	src := &fakeCMS{}
	player := &fakePlayer{}
	refresher := &countingRefresher{}
	p := NewCommandPoller(CommandConfig{Source: src, Navigator: player, Refresher: refresher})
	ctx := context.Background()

	remote := signal.Remote{RefreshToken: "r1", Command: signal.Command{Kind: signal.CommandNext, IssuedAt: "c1"}}
	src.setRemote(remote, nil)
	p.PollOnce(ctx)

	src.setRemote(signal.Remote{}, fetchErr("timeout"))
	p.PollOnce(ctx)
	refreshToken, cmdToken := p.LastSeen()
	assert.Equal(t, "r1", refreshToken)
	assert.Equal(t, "c1", cmdToken)

	src.setRemote(remote, nil)
	p.PollOnce(ctx)
	assert.Equal(t, 1, refresher.Count(), "stale signal not replayed after recovery")
	assert.Equal(t, []int{1}, player.navigations)
}

func TestCommandPoller_PollNow(t *testing.T) {
	src := &fakeCMS{}
	player := &fakePlayer{}
	p := NewCommandPoller(CommandConfig{Source: src, Navigator: player, Refresher: &countingRefresher{}, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	src.setRemote(signal.Remote{Command: signal.Command{Kind: signal.CommandNext, IssuedAt: "c1"}}, nil)
	p.PollNow()

	assert.Eventually(t, func() bool {
		player.mu.Lock()
		defer player.mu.Unlock()
		return len(player.navigations) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStatusReporter(t *testing.T) {
	src := &fakeCMS{}
	r := NewStatusReporter(StatusConfig{
		Sink: src,
		Collect: func() cms.Status {
			return cms.Status{PlayerID: "p1", State: "displaying", Index: 1, ItemCount: 2, Status: "ok"}
		},
	})

	require.NoError(t, r.ReportOnce(context.Background()))
	require.Len(t, src.statuses, 1)
	assert.Equal(t, "displaying", src.statuses[0].State)
	assert.False(t, src.statuses[0].Timestamp.IsZero())

	src.statusErr = fetchErr("down")
	assert.Error(t, r.ReportOnce(context.Background()))
}

func TestStatusReporter_Disabled(t *testing.T) {
	r := NewStatusReporter(StatusConfig{Sink: &fakeCMS{}, Collect: func() cms.Status { return cms.Status{} }})

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled reporter should return immediately")
	}
}
