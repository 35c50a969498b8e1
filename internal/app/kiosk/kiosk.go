// Package kiosk holds the presentation shell state: fullscreen and the
// idle-hidden cursor and controls.
package kiosk

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/domain/signal"
	"github.com/osa030/19screen/internal/infra/clock"
)

const defaultIdleTimeout = 3 * time.Second

// State is the visible shell state.
type State struct {
	Fullscreen      bool `json:"fullscreen"`
	ControlsVisible bool `json:"controls_visible"`
	CursorVisible   bool `json:"cursor_visible"`
}

// Action is the outcome of a key press.
type Action int

const (
	ActionNone Action = iota
	ActionNext
	ActionPrev
	ActionToggleFullscreen
)

func (a Action) String() string {
	switch a {
	case ActionNext:
		return "next"
	case ActionPrev:
		return "prev"
	case ActionToggleFullscreen:
		return "fullscreen"
	default:
		return "none"
	}
}

// Command returns the remote command equivalent of the action.
func (a Action) Command() signal.CommandKind {
	switch a {
	case ActionNext:
		return signal.CommandNext
	case ActionPrev:
		return signal.CommandPrev
	default:
		return signal.CommandNone
	}
}

// MapKey maps a keyboard key name to an action.
func MapKey(key string) Action {
	switch key {
	case "ArrowRight", " ":
		return ActionNext
	case "ArrowLeft":
		return ActionPrev
	case "f", "F":
		return ActionToggleFullscreen
	default:
		return ActionNone
	}
}

// Config holds shell configuration.
type Config struct {
	Clock       clock.Clock
	IdleTimeout time.Duration
	Fullscreen  bool
	// OnChange is called after every visible change, outside the lock.
	OnChange    func(State)
}

// Shell tracks fullscreen and idle visibility.
// The cursor and the controls have independent idle timers.
type Shell struct {
	clock    clock.Clock
	idle     time.Duration
	onChange func(State)

	mu            sync.Mutex
	state         State
	cursorGen     uint64
	cursorTimer   clock.Timer
	controlsGen   uint64
	controlsTimer clock.Timer
}

// New creates a new shell. Cursor and controls start hidden.
func New(cfg Config) *Shell {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &Shell{
		clock:    clk,
		idle:     idle,
		onChange: cfg.OnChange,
		state:    State{Fullscreen: cfg.Fullscreen},
	}
}

// State returns the current state.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PointerMoved shows the cursor and the controls and restarts both idle timers.
func (s *Shell) PointerMoved() {
	s.mu.Lock()
	changed := !s.state.CursorVisible || !s.state.ControlsVisible
	s.state.CursorVisible = true
	s.state.ControlsVisible = true

	s.cursorGen++
	if s.cursorTimer != nil {
		s.cursorTimer.Stop()
	}
	cursorGen := s.cursorGen
	s.cursorTimer = s.clock.AfterFunc(s.idle, func() { s.hideCursor(cursorGen) })

	s.controlsGen++
	if s.controlsTimer != nil {
		s.controlsTimer.Stop()
	}
	controlsGen := s.controlsGen
	s.controlsTimer = s.clock.AfterFunc(s.idle, func() { s.hideControls(controlsGen) })
	state := s.state
	s.mu.Unlock()

	if changed {
		s.notify(state)
	}
}

// ToggleFullscreen flips the fullscreen state and returns the new value.
func (s *Shell) ToggleFullscreen() bool {
	s.mu.Lock()
	s.state.Fullscreen = !s.state.Fullscreen
	state := s.state
	s.mu.Unlock()

	zlog.Info().Msgf("kiosk: fullscreen=%t", state.Fullscreen)
	s.notify(state)
	return state.Fullscreen
}

// Key handles a key press. Fullscreen is toggled here; navigation is
// returned to the caller.
func (s *Shell) Key(key string) Action {
	action := MapKey(key)
	if action == ActionToggleFullscreen {
		s.ToggleFullscreen()
	}
	zlog.Debug().Msgf("kiosk: key=%q, action=%s", key, action)
	return action
}

// Close stops the idle timers.
func (s *Shell) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursorGen++
	s.controlsGen++
	if s.cursorTimer != nil {
		s.cursorTimer.Stop()
		s.cursorTimer = nil
	}
	if s.controlsTimer != nil {
		s.controlsTimer.Stop()
		s.controlsTimer = nil
	}
}

func (s *Shell) hideCursor(gen uint64) {
	s.mu.Lock()
	if gen != s.cursorGen || !s.state.CursorVisible {
		s.mu.Unlock()
		return
	}
	s.state.CursorVisible = false
	s.cursorTimer = nil
	state := s.state
	s.mu.Unlock()

	s.notify(state)
}

func (s *Shell) hideControls(gen uint64) {
	s.mu.Lock()
	if gen != s.controlsGen || !s.state.ControlsVisible {
		s.mu.Unlock()
		return
	}
	s.state.ControlsVisible = false
	s.controlsTimer = nil
	state := s.state
	s.mu.Unlock()

	s.notify(state)
}

func (s *Shell) notify(state State) {
	if s.onChange != nil {
		s.onChange(state)
	}
}
