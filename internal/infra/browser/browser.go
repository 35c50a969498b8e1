// Package browser launches a Chromium window in kiosk mode pointed at the
// player's own page.
package browser

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	zlog "github.com/rs/zerolog/log"
)

// Config holds launcher configuration.
type Config struct {
	URL      string // Kiosk page URL
	Bin      string // Browser binary; downloaded or auto-detected when empty
	Windowed bool   // Run in a normal window instead of kiosk mode
}

// Kiosk is a running browser showing the kiosk page.
type Kiosk struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

func newLauncher(cfg Config) *launcher.Launcher {
	l := launcher.New().
		Headless(false).
		Set("autoplay-policy", "no-user-gesture-required").
		Set("noerrdialogs").
		Set("disable-infobars").
		Delete("enable-automation")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if !cfg.Windowed {
		l = l.Set("kiosk").Set("start-fullscreen")
	}
	return l
}

// Launch starts the browser and opens cfg.URL.
func Launch(ctx context.Context, cfg Config) (*Kiosk, error) {
	if cfg.URL == "" {
		return nil, errors.New("kiosk page URL is required")
	}

	l := newLauncher(cfg).Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "failed to launch browser")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, errors.Wrap(err, "failed to connect to browser")
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: cfg.URL})
	if err != nil {
		_ = browser.Close()
		l.Cleanup()
		return nil, errors.Wrapf(err, "failed to open %s", cfg.URL)
	}

	zlog.Info().Msgf("browser: kiosk launched: url=%s, windowed=%t", cfg.URL, cfg.Windowed)
	return &Kiosk{launcher: l, browser: browser, page: page}, nil
}

// SetFullscreen switches the browser window state.
func (k *Kiosk) SetFullscreen(on bool) error {
	state := proto.BrowserWindowStateNormal
	if on {
		state = proto.BrowserWindowStateFullscreen
	}
	if err := k.page.SetWindow(&proto.BrowserBounds{WindowState: state}); err != nil {
		return errors.Wrap(err, "failed to set window state")
	}
	return nil
}

// Reload reloads the kiosk page.
func (k *Kiosk) Reload() error {
	if err := k.page.Reload(); err != nil {
		return errors.Wrap(err, "failed to reload kiosk page")
	}
	return nil
}

// Close closes the browser and removes its temporary profile.
func (k *Kiosk) Close() error {
	err := k.browser.Close()
	k.launcher.Cleanup()
	if err != nil {
		return errors.Wrap(err, "failed to close browser")
	}
	zlog.Info().Msg("browser: kiosk closed")
	return nil
}
