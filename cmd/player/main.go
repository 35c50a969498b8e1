// Package main provides the player entry point.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osa030/19screen/internal/api/shell"
	"github.com/osa030/19screen/internal/app/session"
	"github.com/osa030/19screen/internal/app/widget"
	"github.com/osa030/19screen/internal/infra/browser"
	"github.com/osa030/19screen/internal/infra/config"
	"github.com/osa030/19screen/internal/infra/logger"
	"github.com/osa030/19screen/internal/infra/metrics"
)

var (
	app        = kingpin.New("19screen-player", "19screen digital signage player")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").Envar("PLAYER_CONFIG").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-widgets command
	listWidgetsCmd = app.Command("list-widgets", "List available widget kinds and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-widgets command
	if command == listWidgetsCmd.FullCommand() {
		printWidgets()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		logCloser.Close()
		os.Exit(1)
	}
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	// Validate local widget settings
	if err := validateWidgetConfig(cfg); err != nil {
		return errors.Wrap(err, "invalid widget config")
	}

	m := metrics.New()

	// Create session manager
	sessionMgr, err := session.NewManager(cfg, session.Deps{Metrics: m})
	if err != nil {
		return errors.Wrap(err, "failed to create session manager")
	}

	shellHandler := shell.NewHandler(sessionMgr, shell.Config{
		Token:   cfg.Shell.Token,
		Metrics: m,
	})

	// Bind first so that a busy port fails the startup
	listener, err := net.Listen("tcp", cfg.Shell.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", cfg.Shell.Addr)
	}

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Handler:           h2c.NewHandler(shellHandler.Routes(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to capture server errors
	serverErrCh := make(chan error, 1)

	// Start server
	go func() {
		zlog.Info().Msgf("Starting shell server: addr=%s", listener.Addr())
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Start session
	ctx := context.Background()
	if err := sessionMgr.Start(ctx); err != nil {
		_ = server.Close()
		return errors.Wrap(err, "failed to start session")
	}

	// Launch the kiosk browser if configured
	var kioskBrowser *browser.Kiosk
	if cfg.Kiosk.LaunchBrowser {
		kioskBrowser, err = browser.Launch(ctx, browser.Config{
			URL:      pageURL(listener.Addr(), cfg.Shell.Token),
			Bin:      cfg.Kiosk.BrowserBin,
			Windowed: cfg.Kiosk.Windowed,
		})
		if err != nil {
			zlog.Error().Err(err).Msg("Failed to launch kiosk browser, continuing without it")
		} else {
			sessionMgr.AttachWindow(kioskBrowser)
		}
	}

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Player.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal, session end, or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-sessionMgr.Done():
		zlog.Info().Msg("Session ended, shutting down...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if kioskBrowser != nil {
		if err := kioskBrowser.Close(); err != nil {
			zlog.Error().Msgf("Failed to close kiosk browser: %v", err)
		}
	}

	// Close session manager first to stop timers and pollers
	sessionMgr.Close()
	shellHandler.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Player stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Player.Hooks.OnStopped, "on_stopped")

	return runErr
}

// pageURL returns the kiosk page URL for a listen address. The token is passed
// on to the page so it can open the guarded socket.
func pageURL(addr net.Addr, token string) string {
	host := "127.0.0.1"
	port := "80"
	if tcp, ok := addr.(*net.TCPAddr); ok {
		if tcp.IP != nil && !tcp.IP.IsUnspecified() {
			host = tcp.IP.String()
		}
		port = fmt.Sprint(tcp.Port)
	}
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, port), Path: "/"}
	if token != "" {
		u.RawQuery = url.Values{shell.TokenQueryParam: {token}}.Encode()
	}
	return u.String()
}

// printWidgets prints available widget kinds.
func printWidgets() {
	registry := widget.GetRegistered()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available Widgets:")
	for _, name := range names {
		w := registry[name](widget.Deps{})
		fmt.Printf("  %-10s - %s [refresh: %s]\n", w.Name(), w.Description(), refreshLabel(w.Interval()))
	}
}

func refreshLabel(d time.Duration) string {
	if d <= 0 {
		return "static"
	}
	return d.String()
}

// validateWidgetConfig validates local widget settings.
func validateWidgetConfig(cfg *config.Config) error {
	registry := widget.GetRegistered()

	for kind, widgetCfg := range cfg.Widgets {
		if widgetCfg.Disabled {
			continue
		}

		factory, exists := registry[kind]
		if !exists {
			return errors.Newf("unknown widget kind %q", kind)
		}

		w := factory(widget.Deps{})
		if err := w.ValidateConfig(widgetCfg.Settings); err != nil {
			return errors.Wrapf(err, "widget %s", kind)
		}
	}

	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
