// Package shell provides the HTTP and WebSocket surface of the kiosk page.
package shell

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/app/notification"
	"github.com/osa030/19screen/internal/app/session"
	"github.com/osa030/19screen/internal/infra/metrics"
)

//go:embed web
var webFS embed.FS

// Controller is the part of the session the shell drives.
type Controller interface {
	Subscribe(stream notification.Stream) string
	Unsubscribe(id string)
	HandlePageMessage(msg session.PageMessage)
	Control(action string) error
	GetStatus() *session.Status
}

// Config holds shell handler configuration.
type Config struct {
	Token   string // Guards the control endpoints when set
	Metrics *metrics.Metrics
}

// ControlResponse is the reply of a control request.
type ControlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handler serves the kiosk page, its WebSocket and the local control API.
type Handler struct {
	ctrl    Controller
	config  Config
	hub     *hub
	metrics *metrics.Metrics
}

// NewHandler creates a new shell handler.
func NewHandler(ctrl Controller, cfg Config) *Handler {
	return &Handler{
		ctrl:    ctrl,
		config:  cfg,
		hub:     newHub(ctrl),
		metrics: cfg.Metrics,
	}
}

// Routes returns the shell router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.metrics.Middleware)

	static, err := fs.Sub(webFS, "web")
	if err != nil {
		// The embedded tree is fixed at build time
		panic(err)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, static, "index.html")
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
	// Pages send key presses over the socket, so it is guarded like the control API
	r.With(requireToken(h.config.Token)).Get("/ws", h.ServeWs)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.With(requireToken(h.config.Token)).Post("/control/{action}", h.Control)
	})

	return r
}

// Close disconnects every page.
func (h *Handler) Close() {
	h.hub.closeAll()
}

// GetState returns the current player status.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.GetStatus())
}

// Control applies a control action.
func (h *Handler) Control(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")

	err := h.ctrl.Control(action)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ControlResponse{Success: true, Message: "ok"})
	case errors.Is(err, session.ErrUnknownAction):
		writeJSON(w, http.StatusBadRequest, ControlResponse{Success: false, Message: err.Error()})
	case errors.Is(err, session.ErrSessionNotRunning):
		writeJSON(w, http.StatusConflict, ControlResponse{Success: false, Message: err.Error()})
	default:
		zlog.Error().Err(err).Msgf("shell: control failed: action=%s", action)
		writeJSON(w, http.StatusInternalServerError, ControlResponse{Success: false, Message: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Debug().Err(err).Msg("shell: failed to write response")
	}
}
