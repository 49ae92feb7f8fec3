package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/lorrc/ticket-monitor/internal/adapters/primary/http/middleware"
	apperrors "github.com/lorrc/ticket-monitor/internal/core/errors"
	"github.com/lorrc/ticket-monitor/internal/core/ports"
)

const defaultStopTimeout = 10 * time.Second

// StatusResponse is the body of GET /status
type StatusResponse struct {
	IsMonitoring    bool   `json:"is_monitoring"`
	LastCheck       string `json:"last_check"`
	PollingInterval int    `json:"polling_interval"`
}

// ActionResponse is the body of a successful start or stop
type ActionResponse struct {
	Status string `json:"status"`
}

// MonitorHandler exposes the poll loop lifecycle over HTTP
type MonitorHandler struct {
	monitor      ports.MonitorService
	errorHandler *ErrorHandler
	stopTimeout  time.Duration
	logger       *slog.Logger
}

// NewMonitorHandler creates a new monitor handler. stopTimeout bounds how long
// POST /stop waits for an in-flight cycle to wind down.
func NewMonitorHandler(
	monitor ports.MonitorService,
	errorHandler *ErrorHandler,
	stopTimeout time.Duration,
	logger *slog.Logger,
) *MonitorHandler {
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}
	return &MonitorHandler{
		monitor:      monitor,
		errorHandler: errorHandler,
		stopTimeout:  stopTimeout,
		logger:       logger,
	}
}

// RegisterStatusRoute registers the read-only status route
func (h *MonitorHandler) RegisterStatusRoute(r chi.Router) {
	r.Get("/status", h.HandleStatus)
}

// RegisterControlRoutes registers the routes that change loop state
func (h *MonitorHandler) RegisterControlRoutes(r chi.Router) {
	r.Post("/start", h.HandleStart)
	r.Post("/stop", h.HandleStop)
}

// HandleStatus handles GET /status
func (h *MonitorHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status := h.monitor.Status()

	WriteJSON(w, http.StatusOK, StatusResponse{
		IsMonitoring:    status.IsMonitoring,
		LastCheck:       status.LastCheck.UTC().Format(time.RFC3339),
		PollingInterval: int(status.PollingInterval / time.Second),
	})
}

// HandleStart handles POST /start
func (h *MonitorHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.Start(r.Context()); err != nil {
		mw.NoteAction(r.Context(), "start", failureOutcome(err))
		h.errorHandler.Handle(w, r, err)
		return
	}

	mw.NoteAction(r.Context(), "start", "started")
	WriteJSON(w, http.StatusOK, ActionResponse{Status: "Monitoring started"})
}

// HandleStop handles POST /stop
func (h *MonitorHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	// A dropped client connection must not abandon the stop halfway.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.stopTimeout)
	defer cancel()

	if err := h.monitor.Stop(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			h.logger.WarnContext(r.Context(), "poll loop still winding down after stop timeout",
				"timeout", h.stopTimeout.String(),
			)
		}
		mw.NoteAction(r.Context(), "stop", failureOutcome(err))
		h.errorHandler.Handle(w, r, err)
		return
	}

	mw.NoteAction(r.Context(), "stop", "stopped")
	WriteJSON(w, http.StatusOK, ActionResponse{Status: "Monitoring stopped"})
}

// failureOutcome separates requests that found the loop already in the asked
// state from real failures.
func failureOutcome(err error) string {
	if errors.Is(err, apperrors.ErrAlreadyRunning) || errors.Is(err, apperrors.ErrNotRunning) {
		return "rejected"
	}
	return "failed"
}
