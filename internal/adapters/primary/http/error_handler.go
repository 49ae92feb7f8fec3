package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/lorrc/ticket-monitor/internal/adapters/primary/http/middleware"
	apperrors "github.com/lorrc/ticket-monitor/internal/core/errors"
)

// ErrorResponse is the standard JSON error response format
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error and writes the appropriate HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	// Check for AppError first (our custom error type)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.logError(r, appErr.StatusCode, appErr.Code, err)
		mw.NoteErrorCode(r.Context(), appErr.Code)
		h.writeErrorResponse(w, appErr.StatusCode, ErrorResponse{
			Detail: appErr.Message,
			Code:   appErr.Code,
		})
		return
	}

	// Map known domain errors to HTTP responses
	statusCode, response := h.mapDomainError(err)
	h.logError(r, statusCode, response.Code, err)
	mw.NoteErrorCode(r.Context(), response.Code)
	h.writeErrorResponse(w, statusCode, response)
}

// mapDomainError converts domain errors to HTTP status codes and responses
func (h *ErrorHandler) mapDomainError(err error) (int, ErrorResponse) {
	switch {
	// Lifecycle
	case errors.Is(err, apperrors.ErrAlreadyRunning):
		return http.StatusBadRequest, ErrorResponse{
			Detail: "Monitoring is already running",
			Code:   "ALREADY_RUNNING",
		}
	case errors.Is(err, apperrors.ErrNotRunning):
		return http.StatusBadRequest, ErrorResponse{
			Detail: "Monitoring is not running",
			Code:   "NOT_RUNNING",
		}

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{
			Detail: "Timed out waiting for the poll loop to finish",
			Code:   "TIMEOUT",
		}

	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{
			Detail: "Authentication required",
			Code:   "UNAUTHORIZED",
		}

	// Rate limiting
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorResponse{
			Detail: "Too many requests. Please try again later.",
			Code:   "RATE_LIMITED",
		}

	// Default to internal server error
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Detail: "An unexpected error occurred",
			Code:   "INTERNAL_ERROR",
		}
	}
}

// logError logs the error with appropriate context
func (h *ErrorHandler) logError(r *http.Request, statusCode int, code string, err error) {
	logAttrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", statusCode,
		"code", code,
		"error", err.Error(),
	}

	ctx := r.Context()
	switch {
	case statusCode >= 500:
		h.logger.ErrorContext(ctx, "server error", logAttrs...)
	case code == "ALREADY_RUNNING" || code == "NOT_RUNNING":
		// asking for the state the loop is already in is routine
		h.logger.InfoContext(ctx, "client error", logAttrs...)
	default:
		h.logger.WarnContext(ctx, "client error", logAttrs...)
	}
}

// writeErrorResponse writes a JSON error response
func (h *ErrorHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
