package middleware

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/lorrc/ticket-monitor/internal/core/errors"
	"github.com/lorrc/ticket-monitor/internal/infrastructure/logging"
)

// Error codes that mean a caller asked for a lifecycle change the monitor was
// already in. They are expected traffic, not faults.
var lifecycleConflictCodes = map[string]bool{
	"ALREADY_RUNNING": true,
	"NOT_RUNNING":     true,
}

// healthCheckPaths are hit by orchestrators every few seconds
var healthCheckPaths = map[string]bool{
	"/health/live":  true,
	"/health/ready": true,
}

type noteKey struct{}

// requestNote is filled in by handlers and read back by RequestLogger.
type requestNote struct {
	mu        sync.Mutex
	action    string
	outcome   string
	errorCode string
}

// NoteAction records which control action a request performed and how it
// ended, e.g. ("start", "started"). It is a no-op outside RequestLogger.
func NoteAction(ctx context.Context, action, outcome string) {
	if n, ok := ctx.Value(noteKey{}).(*requestNote); ok {
		n.mu.Lock()
		n.action, n.outcome = action, outcome
		n.mu.Unlock()
	}
}

// NoteErrorCode records the machine-readable code of an error response.
func NoteErrorCode(ctx context.Context, code string) {
	if n, ok := ctx.Value(noteKey{}).(*requestNote); ok {
		n.mu.Lock()
		n.errorCode = code
		n.mu.Unlock()
	}
}

func (n *requestNote) attrs() []any {
	n.mu.Lock()
	defer n.mu.Unlock()

	var attrs []any
	if n.action != "" {
		attrs = append(attrs, "action", n.action, "outcome", n.outcome)
	}
	if n.errorCode != "" {
		attrs = append(attrs, "error_code", n.errorCode)
	}
	return attrs
}

func (n *requestNote) isControl() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.action != ""
}

func (n *requestNote) code() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.errorCode
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets /ws upgrade through the recorder
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response does not implement http.Hijacker")
	}
	rw.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// RequestLogger logs one line per request. Start and stop calls are logged as
// "control action" with their outcome; health checks that succeed drop to
// debug so they do not drown the poll loop's output.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			note := &requestNote{}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), noteKey{}, note)))

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", clientIP(r),
			}
			attrs = append(attrs, note.attrs()...)

			msg := "http request"
			if note.isControl() {
				msg = "control action"
			}

			ctx := r.Context()
			switch {
			case rec.status >= 500:
				logger.ErrorContext(ctx, msg, attrs...)
			case lifecycleConflictCodes[note.code()]:
				logger.InfoContext(ctx, msg, attrs...)
			case rec.status >= 400:
				logger.WarnContext(ctx, msg, attrs...)
			case healthCheckPaths[r.URL.Path]:
				logger.DebugContext(ctx, msg, attrs...)
			default:
				logger.InfoContext(ctx, msg, attrs...)
			}
		})
	}
}

// RecoveryLogger turns a handler panic into a 500 and logs the stack.
func RecoveryLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logging.LogPanic(r.Context(), logger.With("method", r.Method, "path", r.URL.Path), v)
					writeAppError(w, r, apperrors.NewInternalError(fmt.Errorf("panic: %v", v)))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the first hop of X-Forwarded-For, then X-Real-IP, then
// the connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
