package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/ticket-monitor/internal/auth"
	"github.com/lorrc/ticket-monitor/internal/core/domain"
	apperrors "github.com/lorrc/ticket-monitor/internal/core/errors"
	"github.com/lorrc/ticket-monitor/internal/core/mocks"
	"github.com/lorrc/ticket-monitor/internal/core/ports"
	"github.com/lorrc/ticket-monitor/internal/core/rules"
	"github.com/lorrc/ticket-monitor/internal/core/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(monitor ports.MonitorService, tm *auth.TokenManager) chi.Router {
	logger := testLogger()
	return NewRouter(RouterConfig{
		Monitor:        NewMonitorHandler(monitor, NewErrorHandler(logger), time.Second, logger),
		TokenManager:   tm,
		AllowedOrigins: []string{"*"},
		Logger:         logger,
	})
}

func doRequest(t *testing.T, h stdhttp.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestMonitorHandler_Status(t *testing.T) {
	monitor := mocks.NewMockMonitorService()
	lastCheck := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	monitor.On("Status").Return(domain.MonitorStatus{
		IsMonitoring:    true,
		LastCheck:       lastCheck,
		PollingInterval: 300 * time.Second,
	})

	rec := doRequest(t, newTestRouter(monitor, nil), stdhttp.MethodGet, "/status", nil)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["is_monitoring"])
	assert.Equal(t, "2024-03-01T12:30:00Z", body["last_check"])
	assert.Equal(t, float64(300), body["polling_interval"])
}

func TestMonitorHandler_Start(t *testing.T) {
	t.Run("starts the loop", func(t *testing.T) {
		monitor := mocks.NewMockMonitorService()
		monitor.On("Start", mock.Anything).Return(nil).Once()

		rec := doRequest(t, newTestRouter(monitor, nil), stdhttp.MethodPost, "/start", nil)

		require.Equal(t, stdhttp.StatusOK, rec.Code)
		assert.Equal(t, ActionResponse{Status: "Monitoring started"}, decodeBody[ActionResponse](t, rec))
		monitor.AssertExpectations(t)
	})

	t.Run("already running", func(t *testing.T) {
		monitor := mocks.NewMockMonitorService()
		monitor.On("Start", mock.Anything).Return(apperrors.ErrAlreadyRunning)

		rec := doRequest(t, newTestRouter(monitor, nil), stdhttp.MethodPost, "/start", nil)

		require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
		assert.Equal(t, ErrorResponse{Detail: "Monitoring is already running", Code: "ALREADY_RUNNING"},
			decodeBody[ErrorResponse](t, rec))
	})

	t.Run("unexpected failure", func(t *testing.T) {
		monitor := mocks.NewMockMonitorService()
		monitor.On("Start", mock.Anything).Return(errors.New("boom"))

		rec := doRequest(t, newTestRouter(monitor, nil), stdhttp.MethodPost, "/start", nil)

		require.Equal(t, stdhttp.StatusInternalServerError, rec.Code)
		assert.Equal(t, "INTERNAL_ERROR", decodeBody[ErrorResponse](t, rec).Code)
	})
}

func TestMonitorHandler_Stop(t *testing.T) {
	t.Run("stops the loop", func(t *testing.T) {
		monitor := mocks.NewMockMonitorService()
		monitor.On("Stop", mock.Anything).Return(nil).Once()

		rec := doRequest(t, newTestRouter(monitor, nil), stdhttp.MethodPost, "/stop", nil)

		require.Equal(t, stdhttp.StatusOK, rec.Code)
		assert.Equal(t, ActionResponse{Status: "Monitoring stopped"}, decodeBody[ActionResponse](t, rec))
		monitor.AssertExpectations(t)
	})

	t.Run("not running", func(t *testing.T) {
		monitor := mocks.NewMockMonitorService()
		monitor.On("Stop", mock.Anything).Return(apperrors.ErrNotRunning)

		rec := doRequest(t, newTestRouter(monitor, nil), stdhttp.MethodPost, "/stop", nil)

		require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
		assert.Equal(t, ErrorResponse{Detail: "Monitoring is not running", Code: "NOT_RUNNING"},
			decodeBody[ErrorResponse](t, rec))
	})

	t.Run("stop context carries a deadline", func(t *testing.T) {
		monitor := mocks.NewMockMonitorService()
		monitor.On("Stop", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		})).Return(context.DeadlineExceeded)

		rec := doRequest(t, newTestRouter(monitor, nil), stdhttp.MethodPost, "/stop", nil)

		require.Equal(t, stdhttp.StatusGatewayTimeout, rec.Code)
		assert.Equal(t, "TIMEOUT", decodeBody[ErrorResponse](t, rec).Code)
	})
}

// controlActionLines returns the "control action" records written to buf.
func controlActionLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		if line["msg"] == "control action" {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestRouter_ControlActionLog(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		method    string
		err       error
		wantLevel string
		outcome   string
		code      string
	}{
		{"start ok", "/start", "Start", nil, "INFO", "started", ""},
		{"start while running", "/start", "Start", apperrors.ErrAlreadyRunning, "INFO", "rejected", "ALREADY_RUNNING"},
		{"stop while stopped", "/stop", "Stop", apperrors.ErrNotRunning, "INFO", "rejected", "NOT_RUNNING"},
		{"stop timeout", "/stop", "Stop", context.DeadlineExceeded, "ERROR", "failed", "TIMEOUT"},
		{"start failure", "/start", "Start", errors.New("boom"), "ERROR", "failed", "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			monitor := mocks.NewMockMonitorService()
			monitor.On(tt.method, mock.Anything).Return(tt.err)

			router := NewRouter(RouterConfig{
				Monitor:        NewMonitorHandler(monitor, NewErrorHandler(logger), time.Second, logger),
				AllowedOrigins: []string{"*"},
				Logger:         logger,
			})
			doRequest(t, router, stdhttp.MethodPost, tt.path, nil)

			lines := controlActionLines(t, &buf)
			require.Len(t, lines, 1)
			line := lines[0]
			assert.Equal(t, tt.wantLevel, line["level"])
			assert.Equal(t, tt.path[1:], line["action"])
			assert.Equal(t, tt.outcome, line["outcome"])
			if tt.code == "" {
				assert.NotContains(t, line, "error_code")
			} else {
				assert.Equal(t, tt.code, line["error_code"])
			}
		})
	}
}

func TestMonitorHandler_WrongMethod(t *testing.T) {
	monitor := mocks.NewMockMonitorService()
	router := newTestRouter(monitor, nil)

	assert.Equal(t, stdhttp.StatusMethodNotAllowed, doRequest(t, router, stdhttp.MethodGet, "/start", nil).Code)
	assert.Equal(t, stdhttp.StatusMethodNotAllowed, doRequest(t, router, stdhttp.MethodPost, "/status", nil).Code)
	monitor.AssertNotCalled(t, "Start", mock.Anything)
}

func TestRouter_ControlAuth(t *testing.T) {
	tm := auth.NewTokenManager("router-test-secret", time.Hour)
	token, err := tm.GenerateToken("ops")
	require.NoError(t, err)

	monitor := mocks.NewMockMonitorService()
	monitor.On("Status").Return(domain.MonitorStatus{PollingInterval: time.Minute, LastCheck: time.Now()})
	monitor.On("Start", mock.Anything).Return(nil)
	router := newTestRouter(monitor, tm)

	t.Run("status stays public", func(t *testing.T) {
		rec := doRequest(t, router, stdhttp.MethodGet, "/status", nil)
		assert.Equal(t, stdhttp.StatusOK, rec.Code)
	})

	t.Run("start requires a token", func(t *testing.T) {
		rec := doRequest(t, router, stdhttp.MethodPost, "/start", nil)

		require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeBody[ErrorResponse](t, rec).Code)
		monitor.AssertNotCalled(t, "Start", mock.Anything)
	})

	t.Run("start with a token", func(t *testing.T) {
		rec := doRequest(t, router, stdhttp.MethodPost, "/start", map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, stdhttp.StatusOK, rec.Code)
	})
}

func TestRouter_CORS(t *testing.T) {
	monitor := mocks.NewMockMonitorService()
	router := newTestRouter(monitor, nil)

	rec := doRequest(t, router, stdhttp.MethodOptions, "/start", map[string]string{
		"Origin":                        "http://dashboard.local",
		"Access-Control-Request-Method": stdhttp.MethodPost,
	})

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), stdhttp.MethodPost)
	monitor.AssertNotCalled(t, "Start", mock.Anything)
}

func TestMonitorLifecycle_OverHTTP(t *testing.T) {
	provider := mocks.NewMockTicketProvider()
	provider.On("FetchTickets", mock.Anything).Return([]domain.Ticket{}, nil)

	poller := services.NewPoller(provider, rules.NewEvaluator(), nil, time.Hour, testLogger())
	monitor := services.NewMonitorService(poller, poller.Interval(), nil, testLogger())
	t.Cleanup(func() { _ = monitor.Shutdown(context.Background()) })
	router := newTestRouter(monitor, nil)

	status := decodeBody[StatusResponse](t, doRequest(t, router, stdhttp.MethodGet, "/status", nil))
	assert.False(t, status.IsMonitoring)
	assert.Equal(t, 3600, status.PollingInterval)

	require.Equal(t, stdhttp.StatusOK, doRequest(t, router, stdhttp.MethodPost, "/start", nil).Code)
	status = decodeBody[StatusResponse](t, doRequest(t, router, stdhttp.MethodGet, "/status", nil))
	assert.True(t, status.IsMonitoring)

	rec := doRequest(t, router, stdhttp.MethodPost, "/start", nil)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_RUNNING", decodeBody[ErrorResponse](t, rec).Code)

	require.Equal(t, stdhttp.StatusOK, doRequest(t, router, stdhttp.MethodPost, "/stop", nil).Code)
	status = decodeBody[StatusResponse](t, doRequest(t, router, stdhttp.MethodGet, "/status", nil))
	assert.False(t, status.IsMonitoring)

	rec = doRequest(t, router, stdhttp.MethodPost, "/stop", nil)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "NOT_RUNNING", decodeBody[ErrorResponse](t, rec).Code)
}
