package freshdesk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/ticket-monitor/internal/core/domain"
	apperrors "github.com/lorrc/ticket-monitor/internal/core/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		BaseURL: server.URL + "/api/v2",
		APIKey:  "secret-key",
		Timeout: 2 * time.Second,
	}, server.Client())
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	client := NewClient(Config{Domain: "acme.freshdesk.com"}, nil)

	assert.Equal(t, "https://acme.freshdesk.com/api/v2", client.baseURL)
	assert.Equal(t, 30*time.Second, client.timeout)
}

func TestClient_FetchTickets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v2/tickets", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "secret-key", user)
		assert.Equal(t, "X", pass)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"id": 1, "subject": "a", "status": 2, "priority": 1, "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"},
			{"id": 2, "subject": "b", "status": 1, "priority": 1}
		]`)
	})

	tickets, err := client.FetchTickets(context.Background())

	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, int64(1), tickets[0].ID)
	assert.Equal(t, domain.StatusOpen, *tickets[0].Status)
	assert.Equal(t, int64(2), tickets[1].ID)
}

func TestClient_FetchTickets_WrongTypedRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"id": 1, "status": 2, "priority": 1},
			{"id": 2, "status": 2, "priority": "high"},
			{"id": "three", "status": 2, "priority": 1},
			{"id": 4, "status": 2, "priority": 1}
		]`)
	})

	tickets, err := client.FetchTickets(context.Background())

	require.NoError(t, err)
	require.Len(t, tickets, 4)

	assert.NoError(t, tickets[0].DecodeError)
	assert.Equal(t, domain.PriorityLow, *tickets[0].Priority)

	assert.Error(t, tickets[1].DecodeError)
	assert.Equal(t, int64(2), tickets[1].ID)
	assert.Nil(t, tickets[1].Status)
	assert.Nil(t, tickets[1].Priority)

	assert.Error(t, tickets[2].DecodeError)
	assert.Zero(t, tickets[2].ID)

	assert.NoError(t, tickets[3].DecodeError)
	assert.Equal(t, int64(4), tickets[3].ID)
}

func TestClient_FetchTickets_Errors(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":"invalid_credentials"}`)
		})

		tickets, err := client.FetchTickets(context.Background())

		assert.Nil(t, tickets)
		var remoteErr *apperrors.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, http.StatusUnauthorized, remoteErr.StatusCode)
		assert.Contains(t, remoteErr.Message, "invalid_credentials")
	})

	t.Run("malformed body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"not": "a list"}`)
		})

		_, err := client.FetchTickets(context.Background())

		var remoteErr *apperrors.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Zero(t, remoteErr.StatusCode)
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client := NewClient(Config{BaseURL: url, Timeout: time.Second}, nil)
		_, err := client.FetchTickets(context.Background())

		var remoteErr *apperrors.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Zero(t, remoteErr.StatusCode)
	})

	t.Run("cancelled context", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.FetchTickets(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls.Load())
	})
}

func TestClient_UpdateTicket(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v2/tickets/42", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _, ok := r.BasicAuth()
		assert.True(t, ok)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"id": 42}`)
	})

	err := client.UpdateTicket(context.Background(), 42, domain.UpdatePayload{"priority": 3})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"priority": float64(3)}, gotBody)
}

func TestClient_UpdateTicket_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"description":"Validation failed"}`)
	})

	err := client.UpdateTicket(context.Background(), 9, domain.UpdatePayload{"priority": 3})

	var remoteErr *apperrors.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
	assert.Equal(t, "update ticket 9", remoteErr.Op)
}

func TestClient_Ping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		_, _ = io.WriteString(w, `[]`)
	})

	assert.NoError(t, client.Ping(context.Background()))
}

func TestClient_Throttles(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, RequestsPerSecond: 0.001, Burst: 1}, server.Client())

	_, err := client.FetchTickets(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.FetchTickets(ctx)

	var remoteErr *apperrors.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, int32(1), calls.Load())
}

func TestErrorMessage_Truncates(t *testing.T) {
	long := make([]byte, maxErrorMessageLen+100)
	for i := range long {
		long[i] = 'x'
	}

	msg := errorMessage(long)

	assert.Len(t, msg, maxErrorMessageLen+3)
}
