// Package freshdesk is the secondary adapter for the Freshdesk v2 REST API.
package freshdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lorrc/ticket-monitor/internal/core/domain"
	apperrors "github.com/lorrc/ticket-monitor/internal/core/errors"
	"github.com/lorrc/ticket-monitor/internal/core/ports"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; the monitor talks to a single host
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// maxErrorMessageLen bounds how much of an error body ends up in logs.
const maxErrorMessageLen = 512

// Config holds the settings needed to reach a Freshdesk account.
type Config struct {
	// Domain is the account host, e.g. "acme.freshdesk.com".
	Domain string
	// BaseURL overrides the https://{Domain}/api/v2 default.
	BaseURL string
	APIKey  string
	// Timeout is applied to each request via context.
	Timeout time.Duration
	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// Client issues authenticated calls against the ticket endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	limiter    *rate.Limiter
}

var _ ports.TicketProvider = (*Client)(nil)

// NewClient creates a Freshdesk client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://" + cfg.Domain + "/api/v2"
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		limiter:    limiter,
	}
}

// FetchTickets lists tickets from the first page of /tickets. A body that is
// not a JSON array fails the call; a single record that does not decode is
// returned with DecodeError set so the rest of the page is still usable.
func (c *Client) FetchTickets(ctx context.Context) ([]domain.Ticket, error) {
	const op = "fetch tickets"

	body, err := c.do(ctx, op, http.MethodGet, c.baseURL+"/tickets", nil)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, apperrors.NewRemoteError(op, fmt.Errorf("failed to decode response: %w", err))
	}

	tickets := make([]domain.Ticket, 0, len(records))
	for i, raw := range records {
		tickets = append(tickets, decodeTicket(i, raw))
	}
	return tickets, nil
}

// decodeTicket decodes one record of the list response. encoding/json keeps
// filling fields past a type mismatch, so the id survives when only another
// field is wrong.
func decodeTicket(index int, raw json.RawMessage) domain.Ticket {
	var ticket domain.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return domain.Ticket{
			ID:          ticket.ID,
			DecodeError: fmt.Errorf("record %d: %w", index, err),
		}
	}
	return ticket
}

// UpdateTicket sends payload as the body of PUT /tickets/{id}.
func (c *Client) UpdateTicket(ctx context.Context, ticketID int64, payload domain.UpdatePayload) error {
	op := "update ticket " + strconv.FormatInt(ticketID, 10)

	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewRemoteError(op, fmt.Errorf("failed to encode payload: %w", err))
	}

	url := c.baseURL + "/tickets/" + strconv.FormatInt(ticketID, 10)
	_, err = c.do(ctx, op, http.MethodPut, url, data)
	return err
}

// Ping checks that the API is reachable and the credential is accepted.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "ping", http.MethodGet, c.baseURL+"/tickets?per_page=1", nil)
	return err
}

// Close releases idle connections.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

func (c *Client) do(ctx context.Context, op, method, url string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewRemoteError(op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, apperrors.NewRemoteError(op, fmt.Errorf("failed to create request: %w", err))
	}

	// Freshdesk takes the API key as the basic-auth username with any password.
	req.SetBasicAuth(c.apiKey, "X")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewRemoteError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, apperrors.NewRemoteError(op, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewRemoteStatusError(op, resp.StatusCode, errorMessage(respBody))
	}
	return respBody, nil
}

func errorMessage(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen] + "..."
	}
	return msg
}
