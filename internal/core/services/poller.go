package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/ticket-monitor/internal/core/domain"
	"github.com/lorrc/ticket-monitor/internal/core/ports"
	"github.com/lorrc/ticket-monitor/internal/infrastructure/logging"
)

// Poller runs the fetch -> evaluate -> update cycle against the provider.
// Nothing that happens inside a cycle stops the loop; every failure is
// logged and the cycle moves on.
type Poller struct {
	provider    ports.TicketProvider
	evaluator   ports.RuleEvaluator
	broadcaster ports.EventBroadcaster
	interval    time.Duration
	logger      *slog.Logger
}

var _ ports.CycleRunner = (*Poller)(nil)

// NewPoller creates a new poller. broadcaster may be nil.
func NewPoller(
	provider ports.TicketProvider,
	evaluator ports.RuleEvaluator,
	broadcaster ports.EventBroadcaster,
	interval time.Duration,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		provider:    provider,
		evaluator:   evaluator,
		broadcaster: broadcaster,
		interval:    interval,
		logger:      logger.With("component", "poller"),
	}
}

// Interval returns the configured pause between cycles.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run executes cycles until ctx is cancelled. Cancellation is observed
// during the pause between cycles as well as inside in-flight requests,
// and is reported as a normal return.
func (p *Poller) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		p.RunCycle(ctx)
		timer.Reset(p.interval)
	}
}

// stepResult is the outcome of one step of a cycle.
type stepResult struct {
	step     string
	ticketID int64
	err      error
}

func (r stepResult) ok() bool { return r.err == nil }

// RunCycle performs a single pass over the tickets currently returned by the
// provider and returns its summary.
func (p *Poller) RunCycle(ctx context.Context) domain.CycleSummary {
	summary := domain.CycleSummary{
		CycleID:   uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	ctx = logging.WithCycleID(ctx, summary.CycleID)

	p.logger.InfoContext(ctx, "fetching tickets")
	tickets, err := p.provider.FetchTickets(ctx)
	if res := (stepResult{step: "fetch", err: err}); !p.handle(ctx, res) {
		summary.FetchError = err.Error()
		tickets = nil
	}
	summary.Fetched = len(tickets)

	for _, ticket := range tickets {
		if ctx.Err() != nil {
			break
		}
		summary.Processed++
		if !p.handle(ctx, p.processTicket(ctx, ticket, &summary)) {
			summary.Failed++
		}
	}

	summary.FinishedAt = time.Now().UTC()
	p.logger.InfoContext(ctx, "cycle complete",
		"processed", summary.Processed,
		"matched", summary.Matched,
		"updated", summary.Updated,
		"failed", summary.Failed,
		"duration_ms", summary.Duration().Milliseconds(),
	)
	p.publish(domain.Event{Type: domain.EventCycleCompleted, Payload: summary})

	return summary
}

// processTicket evaluates one ticket and pushes its update when a rule
// matches. A panic in either step is converted into a failed result.
func (p *Poller) processTicket(ctx context.Context, ticket domain.Ticket, summary *domain.CycleSummary) (res stepResult) {
	ctx = logging.WithTicketID(ctx, ticket.ID)
	defer func() {
		if r := recover(); r != nil {
			logging.LogPanic(ctx, p.logger, r)
			res = stepResult{step: "process", ticketID: ticket.ID, err: fmt.Errorf("panic: %v", r)}
		}
	}()

	payload, matched, err := p.evaluator.Evaluate(ticket)
	if err != nil {
		return stepResult{step: "evaluate", ticketID: ticket.ID, err: err}
	}
	if !matched {
		return stepResult{step: "evaluate", ticketID: ticket.ID}
	}
	summary.Matched++

	if err := p.provider.UpdateTicket(ctx, ticket.ID, payload); err != nil {
		return stepResult{step: "update", ticketID: ticket.ID, err: err}
	}
	summary.Updated++

	p.logger.InfoContext(ctx, "ticket updated", "fields", payload)
	p.publish(domain.Event{Type: domain.EventTicketUpdated, TicketID: ticket.ID, Payload: payload})

	return stepResult{step: "update", ticketID: ticket.ID}
}

// handle is the single log-and-continue point for step results. It reports
// whether the step succeeded.
func (p *Poller) handle(ctx context.Context, res stepResult) bool {
	if res.ok() {
		return true
	}

	attrs := []any{"step", res.step, "error", res.err}
	if res.ticketID != 0 {
		attrs = append(attrs, "ticket_id", res.ticketID)
	}

	if ctx.Err() != nil && errors.Is(res.err, context.Canceled) {
		p.logger.DebugContext(ctx, "step interrupted by stop", attrs...)
		return false
	}
	p.logger.ErrorContext(ctx, "cycle step failed", attrs...)
	return false
}

func (p *Poller) publish(event domain.Event) {
	if p.broadcaster == nil {
		return
	}
	if err := p.broadcaster.Broadcast(event); err != nil {
		p.logger.Warn("failed to broadcast event", "event_type", event.Type, "error", err)
	}
}
