package ports

import (
	"context"

	"github.com/lorrc/ticket-monitor/internal/core/domain"
)

// TicketProvider defines the port for the remote ticketing API.
type TicketProvider interface {
	FetchTickets(ctx context.Context) ([]domain.Ticket, error)
	UpdateTicket(ctx context.Context, ticketID int64, payload domain.UpdatePayload) error
}

// RuleEvaluator decides whether a ticket needs an update. Implementations
// must not perform I/O.
type RuleEvaluator interface {
	Evaluate(ticket domain.Ticket) (domain.UpdatePayload, bool, error)
}

// CycleRunner executes a single poll cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) domain.CycleSummary
	Run(ctx context.Context) error
}

// MonitorService defines the lifecycle operations of the background monitor.
type MonitorService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() domain.MonitorStatus
	Shutdown(ctx context.Context) error
}

// EventBroadcaster defines the port for broadcasting real-time events.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}
