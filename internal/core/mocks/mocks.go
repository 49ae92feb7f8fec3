package mocks

import (
	"context"
	"sync"

	"github.com/lorrc/ticket-monitor/internal/core/domain"
	"github.com/lorrc/ticket-monitor/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockTicketProvider is a mock implementation of ports.TicketProvider
type MockTicketProvider struct {
	mock.Mock
}

var _ ports.TicketProvider = (*MockTicketProvider)(nil)

func NewMockTicketProvider() *MockTicketProvider {
	return &MockTicketProvider{}
}

func (m *MockTicketProvider) FetchTickets(ctx context.Context) ([]domain.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketProvider) UpdateTicket(ctx context.Context, ticketID int64, payload domain.UpdatePayload) error {
	args := m.Called(ctx, ticketID, payload)
	return args.Error(0)
}

// MockRuleEvaluator is a mock implementation of ports.RuleEvaluator
type MockRuleEvaluator struct {
	mock.Mock
}

var _ ports.RuleEvaluator = (*MockRuleEvaluator)(nil)

func NewMockRuleEvaluator() *MockRuleEvaluator {
	return &MockRuleEvaluator{}
}

func (m *MockRuleEvaluator) Evaluate(ticket domain.Ticket) (domain.UpdatePayload, bool, error) {
	args := m.Called(ticket)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(domain.UpdatePayload), args.Bool(1), args.Error(2)
}

// MockMonitorService is a mock implementation of ports.MonitorService
type MockMonitorService struct {
	mock.Mock
}

var _ ports.MonitorService = (*MockMonitorService)(nil)

func NewMockMonitorService() *MockMonitorService {
	return &MockMonitorService{}
}

func (m *MockMonitorService) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMonitorService) Stop(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMonitorService) Status() domain.MonitorStatus {
	args := m.Called()
	return args.Get(0).(domain.MonitorStatus)
}

func (m *MockMonitorService) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEventBroadcaster records broadcast events.
type MockEventBroadcaster struct {
	mu     sync.Mutex
	events []domain.Event
}

var _ ports.EventBroadcaster = (*MockEventBroadcaster)(nil)

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (m *MockEventBroadcaster) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out
}

// EventsOfType returns recorded events with the given type.
func (m *MockEventBroadcaster) EventsOfType(eventType domain.EventType) []domain.Event {
	var out []domain.Event
	for _, e := range m.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
