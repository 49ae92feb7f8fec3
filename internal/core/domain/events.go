package domain

import "time"

// EventType defines the type of real-time event.
type EventType string

const (
	EventCycleCompleted EventType = "CYCLE_COMPLETED"
	EventTicketUpdated  EventType = "TICKET_UPDATED"
	EventMonitorStarted EventType = "MONITOR_STARTED"
	EventMonitorStopped EventType = "MONITOR_STOPPED"
	EventPong           EventType = "PONG"
)

// Event is the payload sent over WebSocket.
type Event struct {
	Type     EventType `json:"type"`
	Payload  any       `json:"payload,omitempty"`
	TicketID int64     `json:"ticketId,omitempty"`
}

// CycleSummary describes the outcome of one fetch/evaluate/update pass.
type CycleSummary struct {
	CycleID    string    `json:"cycleId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Fetched    int       `json:"fetched"`
	Processed  int       `json:"processed"`
	Matched    int       `json:"matched"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	FetchError string    `json:"fetchError,omitempty"`
}

// Duration returns how long the cycle took.
func (c CycleSummary) Duration() time.Duration {
	return c.FinishedAt.Sub(c.StartedAt)
}

// MonitorStatus is the externally visible run state of the monitor.
// LastCheck is the time the status was queried, not the time of the last poll.
type MonitorStatus struct {
	IsMonitoring    bool
	LastCheck       time.Time
	PollingInterval time.Duration
}
