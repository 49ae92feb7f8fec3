package domain

// TicketStatus mirrors the helpdesk's numeric status codes.
type TicketStatus int

const (
	StatusOpen     TicketStatus = 2
	StatusPending  TicketStatus = 3
	StatusResolved TicketStatus = 4
	StatusClosed   TicketStatus = 5
)

// IsValid reports whether the status is one of the known codes.
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// TicketPriority mirrors the helpdesk's numeric priority codes.
type TicketPriority int

const (
	PriorityLow    TicketPriority = 1
	PriorityMedium TicketPriority = 2
	PriorityHigh   TicketPriority = 3
	PriorityUrgent TicketPriority = 4
)

// IsValid reports whether the priority is one of the known codes.
func (p TicketPriority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// Ticket is a read-only snapshot of a remote ticket as returned by the
// provider. Status and Priority are pointers so a field absent from the
// payload can be told apart from a zero value.
//
// DecodeError is set by the provider when this ticket's record could not be
// decoded; ID is then best effort and the other fields are unset.
type Ticket struct {
	ID        int64           `json:"id"`
	Subject   string          `json:"subject"`
	Status    *TicketStatus   `json:"status"`
	Priority  *TicketPriority `json:"priority"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`

	DecodeError error `json:"-"`
}

// UpdatePayload is the set of fields sent to the provider for one ticket.
type UpdatePayload map[string]any
