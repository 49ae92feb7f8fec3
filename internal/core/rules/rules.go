// Package rules holds the business rules applied to each polled ticket.
//
// Evaluation is pure: no network calls, no logging, no mutation of the input.
// Callers decide what to do with a match or an evaluation error.
package rules

import (
	"maps"

	"github.com/lorrc/ticket-monitor/internal/core/domain"
	apperrors "github.com/lorrc/ticket-monitor/internal/core/errors"
	"github.com/lorrc/ticket-monitor/internal/core/ports"
)

// Match is the condition half of a rule. Nil fields match anything.
type Match struct {
	Status        *domain.TicketStatus   `yaml:"status"`
	PriorityBelow *domain.TicketPriority `yaml:"priority_below"`
}

// Rule pairs a condition with the fields to set when it holds.
type Rule struct {
	Name  string         `yaml:"name"`
	Match Match          `yaml:"match"`
	Set   map[string]any `yaml:"set"`
}

// Matches reports whether the rule applies to the given status and priority.
func (r Rule) Matches(status domain.TicketStatus, priority domain.TicketPriority) bool {
	if r.Match.Status != nil && *r.Match.Status != status {
		return false
	}
	if r.Match.PriorityBelow != nil && priority >= *r.Match.PriorityBelow {
		return false
	}
	return true
}

// DefaultRule raises open tickets below high priority to high.
func DefaultRule() Rule {
	status := domain.StatusOpen
	below := domain.PriorityHigh
	return Rule{
		Name:  "escalate-open-low-priority",
		Match: Match{Status: &status, PriorityBelow: &below},
		Set:   map[string]any{"priority": int(domain.PriorityHigh)},
	}
}

// Evaluator applies an ordered rule list; the first matching rule wins.
type Evaluator struct {
	rules []Rule
}

var _ ports.RuleEvaluator = (*Evaluator)(nil)

// NewEvaluator creates an evaluator. An empty list falls back to DefaultRule.
func NewEvaluator(rules ...Rule) *Evaluator {
	if len(rules) == 0 {
		rules = []Rule{DefaultRule()}
	}
	return &Evaluator{rules: rules}
}

// Rules returns a copy of the configured rules.
func (e *Evaluator) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate returns the update payload for the first rule matching ticket.
// A ticket that failed to decode, or lacks an id, status or priority, yields
// an *EvaluationError.
func (e *Evaluator) Evaluate(ticket domain.Ticket) (domain.UpdatePayload, bool, error) {
	if err := validate(ticket); err != nil {
		return nil, false, err
	}

	for _, rule := range e.rules {
		if rule.Matches(*ticket.Status, *ticket.Priority) {
			payload := make(domain.UpdatePayload, len(rule.Set))
			maps.Copy(payload, rule.Set)
			return payload, true, nil
		}
	}
	return nil, false, nil
}

func validate(ticket domain.Ticket) error {
	if ticket.DecodeError != nil {
		return &apperrors.EvaluationError{TicketID: ticket.ID, Err: ticket.DecodeError}
	}

	var missing []string
	if ticket.ID == 0 {
		missing = append(missing, "id")
	}
	if ticket.Status == nil {
		missing = append(missing, "status")
	}
	if ticket.Priority == nil {
		missing = append(missing, "priority")
	}
	if len(missing) > 0 {
		return &apperrors.EvaluationError{TicketID: ticket.ID, Fields: missing}
	}
	return nil
}
