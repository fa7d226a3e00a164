// Package workflow holds the ticket and RMA rules: which actions move a
// ticket between statuses, who may perform them and how SLA deadlines are
// derived. Everything here is pure; services own persistence.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

// Action names an operation on a ticket.
type Action string

const (
	ActionAssign               Action = "ASSIGN"
	ActionAcknowledge          Action = "ACKNOWLEDGE"
	ActionStart                Action = "START"
	ActionHold                 Action = "HOLD"
	ActionResume               Action = "RESUME"
	ActionResolve              Action = "RESOLVE"
	ActionVerify               Action = "VERIFY"
	ActionClose                Action = "CLOSE"
	ActionRejectResolution     Action = "REJECT_RESOLUTION"
	ActionAcknowledgeRejection Action = "ACKNOWLEDGE_REJECTION"
	ActionEscalate             Action = "ESCALATE"
	ActionAcceptEscalation     Action = "ACCEPT_ESCALATION"
	ActionDelegateEscalation   Action = "DELEGATE_ESCALATION"
	ActionReopen               Action = "REOPEN"
	ActionCancel               Action = "CANCEL"
	ActionComment              Action = "COMMENT"
)

// TransitionActions lists every status-changing action in table order.
var TransitionActions = []Action{
	ActionAssign,
	ActionAcknowledge,
	ActionStart,
	ActionHold,
	ActionResume,
	ActionResolve,
	ActionVerify,
	ActionClose,
	ActionRejectResolution,
	ActionAcknowledgeRejection,
	ActionEscalate,
	ActionAcceptEscalation,
	ActionDelegateEscalation,
	ActionReopen,
	ActionCancel,
}

// Field names a payload value an action may require.
type Field string

const (
	FieldAssigneeID        Field = "assignee_id"
	FieldReason            Field = "reason"
	FieldRootCause         Field = "root_cause"
	FieldResolutionSummary Field = "resolution_summary"
)

// Rule describes one row of the transition table.
type Rule struct {
	From     []domain.TicketStatus
	To       domain.TicketStatus
	Requires []Field
}

// Allows reports whether the rule applies from status.
func (r Rule) Allows(status domain.TicketStatus) bool {
	for _, from := range r.From {
		if from == status {
			return true
		}
	}
	return false
}

// Payload carries the user-supplied values of a transition.
type Payload struct {
	AssigneeID        string
	Reason            string
	RootCause         string
	ResolutionSummary string
}

func (p Payload) value(f Field) string {
	switch f {
	case FieldAssigneeID:
		return p.AssigneeID
	case FieldReason:
		return p.Reason
	case FieldRootCause:
		return p.RootCause
	case FieldResolutionSummary:
		return p.ResolutionSummary
	}
	return ""
}

var (
	// ErrInvalidTransition means the action does not apply from the current status.
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	// ErrEscalationLimit means the ticket is already at the top escalation tier.
	ErrEscalationLimit = errors.New("escalation limit reached")
	// ErrUnknownAction means the action is not in the transition table.
	ErrUnknownAction = errors.New("unknown action")
)

// MissingFieldsError lists required payload fields that were blank.
type MissingFieldsError struct {
	Action Action
	Fields []Field
}

func (e *MissingFieldsError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, string(f))
	}
	return fmt.Sprintf("%s requires %s", strings.ToLower(string(e.Action)), strings.Join(names, ", "))
}

var escalatableFrom = func() []domain.TicketStatus {
	out := make([]domain.TicketStatus, 0, len(domain.AllTicketStatuses))
	for _, s := range domain.AllTicketStatuses {
		if s.IsTerminal() || s == domain.TicketStatusEscalated {
			continue
		}
		out = append(out, s)
	}
	return out
}()

var transitions = map[Action]Rule{
	ActionAssign: {
		From:     []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusAssigned},
		To:       domain.TicketStatusAssigned,
		Requires: []Field{FieldAssigneeID},
	},
	ActionAcknowledge: {
		From: []domain.TicketStatus{domain.TicketStatusAssigned},
		To:   domain.TicketStatusAcknowledged,
	},
	ActionStart: {
		From: []domain.TicketStatus{domain.TicketStatusAcknowledged},
		To:   domain.TicketStatusInProgress,
	},
	ActionHold: {
		From:     []domain.TicketStatus{domain.TicketStatusInProgress},
		To:       domain.TicketStatusOnHold,
		Requires: []Field{FieldReason},
	},
	ActionResume: {
		From: []domain.TicketStatus{domain.TicketStatusOnHold},
		To:   domain.TicketStatusInProgress,
	},
	ActionResolve: {
		From:     []domain.TicketStatus{domain.TicketStatusInProgress},
		To:       domain.TicketStatusResolved,
		Requires: []Field{FieldRootCause, FieldResolutionSummary},
	},
	ActionVerify: {
		From: []domain.TicketStatus{domain.TicketStatusResolved},
		To:   domain.TicketStatusVerified,
	},
	ActionClose: {
		From: []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusVerified},
		To:   domain.TicketStatusClosed,
	},
	ActionRejectResolution: {
		From:     []domain.TicketStatus{domain.TicketStatusResolved},
		To:       domain.TicketStatusResolutionRejected,
		Requires: []Field{FieldReason},
	},
	ActionAcknowledgeRejection: {
		From: []domain.TicketStatus{domain.TicketStatusResolutionRejected},
		To:   domain.TicketStatusInProgress,
	},
	ActionEscalate: {
		From:     escalatableFrom,
		To:       domain.TicketStatusEscalated,
		Requires: []Field{FieldReason},
	},
	ActionAcceptEscalation: {
		From: []domain.TicketStatus{domain.TicketStatusEscalated},
		To:   domain.TicketStatusInProgress,
	},
	ActionDelegateEscalation: {
		From:     []domain.TicketStatus{domain.TicketStatusEscalated},
		To:       domain.TicketStatusInProgress,
		Requires: []Field{FieldAssigneeID},
	},
	ActionReopen: {
		From:     []domain.TicketStatus{domain.TicketStatusClosed},
		To:       domain.TicketStatusOpen,
		Requires: []Field{FieldReason},
	},
	ActionCancel: {
		From: []domain.TicketStatus{
			domain.TicketStatusOpen,
			domain.TicketStatusAssigned,
			domain.TicketStatusAcknowledged,
			domain.TicketStatusInProgress,
			domain.TicketStatusOnHold,
		},
		To:       domain.TicketStatusCancelled,
		Requires: []Field{FieldReason},
	},
}

// RuleFor returns the table row for action.
func RuleFor(action Action) (Rule, bool) {
	rule, ok := transitions[action]
	return rule, ok
}

// ValidatePayload checks the action's required fields are non-blank.
func ValidatePayload(action Action, p Payload) error {
	rule, ok := transitions[action]
	if !ok {
		return ErrUnknownAction
	}
	var missing []Field
	for _, f := range rule.Requires {
		if strings.TrimSpace(p.value(f)) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Action: action, Fields: missing}
	}
	return nil
}

// Next returns the status action leads to from the ticket's current state.
func Next(t *domain.Ticket, action Action) (domain.TicketStatus, error) {
	rule, ok := transitions[action]
	if !ok {
		return "", ErrUnknownAction
	}
	if !rule.Allows(t.Status) {
		return "", ErrInvalidTransition
	}
	if action == ActionEscalate && t.EscalationLevel >= domain.MaxEscalationLevel {
		return "", ErrEscalationLimit
	}
	return rule.To, nil
}
