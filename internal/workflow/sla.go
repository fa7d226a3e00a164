package workflow

import (
	"fmt"
	"time"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

// DefaultCriticality applies to tickets raised without an asset.
const DefaultCriticality = 2

// SLATarget holds response and restore windows for one priority.
type SLATarget struct {
	ResponseMinutes int
	RestoreMinutes  int
}

// SLAPolicy maps priorities to deadlines.
type SLAPolicy struct {
	Targets map[domain.TicketPriority]SLATarget
	// AtRiskPercent is the share of a window left at which a ticket turns AT_RISK.
	AtRiskPercent int
}

// DefaultSLAPolicy returns the stock policy table.
func DefaultSLAPolicy() SLAPolicy {
	return SLAPolicy{
		Targets: map[domain.TicketPriority]SLATarget{
			domain.TicketPriorityP1: {ResponseMinutes: 15, RestoreMinutes: 240},
			domain.TicketPriorityP2: {ResponseMinutes: 30, RestoreMinutes: 480},
			domain.TicketPriorityP3: {ResponseMinutes: 120, RestoreMinutes: 1440},
			domain.TicketPriorityP4: {ResponseMinutes: 240, RestoreMinutes: 2880},
		},
		AtRiskPercent: 20,
	}
}

// NewSLAPolicy builds a policy from per-priority minute windows keyed by
// priority name. Missing or non-positive entries keep the stock value.
func NewSLAPolicy(responseMinutes, restoreMinutes map[string]int, atRiskPercent int) SLAPolicy {
	policy := DefaultSLAPolicy()
	for priority, target := range policy.Targets {
		if v := responseMinutes[string(priority)]; v > 0 {
			target.ResponseMinutes = v
		}
		if v := restoreMinutes[string(priority)]; v > 0 {
			target.RestoreMinutes = v
		}
		policy.Targets[priority] = target
	}
	if atRiskPercent >= 0 && atRiskPercent <= 100 {
		policy.AtRiskPercent = atRiskPercent
	}
	return policy
}

// ValidateRatings checks impact, urgency and criticality ranges.
func ValidateRatings(impact, urgency, criticality int) error {
	if impact < 1 || impact > 5 {
		return fmt.Errorf("impact must be between 1 and 5, got %d", impact)
	}
	if urgency < 1 || urgency > 5 {
		return fmt.Errorf("urgency must be between 1 and 5, got %d", urgency)
	}
	if criticality < 1 || criticality > 3 {
		return fmt.Errorf("criticality must be between 1 and 3, got %d", criticality)
	}
	return nil
}

// PriorityScore is impact × urgency × criticality.
func PriorityScore(impact, urgency, criticality int) int {
	return impact * urgency * criticality
}

// PriorityForScore applies the fixed score thresholds.
func PriorityForScore(score int) domain.TicketPriority {
	switch {
	case score >= 50:
		return domain.TicketPriorityP1
	case score >= 25:
		return domain.TicketPriorityP2
	case score >= 10:
		return domain.TicketPriorityP3
	default:
		return domain.TicketPriorityP4
	}
}

func (p SLAPolicy) target(priority domain.TicketPriority) SLATarget {
	if target, ok := p.Targets[priority]; ok {
		return target
	}
	return DefaultSLAPolicy().Targets[domain.TicketPriorityP4]
}

// Deadlines returns the response and restore due times counted from start.
func (p SLAPolicy) Deadlines(priority domain.TicketPriority, start time.Time) (time.Time, time.Time) {
	target := p.target(priority)
	return start.Add(time.Duration(target.ResponseMinutes) * time.Minute),
		start.Add(time.Duration(target.RestoreMinutes) * time.Minute)
}

// SLAEvaluation is the read-time view of a ticket's deadlines.
type SLAEvaluation struct {
	ResponseBreached bool
	RestoreBreached  bool
	Status           domain.SLAStatus
}

// Evaluate compares deadlines against now, or against the moment the clock
// stopped once the ticket was resolved or closed.
func (p SLAPolicy) Evaluate(t *domain.Ticket, now time.Time) SLAEvaluation {
	var stoppedAt *time.Time
	switch {
	case t.ResolvedAt != nil:
		stoppedAt = t.ResolvedAt
	case t.ClosedAt != nil:
		stoppedAt = t.ClosedAt
	}

	responseAt := now
	if t.RespondedAt != nil {
		responseAt = *t.RespondedAt
	} else if stoppedAt != nil {
		responseAt = *stoppedAt
	}
	restoreAt := now
	if stoppedAt != nil {
		restoreAt = *stoppedAt
	}

	eval := SLAEvaluation{
		ResponseBreached: !t.SLAResponseDue.IsZero() && responseAt.After(t.SLAResponseDue),
		RestoreBreached:  !t.SLARestoreDue.IsZero() && restoreAt.After(t.SLARestoreDue),
		Status:           domain.SLAStatusOnTrack,
	}
	if eval.ResponseBreached || eval.RestoreBreached {
		eval.Status = domain.SLAStatusBreached
		return eval
	}
	if stoppedAt != nil {
		return eval
	}

	target := p.target(t.Priority)
	due, window := t.SLARestoreDue, target.RestoreMinutes
	if t.RespondedAt == nil {
		due, window = t.SLAResponseDue, target.ResponseMinutes
	}
	if due.IsZero() || window <= 0 {
		return eval
	}
	remaining := due.Sub(now)
	threshold := time.Duration(window) * time.Minute * time.Duration(p.AtRiskPercent) / 100
	if remaining <= threshold {
		eval.Status = domain.SLAStatusAtRisk
	}
	return eval
}

// Apply stores the evaluation on the ticket's computed fields.
func (p SLAPolicy) Apply(t *domain.Ticket, now time.Time) {
	eval := p.Evaluate(t, now)
	t.IsSLAResponseBreached = eval.ResponseBreached
	t.IsSLARestoreBreached = eval.RestoreBreached
	t.SLAStatus = eval.Status
}
