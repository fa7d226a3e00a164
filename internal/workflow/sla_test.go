package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

func TestPriorityForScore(t *testing.T) {
	tests := []struct {
		impact, urgency, criticality int
		score                        int
		want                         domain.TicketPriority
	}{
		{5, 5, 3, 75, domain.TicketPriorityP1},
		{5, 5, 2, 50, domain.TicketPriorityP1},
		{4, 4, 3, 48, domain.TicketPriorityP2},
		{5, 5, 1, 25, domain.TicketPriorityP2},
		{3, 3, 2, 18, domain.TicketPriorityP3},
		{5, 2, 1, 10, domain.TicketPriorityP3},
		{3, 3, 1, 9, domain.TicketPriorityP4},
		{1, 1, 1, 1, domain.TicketPriorityP4},
	}
	for _, tt := range tests {
		score := PriorityScore(tt.impact, tt.urgency, tt.criticality)
		assert.Equal(t, tt.score, score)
		assert.Equal(t, tt.want, PriorityForScore(score), "score %d", score)
	}
}

func TestValidateRatings(t *testing.T) {
	assert.NoError(t, ValidateRatings(1, 5, 3))
	assert.Error(t, ValidateRatings(0, 3, 2))
	assert.Error(t, ValidateRatings(3, 6, 2))
	assert.Error(t, ValidateRatings(3, 3, 4))
}

func TestDeadlinesP1(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	response, restore := DefaultSLAPolicy().Deadlines(domain.TicketPriorityP1, created)
	assert.Equal(t, created.Add(15*time.Minute), response)
	assert.Equal(t, created.Add(4*time.Hour), restore)
}

func slaTicket(created time.Time) *domain.Ticket {
	policy := DefaultSLAPolicy()
	response, restore := policy.Deadlines(domain.TicketPriorityP1, created)
	return &domain.Ticket{
		Priority:       domain.TicketPriorityP1,
		CreatedOn:      created,
		SLAResponseDue: response,
		SLARestoreDue:  restore,
	}
}

func TestEvaluateOpenTicket(t *testing.T) {
	policy := DefaultSLAPolicy()
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ticket := slaTicket(created)

	eval := policy.Evaluate(ticket, created.Add(5*time.Minute))
	assert.Equal(t, domain.SLAStatusOnTrack, eval.Status)

	// 3 of 15 response minutes left is exactly the 20% threshold.
	eval = policy.Evaluate(ticket, created.Add(12*time.Minute))
	assert.Equal(t, domain.SLAStatusAtRisk, eval.Status)
	assert.False(t, eval.ResponseBreached)

	eval = policy.Evaluate(ticket, created.Add(16*time.Minute))
	assert.True(t, eval.ResponseBreached)
	assert.False(t, eval.RestoreBreached)
	assert.Equal(t, domain.SLAStatusBreached, eval.Status)
}

func TestEvaluateRespondedTicketTracksRestore(t *testing.T) {
	policy := DefaultSLAPolicy()
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ticket := slaTicket(created)
	responded := created.Add(10 * time.Minute)
	ticket.RespondedAt = &responded

	eval := policy.Evaluate(ticket, created.Add(2*time.Hour))
	assert.False(t, eval.ResponseBreached)
	assert.Equal(t, domain.SLAStatusOnTrack, eval.Status)

	eval = policy.Evaluate(ticket, created.Add(3*time.Hour+15*time.Minute))
	assert.Equal(t, domain.SLAStatusAtRisk, eval.Status)

	eval = policy.Evaluate(ticket, created.Add(5*time.Hour))
	assert.True(t, eval.RestoreBreached)
}

func TestEvaluateFreezesAtResolution(t *testing.T) {
	policy := DefaultSLAPolicy()
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ticket := slaTicket(created)
	responded := created.Add(5 * time.Minute)
	resolved := created.Add(3 * time.Hour)
	ticket.RespondedAt = &responded
	ticket.ResolvedAt = &resolved

	eval := policy.Evaluate(ticket, created.Add(48*time.Hour))
	assert.False(t, eval.RestoreBreached, "resolved before deadline stays met")
	assert.Equal(t, domain.SLAStatusOnTrack, eval.Status)

	late := created.Add(6 * time.Hour)
	ticket.ResolvedAt = &late
	eval = policy.Evaluate(ticket, created.Add(48*time.Hour))
	assert.True(t, eval.RestoreBreached)
	assert.Equal(t, domain.SLAStatusBreached, eval.Status)
}

func TestApplySetsComputedFields(t *testing.T) {
	policy := DefaultSLAPolicy()
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ticket := slaTicket(created)

	policy.Apply(ticket, created.Add(5*time.Hour))
	assert.True(t, ticket.IsSLAResponseBreached)
	assert.True(t, ticket.IsSLARestoreBreached)
	assert.Equal(t, domain.SLAStatusBreached, ticket.SLAStatus)
}

func TestNewSLAPolicyOverrides(t *testing.T) {
	policy := NewSLAPolicy(
		map[string]int{"P1": 10, "P3": 0},
		map[string]int{"P1": 120},
		35,
	)
	assert.Equal(t, SLATarget{ResponseMinutes: 10, RestoreMinutes: 120}, policy.Targets[domain.TicketPriorityP1])
	assert.Equal(t, DefaultSLAPolicy().Targets[domain.TicketPriorityP3], policy.Targets[domain.TicketPriorityP3])
	assert.Equal(t, 35, policy.AtRiskPercent)

	assert.Equal(t, 20, NewSLAPolicy(nil, nil, 150).AtRiskPercent)
}
