package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen               TicketStatus = "OPEN"
	TicketStatusAssigned           TicketStatus = "ASSIGNED"
	TicketStatusAcknowledged       TicketStatus = "ACKNOWLEDGED"
	TicketStatusInProgress         TicketStatus = "IN_PROGRESS"
	TicketStatusOnHold             TicketStatus = "ON_HOLD"
	TicketStatusEscalated          TicketStatus = "ESCALATED"
	TicketStatusResolved           TicketStatus = "RESOLVED"
	TicketStatusResolutionRejected TicketStatus = "RESOLUTION_REJECTED"
	TicketStatusVerified           TicketStatus = "VERIFIED"
	TicketStatusClosed             TicketStatus = "CLOSED"
	TicketStatusCancelled          TicketStatus = "CANCELLED"
)

// AllTicketStatuses lists every status in lifecycle order.
var AllTicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusAssigned,
	TicketStatusAcknowledged,
	TicketStatusInProgress,
	TicketStatusOnHold,
	TicketStatusEscalated,
	TicketStatusResolved,
	TicketStatusResolutionRejected,
	TicketStatusVerified,
	TicketStatusClosed,
	TicketStatusCancelled,
}

// IsTerminal reports whether no further transition except reopen applies.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range AllTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketPriority is derived from the priority score.
type TicketPriority string

const (
	TicketPriorityP1 TicketPriority = "P1"
	TicketPriorityP2 TicketPriority = "P2"
	TicketPriorityP3 TicketPriority = "P3"
	TicketPriorityP4 TicketPriority = "P4"
)

// SLAStatus is the display summary of a ticket's deadlines.
type SLAStatus string

const (
	SLAStatusOnTrack  SLAStatus = "ON_TRACK"
	SLAStatusAtRisk   SLAStatus = "AT_RISK"
	SLAStatusBreached SLAStatus = "BREACHED"
)

// MaxEscalationLevel caps how many times a ticket can be escalated.
const MaxEscalationLevel = 3

// Ticket is the aggregate for maintenance requests.
type Ticket struct {
	ID                   string
	TicketNumber         string
	Title                string
	Description          string
	Category             string
	SubCategory          string
	Status               TicketStatus
	Priority             TicketPriority
	Impact               int
	Urgency              int
	AssetCriticality     int
	PriorityScore        int
	AssetID              *string
	SiteID               string
	AssignedTo           *string
	EscalationLevel      int
	EscalationAcceptedBy *string
	EscalationReason     string
	SLAResponseDue       time.Time
	SLARestoreDue        time.Time
	RespondedAt          *time.Time
	ResolvedAt           *time.Time
	ClosedAt             *time.Time
	ResolutionSummary    string
	RootCause            string
	RejectionReason      string
	CreatedBy            string
	CreatedOn            time.Time
	UpdatedAt            time.Time

	// Computed at read time, never persisted.
	IsSLAResponseBreached bool
	IsSLARestoreBreached  bool
	SLAStatus             SLAStatus
}

// IsAssignee reports whether userID is the current assignee.
func (t *Ticket) IsAssignee(userID string) bool {
	return t.AssignedTo != nil && userID != "" && *t.AssignedTo == userID
}

// EscalationAccepted reports whether a pending escalation has been taken over.
func (t *Ticket) EscalationAccepted() bool {
	return t.EscalationAcceptedBy != nil
}
