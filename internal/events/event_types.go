package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketEscalated       EventType = "ticket_escalated"
	EventTicketCommented       EventType = "ticket_commented"
	EventRMAUpdated            EventType = "rma_updated"
	EventAssetStatusChanged    EventType = "asset_status_changed"
	EventRegistrationSubmitted EventType = "registration_submitted"
	EventRegistrationApproved  EventType = "registration_approved"
	EventRegistrationRejected  EventType = "registration_rejected"
)

// Aggregate names.
const (
	AggregateTicket       = "ticket"
	AggregateRMA          = "rma"
	AggregateAsset        = "asset"
	AggregateRegistration = "registration"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Aggregate   string    `json:"aggregate"`
	AggregateID string    `json:"aggregate_id"`
	TicketID    string    `json:"ticket_id,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, aggregate, aggregateID, actorID string, at time.Time, payload any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		Aggregate:   aggregate,
		AggregateID: aggregateID,
		ActorID:     actorID,
		Timestamp:   at,
		Payload:     payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	SiteID       string                `json:"site_id"`
	AssetID      *string               `json:"asset_id,omitempty"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Action    string              `json:"action"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousAssignee *string `json:"previous_assignee,omitempty"`
	AssigneeID       string  `json:"assignee_id"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Level  int    `json:"level"`
	Reason string `json:"reason"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	ActivityID  string `json:"activity_id"`
	IsInternal  bool   `json:"is_internal"`
	BodyPreview string `json:"body_preview"`
}

// RMAUpdatedPayload payload.
type RMAUpdatedPayload struct {
	RMANumber         string            `json:"rma_number"`
	Step              string            `json:"step"`
	Status            domain.RMAStatus  `json:"status"`
	ReplacementStatus *domain.RMAStatus `json:"replacement_status,omitempty"`
}

// AssetStatusChangedPayload payload.
type AssetStatusChangedPayload struct {
	AssetCode string             `json:"asset_code"`
	OldStatus domain.AssetStatus `json:"old_status"`
	NewStatus domain.AssetStatus `json:"new_status"`
	SiteID    *string            `json:"site_id,omitempty"`
}

// RegistrationPayload payload.
type RegistrationPayload struct {
	Organization string  `json:"organization"`
	Email        string  `json:"email"`
	UserID       *string `json:"user_id,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}
