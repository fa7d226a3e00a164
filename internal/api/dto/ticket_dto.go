package dto

import (
	"time"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	SubCategory string  `json:"sub_category"`
	Impact      int     `json:"impact"`
	Urgency     int     `json:"urgency"`
	AssetID     *string `json:"asset_id"`
	SiteID      string  `json:"site_id"`
}

// TransitionRequest is the body of every ticket action route. Each action
// reads the fields it needs.
type TransitionRequest struct {
	AssigneeID        string `json:"assignee_id"`
	Reason            string `json:"reason"`
	RootCause         string `json:"root_cause"`
	ResolutionSummary string `json:"resolution_summary"`
}

// CommentRequest payload.
type CommentRequest struct {
	Body        string              `json:"body"`
	IsInternal  bool                `json:"is_internal"`
	Attachments []AttachmentPayload `json:"attachments"`
}

// AttachmentPayload describes an uploaded file referenced by a comment.
type AttachmentPayload struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// TicketResponse is the full ticket view with SLA flags evaluated.
type TicketResponse struct {
	ID                    string                `json:"id"`
	TicketNumber          string                `json:"ticket_number"`
	Title                 string                `json:"title"`
	Description           string                `json:"description"`
	Category              string                `json:"category"`
	SubCategory           string                `json:"sub_category"`
	Status                domain.TicketStatus   `json:"status"`
	Priority              domain.TicketPriority `json:"priority"`
	Impact                int                   `json:"impact"`
	Urgency               int                   `json:"urgency"`
	AssetCriticality      int                   `json:"asset_criticality"`
	PriorityScore         int                   `json:"priority_score"`
	AssetID               *string               `json:"asset_id"`
	SiteID                string                `json:"site_id"`
	AssignedTo            *string               `json:"assigned_to"`
	EscalationLevel       int                   `json:"escalation_level"`
	EscalationAcceptedBy  *string               `json:"escalation_accepted_by"`
	EscalationReason      string                `json:"escalation_reason,omitempty"`
	SLAResponseDue        time.Time             `json:"sla_response_due"`
	SLARestoreDue         time.Time             `json:"sla_restore_due"`
	RespondedAt           *time.Time            `json:"responded_at"`
	ResolvedAt            *time.Time            `json:"resolved_at"`
	ClosedAt              *time.Time            `json:"closed_at"`
	ResolutionSummary     string                `json:"resolution_summary,omitempty"`
	RootCause             string                `json:"root_cause,omitempty"`
	RejectionReason       string                `json:"rejection_reason,omitempty"`
	IsSLAResponseBreached bool                  `json:"is_sla_response_breached"`
	IsSLARestoreBreached  bool                  `json:"is_sla_restore_breached"`
	SLAStatus             domain.SLAStatus      `json:"sla_status"`
	CreatedBy             string                `json:"created_by"`
	CreatedOn             time.Time             `json:"created_on"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// ActivityResponse represents one log entry.
type ActivityResponse struct {
	ID           string                       `json:"id"`
	TicketID     string                       `json:"ticket_id"`
	UserID       string                       `json:"user_id"`
	ActivityType domain.ActivityType          `json:"activity_type"`
	Content      string                       `json:"content"`
	OldStatus    *domain.TicketStatus         `json:"old_status,omitempty"`
	NewStatus    *domain.TicketStatus         `json:"new_status,omitempty"`
	IsInternal   bool                         `json:"is_internal"`
	Attachments  []domain.AttachmentReference `json:"attachments"`
	CreatedAt    time.Time                    `json:"created_at"`
}
