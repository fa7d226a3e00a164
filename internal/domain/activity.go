package domain

import "time"

// ActivityType captures what a log entry records.
type ActivityType string

const (
	ActivityTypeComment      ActivityType = "COMMENT"
	ActivityTypeStatusChange ActivityType = "STATUS_CHANGE"
	ActivityTypeAssignment   ActivityType = "ASSIGNMENT"
	ActivityTypeEscalation   ActivityType = "ESCALATION"
	ActivityTypeResolution   ActivityType = "RESOLUTION"
	ActivityTypeAttachment   ActivityType = "ATTACHMENT"
	ActivityTypeRMAUpdate    ActivityType = "RMA_UPDATE"
)

// Activity is an immutable audit/comment entry on a ticket.
type Activity struct {
	ID           string
	TicketID     string
	UserID       string
	ActivityType ActivityType
	Content      string
	OldStatus    *TicketStatus
	NewStatus    *TicketStatus
	IsInternal   bool
	Attachments  []AttachmentReference
	CreatedAt    time.Time
}

// AttachmentReference stores metadata for files attached to an activity.
type AttachmentReference struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}
