package domain

import "time"

// RegistrationStatus tracks the review outcome of a client sign-up.
type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "PENDING"
	RegistrationStatusApproved RegistrationStatus = "APPROVED"
	RegistrationStatusRejected RegistrationStatus = "REJECTED"
)

// ClientRegistration is a self-service request for desk access.
type ClientRegistration struct {
	ID           string
	Organization string
	ContactName  string
	Email        string
	Status       RegistrationStatus
	ReviewedBy   *string
	Reason       string
	UserID       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
