package dto

import (
	"time"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token for rotation or logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// UserRequest creates or updates a user.
type UserRequest struct {
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	Password       string             `json:"password"`
	Role           domain.Role        `json:"role"`
	EscalationTier int                `json:"escalation_tier"`
	SiteIDs        []string           `json:"site_ids"`
	SiteRights     []domain.SiteRight `json:"site_rights"`
	Active         *bool              `json:"active"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	Role           domain.Role        `json:"role"`
	EscalationTier int                `json:"escalation_tier"`
	SiteIDs        []string           `json:"site_ids"`
	SiteRights     []domain.SiteRight `json:"site_rights"`
	Active         bool               `json:"active"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// RegistrationRequest is the public sign-up body.
type RegistrationRequest struct {
	Organization string `json:"organization"`
	ContactName  string `json:"contact_name"`
	Email        string `json:"email"`
}

// ApproveRegistrationRequest optionally sets the new account's password.
type ApproveRegistrationRequest struct {
	Password string `json:"password"`
}

// RejectRegistrationRequest payload.
type RejectRegistrationRequest struct {
	Reason string `json:"reason"`
}

// RegistrationResponse is the registration view.
type RegistrationResponse struct {
	ID           string                    `json:"id"`
	Organization string                    `json:"organization"`
	ContactName  string                    `json:"contact_name"`
	Email        string                    `json:"email"`
	Status       domain.RegistrationStatus `json:"status"`
	ReviewedBy   *string                   `json:"reviewed_by"`
	Reason       string                    `json:"reason,omitempty"`
	UserID       *string                   `json:"user_id"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}
