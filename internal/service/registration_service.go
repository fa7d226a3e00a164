package service

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-desk/internal/auth"
	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/events"
	"github.com/fieldops/maintenance-desk/internal/repository"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// RegistrationService handles client self-service sign-ups.
type RegistrationService struct {
	registrations repository.RegistrationRepository
	users         repository.UserRepository
	bcryptCost    int
	events        publisher
	logger        *zap.Logger
	now           Clock
}

// RegistrationDependencies bundles collaborators for the registration service.
type RegistrationDependencies struct {
	RegistrationRepo repository.RegistrationRepository
	UserRepo         repository.UserRepository
	BcryptCost       int
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Clock            Clock
}

// RegistrationInput is a public sign-up request.
type RegistrationInput struct {
	Organization string
	ContactName  string
	Email        string
}

// ReviewResult is the outcome of an approve or reject. Warnings list
// notification failures; the review itself is already stored.
type ReviewResult struct {
	Registration      *domain.ClientRegistration
	User              *domain.User
	TemporaryPassword string
	Warnings          []string
}

// NewRegistrationService constructs the service.
func NewRegistrationService(deps RegistrationDependencies) *RegistrationService {
	return &RegistrationService{
		registrations: deps.RegistrationRepo,
		users:         deps.UserRepo,
		bcryptCost:    deps.BcryptCost,
		events:        publisher{dispatcher: deps.Dispatcher},
		logger:        loggerOrNop(deps.Logger),
		now:           clockOrNow(deps.Clock),
	}
}

// Submit records a pending registration. No authentication required.
func (s *RegistrationService) Submit(ctx context.Context, input RegistrationInput) (*domain.ClientRegistration, error) {
	org := strings.TrimSpace(input.Organization)
	contact := strings.TrimSpace(input.ContactName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if org == "" {
		return nil, apperrors.NewValidationError("organization is required", map[string]any{"field": "organization"})
	}
	if contact == "" {
		return nil, apperrors.NewValidationError("contact_name is required", map[string]any{"field": "contact_name"})
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("email is not valid", map[string]any{"field": "email"})
	}
	now := s.now()
	reg := &domain.ClientRegistration{
		ID:           newID(),
		Organization: org,
		ContactName:  contact,
		Email:        email,
		Status:       domain.RegistrationStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		return nil, apperrors.MapError(err)
	}
	_ = s.events.publish(ctx, s.event(events.EventRegistrationSubmitted, reg, "", nil))
	return reg, nil
}

// List returns registrations, optionally by status. Admin only.
func (s *RegistrationService) List(ctx context.Context, actor *domain.User, status *domain.RegistrationStatus) ([]domain.ClientRegistration, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	regs, err := s.registrations.List(ctx, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return regs, nil
}

// Approve creates a VIEWER account for the registration. A blank password
// generates a temporary one.
func (s *RegistrationService) Approve(ctx context.Context, actor *domain.User, registrationID, password string) (*ReviewResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	reg, err := s.loadPending(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, reg.Email); err == nil {
		return nil, apperrors.NewConflict("a user with this email already exists", map[string]any{"email": reg.Email})
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	result := &ReviewResult{}
	if password == "" {
		if password, err = auth.TemporaryPassword(); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		result.TemporaryPassword = password
	} else if err := passwordError(password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.now()
	user := &domain.User{
		ID:           newID(),
		Name:         reg.ContactName,
		Email:        reg.Email,
		PasswordHash: hash,
		Role:         domain.RoleViewer,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	reg.Status = domain.RegistrationStatusApproved
	reg.ReviewedBy = ptrTo(actor.ID)
	reg.UserID = ptrTo(user.ID)
	reg.UpdatedAt = now
	if err := s.registrations.Update(ctx, reg); err != nil {
		return nil, apperrors.MapError(err)
	}

	result.Registration = reg
	result.User = user
	result.Warnings = s.notify(ctx, s.event(events.EventRegistrationApproved, reg, actor.ID, reg.UserID))
	return result, nil
}

// Reject declines the registration with a reason.
func (s *RegistrationService) Reject(ctx context.Context, actor *domain.User, registrationID, reason string) (*ReviewResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reject requires reason", map[string]any{"fields": []string{"reason"}})
	}
	reg, err := s.loadPending(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	reg.Status = domain.RegistrationStatusRejected
	reg.ReviewedBy = ptrTo(actor.ID)
	reg.Reason = reason
	reg.UpdatedAt = s.now()
	if err := s.registrations.Update(ctx, reg); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &ReviewResult{
		Registration: reg,
		Warnings:     s.notify(ctx, s.event(events.EventRegistrationRejected, reg, actor.ID, nil)),
	}, nil
}

func (s *RegistrationService) loadPending(ctx context.Context, registrationID string) (*domain.ClientRegistration, error) {
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "registration", map[string]any{"registration_id": registrationID})
	}
	if reg.Status != domain.RegistrationStatusPending {
		return nil, apperrors.NewStateConflict("registration was already reviewed", map[string]any{"status": reg.Status})
	}
	return reg, nil
}

// notify publishes event and turns delivery failures into warnings.
func (s *RegistrationService) notify(ctx context.Context, event events.Event) []string {
	if err := s.events.publish(ctx, event); err != nil {
		s.logger.Warn("registration notification failed",
			zap.String("registration_id", event.AggregateID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return []string{"notification could not be delivered: " + err.Error()}
	}
	return []string{}
}

func (s *RegistrationService) event(eventType events.EventType, reg *domain.ClientRegistration, actorID string, userID *string) events.Event {
	return events.New(eventType, events.AggregateRegistration, reg.ID, actorID, reg.UpdatedAt, events.RegistrationPayload{
		Organization: reg.Organization,
		Email:        reg.Email,
		UserID:       userID,
		Reason:       reg.Reason,
	})
}
