package service

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-desk/internal/auth"
	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
	"github.com/fieldops/maintenance-desk/internal/workflow"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// UserService manages desk operators.
type UserService struct {
	users      repository.UserRepository
	sites      repository.SiteRepository
	bcryptCost int
	logger     *zap.Logger
	now        Clock
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	SiteRepo   repository.SiteRepository
	BcryptCost int
	Logger     *zap.Logger
	Clock      Clock
}

// UserInput is the writable part of a user. A blank Password on update
// keeps the current one; Active defaults to true on create.
type UserInput struct {
	Name           string
	Email          string
	Password       string
	Role           domain.Role
	EscalationTier int
	SiteIDs        []string
	SiteRights     []domain.SiteRight
	Active         *bool
}

// UserListFilter narrows user listings.
type UserListFilter struct {
	Role   *domain.Role
	SiteID *string
	Active *bool
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		sites:      deps.SiteRepo,
		bcryptCost: deps.BcryptCost,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// CreateUser adds an operator. Admin only.
func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, input UserInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := passwordError(input.Password); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.now()
	user := &domain.User{ID: newID(), PasswordHash: hash, Active: true, CreatedAt: now, UpdatedAt: now}
	applyUserInput(user, input)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateUser replaces an operator's profile and rights. Admin only.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, userID string, input UserInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if input.Password != "" {
		if err := passwordError(input.Password); err != nil {
			return nil, err
		}
	}
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "user", map[string]any{"user_id": userID})
	}
	if user.ID == actor.ID && (input.Role != domain.RoleAdmin || (input.Active != nil && !*input.Active)) {
		return nil, apperrors.NewConflict("admins cannot demote or deactivate themselves", nil)
	}
	if input.Password != "" {
		hash, err := auth.HashPassword(input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}
	applyUserInput(user, input)
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// GetUser returns a user. Anyone may read themselves; staff roles may read others.
func (s *UserService) GetUser(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.ID != userID && !actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor, domain.RoleDispatcher) {
		return nil, apperrors.NewForbidden("not permitted to view other users")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "user", map[string]any{"user_id": userID})
	}
	return user, nil
}

// ListUsers returns users for assignment pickers and administration.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, filter UserListFilter) ([]domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor, domain.RoleDispatcher) {
		return nil, apperrors.NewForbidden("not permitted to list users")
	}
	users, err := s.users.List(ctx, repository.UserFilter{Role: filter.Role, SiteID: filter.SiteID, Active: filter.Active})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// EnsureBootstrapAdmin creates the first admin when the user store is empty.
// It reports whether an account was created.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return false, nil
	}
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return false, err
	}
	now := s.now()
	admin := &domain.User{
		ID:             newID(),
		Name:           "Administrator",
		Email:          strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:   hash,
		Role:           domain.RoleAdmin,
		EscalationTier: domain.MaxEscalationLevel,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return false, err
	}
	s.logger.Info("bootstrap admin created", zap.String("email", admin.Email))
	return true, nil
}

func (s *UserService) validate(ctx context.Context, input UserInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(input.Email)); err != nil {
		return apperrors.NewValidationError("email is not valid", map[string]any{"field": "email"})
	}
	if !input.Role.Valid() {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if input.EscalationTier < 0 || input.EscalationTier > domain.MaxEscalationLevel {
		return apperrors.NewValidationError("escalation_tier must be between 0 and 3", map[string]any{"field": "escalation_tier"})
	}
	for _, right := range input.SiteRights {
		for _, action := range right.Actions {
			if _, ok := workflow.RuleFor(workflow.Action(action)); !ok && workflow.Action(action) != workflow.ActionComment {
				return apperrors.NewValidationError("unknown action in site rights", map[string]any{"action": action, "site_id": right.SiteID})
			}
		}
	}
	for _, siteID := range siteIDsOf(input) {
		if _, err := s.sites.GetByID(ctx, siteID); err != nil {
			return apperrors.NotFoundOr(err, "site", map[string]any{"site_id": siteID})
		}
	}
	return nil
}

func siteIDsOf(input UserInput) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range input.SiteIDs {
		add(id)
	}
	for _, right := range input.SiteRights {
		add(right.SiteID)
	}
	return out
}

func applyUserInput(user *domain.User, input UserInput) {
	user.Name = strings.TrimSpace(input.Name)
	user.Email = strings.ToLower(strings.TrimSpace(input.Email))
	user.Role = input.Role
	user.EscalationTier = input.EscalationTier
	user.SiteIDs = input.SiteIDs
	user.SiteRights = input.SiteRights
	if input.Active != nil {
		user.Active = *input.Active
	}
}

func passwordError(password string) error {
	if err := auth.CheckPassword(password); err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"field": "password"})
	}
	return nil
}
