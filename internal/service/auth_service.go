package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-desk/internal/auth"
	"github.com/fieldops/maintenance-desk/internal/config"
	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// AuthService coordinates login, refresh and logout. Access tokens are
// stateless JWTs; refresh tokens are opaque sessions.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionStore
	tokenMgr   *auth.TokenManager
	refreshTTL time.Duration
	logger     *zap.Logger
	now        Clock
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Sessions repository.SessionStore
	Logger   *zap.Logger
	Clock    Clock
}

// TokenPair is issued on login and refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	refreshMinutes := cfg.RefreshTokenTTLMinutes
	if refreshMinutes <= 0 {
		refreshMinutes = 7 * 24 * 60
	}
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.Sessions,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		refreshTTL: time.Duration(refreshMinutes) * time.Minute,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active {
		return nil, nil, apperrors.NewUnauthorized("user is deactivated")
	}
	tokens, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Refresh rotates a refresh token and issues a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *TokenPair, error) {
	session, err := s.sessions.Get(ctx, refreshToken)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NewUnauthorized("refresh token is invalid or expired")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !user.Active {
		return nil, nil, apperrors.NewUnauthorized("user is deactivated")
	}
	tokens, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Logout drops the refresh session. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return apperrors.MapError(s.sessions.Delete(ctx, refreshToken))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (*TokenPair, error) {
	access, accessExp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	session := domain.Session{
		Token:     newID(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("save refresh session", zap.String("user_id", user.ID), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     session.Token,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}
