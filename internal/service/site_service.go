package service

import (
	"context"
	"strings"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// SiteService manages physical locations.
type SiteService struct {
	sites repository.SiteRepository
	now   Clock
}

// SiteInput is the writable part of a site. IsActive defaults to true on create.
type SiteInput struct {
	Code         string
	Name         string
	Region       string
	Address      string
	IsHeadOffice bool
	IsActive     *bool
}

// NewSiteService constructs the service.
func NewSiteService(sites repository.SiteRepository, clock Clock) *SiteService {
	return &SiteService{sites: sites, now: clockOrNow(clock)}
}

// CreateSite adds a site. Admin only.
func (s *SiteService) CreateSite(ctx context.Context, actor *domain.User, input SiteInput) (*domain.Site, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateSite(input); err != nil {
		return nil, err
	}
	now := s.now()
	site := &domain.Site{ID: newID(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	applySiteInput(site, input)
	if err := s.sites.Create(ctx, site); err != nil {
		return nil, apperrors.MapError(err)
	}
	return site, nil
}

// UpdateSite replaces a site's fields. Admin only.
func (s *SiteService) UpdateSite(ctx context.Context, actor *domain.User, siteID string, input SiteInput) (*domain.Site, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateSite(input); err != nil {
		return nil, err
	}
	site, err := s.sites.GetByID(ctx, siteID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "site", map[string]any{"site_id": siteID})
	}
	applySiteInput(site, input)
	site.UpdatedAt = s.now()
	if err := s.sites.Update(ctx, site); err != nil {
		return nil, apperrors.MapError(err)
	}
	return site, nil
}

// GetSite returns one site.
func (s *SiteService) GetSite(ctx context.Context, actor *domain.User, siteID string) (*domain.Site, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	site, err := s.sites.GetByID(ctx, siteID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "site", map[string]any{"site_id": siteID})
	}
	return site, nil
}

// ListSites returns all sites, or only active ones.
func (s *SiteService) ListSites(ctx context.Context, actor *domain.User, activeOnly bool) ([]domain.Site, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	sites, err := s.sites.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return sites, nil
}

func validateSite(input SiteInput) error {
	if strings.TrimSpace(input.Code) == "" {
		return apperrors.NewValidationError("code is required", map[string]any{"field": "code"})
	}
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	return nil
}

func applySiteInput(site *domain.Site, input SiteInput) {
	site.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	site.Name = strings.TrimSpace(input.Name)
	site.Region = strings.TrimSpace(input.Region)
	site.Address = strings.TrimSpace(input.Address)
	site.IsHeadOffice = input.IsHeadOffice
	if input.IsActive != nil {
		site.IsActive = *input.IsActive
	}
}

func requireAdmin(actor *domain.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.HasRole(domain.RoleAdmin) {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}
