package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

var _ repository.SiteRepository = (*SiteRepository)(nil)

// SiteRepository is an in-memory repository.SiteRepository.
type SiteRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Site
}

// NewSiteRepository returns an empty store.
func NewSiteRepository() *SiteRepository {
	return &SiteRepository{items: make(map[string]domain.Site)}
}

func (r *SiteRepository) codeTaken(code, exceptID string) bool {
	for id, s := range r.items {
		if id != exceptID && s.Code == code {
			return true
		}
	}
	return false
}

func (r *SiteRepository) Create(_ context.Context, site *domain.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[site.ID]; exists || r.codeTaken(site.Code, "") {
		return apperrors.ErrDuplicate
	}
	r.items[site.ID] = *site
	return nil
}

func (r *SiteRepository) Update(_ context.Context, site *domain.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[site.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if r.codeTaken(site.Code, site.ID) {
		return apperrors.ErrDuplicate
	}
	next := *site
	next.CreatedAt = current.CreatedAt
	r.items[site.ID] = next
	return nil
}

func (r *SiteRepository) GetByID(_ context.Context, id string) (*domain.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	site, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &site, nil
}

func (r *SiteRepository) List(_ context.Context, activeOnly bool) ([]domain.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Site{}
	for _, s := range r.items {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
