package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

var _ repository.AssetRepository = (*AssetRepository)(nil)

// AssetRepository is an in-memory repository.AssetRepository.
type AssetRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Asset
}

// NewAssetRepository returns an empty store.
func NewAssetRepository() *AssetRepository {
	return &AssetRepository{items: make(map[string]domain.Asset)}
}

func (r *AssetRepository) codeTaken(code, exceptID string) bool {
	for id, a := range r.items {
		if id != exceptID && a.AssetCode == code {
			return true
		}
	}
	return false
}

func (r *AssetRepository) Create(_ context.Context, asset *domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[asset.ID]; exists || r.codeTaken(asset.AssetCode, "") {
		return apperrors.ErrDuplicate
	}
	r.items[asset.ID] = cloneAsset(*asset)
	return nil
}

func (r *AssetRepository) Update(_ context.Context, asset *domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[asset.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if r.codeTaken(asset.AssetCode, asset.ID) {
		return apperrors.ErrDuplicate
	}
	next := cloneAsset(*asset)
	next.CreatedAt = current.CreatedAt
	r.items[asset.ID] = next
	return nil
}

func (r *AssetRepository) GetByID(_ context.Context, id string) (*domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	asset, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := cloneAsset(asset)
	return &out, nil
}

func (r *AssetRepository) List(_ context.Context, filter repository.AssetFilter) ([]domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := []domain.Asset{}
	for _, a := range r.items {
		switch {
		case filter.HOStock:
			if a.SiteID != nil {
				continue
			}
		case filter.SiteID != nil:
			if a.SiteID == nil || *a.SiteID != *filter.SiteID {
				continue
			}
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.AssetType != nil && a.AssetType != *filter.AssetType {
			continue
		}
		matched = append(matched, cloneAsset(a))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].AssetCode < matched[j].AssetCode })
	return page(matched, filter.Limit, filter.Offset), nil
}
