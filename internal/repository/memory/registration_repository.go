package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

var _ repository.RegistrationRepository = (*RegistrationRepository)(nil)

// RegistrationRepository is an in-memory repository.RegistrationRepository.
type RegistrationRepository struct {
	mu    sync.RWMutex
	items map[string]domain.ClientRegistration
}

// NewRegistrationRepository returns an empty store.
func NewRegistrationRepository() *RegistrationRepository {
	return &RegistrationRepository{items: make(map[string]domain.ClientRegistration)}
}

func (r *RegistrationRepository) Create(_ context.Context, reg *domain.ClientRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[reg.ID]; exists {
		return apperrors.ErrDuplicate
	}
	for _, existing := range r.items {
		if existing.Status == domain.RegistrationStatusPending && strings.EqualFold(existing.Email, reg.Email) {
			return apperrors.ErrDuplicate
		}
	}
	r.items[reg.ID] = cloneRegistration(*reg)
	return nil
}

func (r *RegistrationRepository) Update(_ context.Context, reg *domain.ClientRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[reg.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.items[reg.ID] = cloneRegistration(*reg)
	return nil
}

func (r *RegistrationRepository) GetByID(_ context.Context, id string) (*domain.ClientRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := cloneRegistration(reg)
	return &out, nil
}

func (r *RegistrationRepository) List(_ context.Context, status *domain.RegistrationStatus) ([]domain.ClientRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.ClientRegistration{}
	for _, reg := range r.items {
		if status != nil && reg.Status != *status {
			continue
		}
		out = append(out, cloneRegistration(reg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
