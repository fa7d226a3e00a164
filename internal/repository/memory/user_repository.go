package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

var _ repository.UserRepository = (*UserRepository)(nil)

// UserRepository is an in-memory repository.UserRepository.
type UserRepository struct {
	mu    sync.RWMutex
	items map[string]domain.User
}

// NewUserRepository returns an empty store.
func NewUserRepository() *UserRepository {
	return &UserRepository{items: make(map[string]domain.User)}
}

func (r *UserRepository) emailTaken(email, exceptID string) bool {
	for id, u := range r.items {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := cloneUser(*user)
	stored.Email = strings.ToLower(stored.Email)
	if _, exists := r.items[user.ID]; exists || r.emailTaken(stored.Email, "") {
		return apperrors.ErrDuplicate
	}
	r.items[user.ID] = stored
	return nil
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[user.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	next := cloneUser(*user)
	next.Email = strings.ToLower(next.Email)
	if r.emailTaken(next.Email, user.ID) {
		return apperrors.ErrDuplicate
	}
	next.CreatedAt = current.CreatedAt
	r.items[user.ID] = next
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := cloneUser(user)
	return &out, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.items {
		if u.Email == email {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *UserRepository) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.User{}
	for _, u := range r.items {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.SiteID != nil && !slices.Contains(u.SiteIDs, *filter.SiteID) {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *UserRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}
