package memory

import (
	"context"
	"sync"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
)

var _ repository.ActivityRepository = (*ActivityRepository)(nil)

// ActivityRepository keeps activities in insertion order.
type ActivityRepository struct {
	mu    sync.RWMutex
	items []domain.Activity
}

// NewActivityRepository returns an empty store.
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{}
}

func (r *ActivityRepository) Create(_ context.Context, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, cloneActivity(*activity))
	return nil
}

func (r *ActivityRepository) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Activity{}
	for _, a := range r.items {
		if a.TicketID != ticketID || (a.IsInternal && !includeInternal) {
			continue
		}
		out = append(out, cloneActivity(a))
	}
	return out, nil
}
