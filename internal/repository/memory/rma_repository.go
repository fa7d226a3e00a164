package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

var _ repository.RMARepository = (*RMARepository)(nil)

// RMARepository is an in-memory repository.RMARepository.
type RMARepository struct {
	mu    sync.RWMutex
	items map[string]domain.RMA
}

// NewRMARepository returns an empty store.
func NewRMARepository() *RMARepository {
	return &RMARepository{items: make(map[string]domain.RMA)}
}

func (r *RMARepository) Create(_ context.Context, rma *domain.RMA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[rma.ID]; exists {
		return apperrors.ErrDuplicate
	}
	for _, existing := range r.items {
		if existing.RMANumber == rma.RMANumber {
			return apperrors.ErrDuplicate
		}
		if rma.IsActive() && existing.TicketID == rma.TicketID && existing.IsActive() {
			return repository.ErrActiveRMA
		}
	}
	r.items[rma.ID] = cloneRMA(*rma)
	return nil
}

func (r *RMARepository) UpdateWithStatus(_ context.Context, rma *domain.RMA, expected domain.RMAStatus, expectedReplacement *domain.RMAStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[rma.ID]
	if !ok || current.Status != expected || !sameStatus(current.ReplacementStatus, expectedReplacement) {
		return apperrors.ErrStaleWrite
	}
	next := cloneRMA(*rma)
	next.RMANumber = current.RMANumber
	next.TicketID = current.TicketID
	next.AssetID = current.AssetID
	next.CreatedAt = current.CreatedAt
	r.items[rma.ID] = next
	return nil
}

func (r *RMARepository) GetByID(_ context.Context, id string) (*domain.RMA, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rma, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := cloneRMA(rma)
	return &out, nil
}

func (r *RMARepository) ListByTicket(_ context.Context, ticketID string) ([]domain.RMA, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.RMA{}
	for _, rma := range r.items {
		if rma.TicketID == ticketID {
			out = append(out, cloneRMA(rma))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func sameStatus(a, b *domain.RMAStatus) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
