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

var _ repository.TicketRepository = (*TicketRepository)(nil)

// TicketRepository is an in-memory repository.TicketRepository.
type TicketRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Ticket
}

// NewTicketRepository returns an empty store.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{items: make(map[string]domain.Ticket)}
}

func (r *TicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[ticket.ID]; exists {
		return apperrors.ErrDuplicate
	}
	for _, existing := range r.items {
		if existing.TicketNumber == ticket.TicketNumber {
			return apperrors.ErrDuplicate
		}
	}
	r.items[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *TicketRepository) UpdateWithStatus(_ context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[ticket.ID]
	if !ok || current.Status != expected {
		return apperrors.ErrStaleWrite
	}
	next := cloneTicket(*ticket)
	next.TicketNumber = current.TicketNumber
	next.AssetID = current.AssetID
	next.SiteID = current.SiteID
	next.CreatedBy = current.CreatedBy
	next.CreatedOn = current.CreatedOn
	r.items[ticket.ID] = next
	return nil
}

func (r *TicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r *TicketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := ""
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}
	matched := []domain.Ticket{}
	for _, t := range r.items {
		if len(filter.SiteIDs) > 0 && !slices.Contains(filter.SiteIDs, t.SiteID) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !slices.Contains(filter.Priorities, t.Priority) {
			continue
		}
		if filter.AssigneeID != nil && !t.IsAssignee(*filter.AssigneeID) {
			continue
		}
		if filter.AssetID != nil && (t.AssetID == nil || *t.AssetID != *filter.AssetID) {
			continue
		}
		if filter.CreatedFrom != nil && t.CreatedOn.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && t.CreatedOn.After(*filter.CreatedTo) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.TicketNumber), search) {
			continue
		}
		matched = append(matched, cloneTicket(t))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedOn.Equal(matched[j].CreatedOn) {
			return matched[i].TicketNumber > matched[j].TicketNumber
		}
		return matched[i].CreatedOn.After(matched[j].CreatedOn)
	})
	return page(matched, filter.Limit, filter.Offset), nil
}
