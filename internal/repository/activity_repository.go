package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

// ActivityRepository stores the append-only ticket log.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, a *domain.Activity) error {
	const query = `
        INSERT INTO activities (id, ticket_id, user_id, activity_type, content, old_status, new_status, is_internal, attachments, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	attachments := a.Attachments
	if attachments == nil {
		attachments = []domain.AttachmentReference{}
	}
	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.TicketID,
		a.UserID,
		a.ActivityType,
		a.Content,
		a.OldStatus,
		a.NewStatus,
		a.IsInternal,
		attachments,
		a.CreatedAt,
	)
	return err
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Activity, error) {
	const query = `
        SELECT id, ticket_id, user_id, activity_type, content, old_status, new_status, is_internal, attachments, created_at
        FROM activities WHERE ticket_id=$1 AND (is_internal = FALSE OR $2) ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Activity{}
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(
			&a.ID,
			&a.TicketID,
			&a.UserID,
			&a.ActivityType,
			&a.Content,
			&a.OldStatus,
			&a.NewStatus,
			&a.IsInternal,
			&a.Attachments,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
