package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/maintenance-desk/internal/domain"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// TicketFilter captures list parameters.
type TicketFilter struct {
	SiteIDs     []string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssigneeID  *string
	AssetID     *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence. Tickets are never deleted.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// UpdateWithStatus writes ticket only while its stored status still equals
	// expected, returning ErrStaleWrite otherwise.
	UpdateWithStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, title, description, category, sub_category, status, priority,
    impact, urgency, asset_criticality, priority_score, asset_id, site_id, assigned_to,
    escalation_level, escalation_accepted_by, escalation_reason, sla_response_due, sla_restore_due,
    responded_at, resolved_at, closed_at, resolution_summary, root_cause, rejection_reason,
    created_by, created_on, updated_at`

func ticketFields(t *domain.Ticket) []any {
	return []any{
		&t.ID, &t.TicketNumber, &t.Title, &t.Description, &t.Category, &t.SubCategory, &t.Status, &t.Priority,
		&t.Impact, &t.Urgency, &t.AssetCriticality, &t.PriorityScore, &t.AssetID, &t.SiteID, &t.AssignedTo,
		&t.EscalationLevel, &t.EscalationAcceptedBy, &t.EscalationReason, &t.SLAResponseDue, &t.SLARestoreDue,
		&t.RespondedAt, &t.ResolvedAt, &t.ClosedAt, &t.ResolutionSummary, &t.RootCause, &t.RejectionReason,
		&t.CreatedBy, &t.CreatedOn, &t.UpdatedAt,
	}
}

func (r *ticketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	query := `INSERT INTO tickets (` + ticketColumns + `) VALUES (` + placeholders(1, 29) + `)`
	_, err := r.pool.Exec(ctx, query,
		t.ID, t.TicketNumber, t.Title, t.Description, t.Category, t.SubCategory, t.Status, t.Priority,
		t.Impact, t.Urgency, t.AssetCriticality, t.PriorityScore, t.AssetID, t.SiteID, t.AssignedTo,
		t.EscalationLevel, t.EscalationAcceptedBy, t.EscalationReason, t.SLAResponseDue, t.SLARestoreDue,
		t.RespondedAt, t.ResolvedAt, t.ClosedAt, t.ResolutionSummary, t.RootCause, t.RejectionReason,
		t.CreatedBy, t.CreatedOn, t.UpdatedAt,
	)
	return mapWriteError(err, "insert ticket")
}

func (r *ticketRepository) UpdateWithStatus(ctx context.Context, t *domain.Ticket, expected domain.TicketStatus) error {
	const query = `
        UPDATE tickets SET title=$3, description=$4, category=$5, sub_category=$6, status=$7, priority=$8,
            impact=$9, urgency=$10, asset_criticality=$11, priority_score=$12, assigned_to=$13,
            escalation_level=$14, escalation_accepted_by=$15, escalation_reason=$16,
            sla_response_due=$17, sla_restore_due=$18, responded_at=$19, resolved_at=$20, closed_at=$21,
            resolution_summary=$22, root_cause=$23, rejection_reason=$24, updated_at=$25
        WHERE id=$1 AND status=$2`
	cmd, err := r.pool.Exec(ctx, query,
		t.ID, expected,
		t.Title, t.Description, t.Category, t.SubCategory, t.Status, t.Priority,
		t.Impact, t.Urgency, t.AssetCriticality, t.PriorityScore, t.AssignedTo,
		t.EscalationLevel, t.EscalationAcceptedBy, t.EscalationReason,
		t.SLAResponseDue, t.SLARestoreDue, t.RespondedAt, t.ResolvedAt, t.ClosedAt,
		t.ResolutionSummary, t.RootCause, t.RejectionReason, t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.ErrStaleWrite
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.SiteIDs) > 0 {
		args = append(args, filter.SiteIDs)
		clauses = append(clauses, fmt.Sprintf("site_id::text = ANY($%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		priorities := make([]string, len(filter.Priorities))
		for i, p := range filter.Priorities {
			priorities[i] = string(p)
		}
		args = append(args, priorities)
		clauses = append(clauses, fmt.Sprintf("priority = ANY($%d)", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.AssetID != nil {
		args = append(args, *filter.AssetID)
		clauses = append(clauses, fmt.Sprintf("asset_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_on >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_on <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(ticket_number) LIKE %s)", placeholder, placeholder))
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_on DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
