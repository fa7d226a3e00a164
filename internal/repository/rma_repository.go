package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/maintenance-desk/internal/domain"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// ErrActiveRMA is returned by Create when the ticket already has an active RMA.
var ErrActiveRMA = errors.New("ticket already has an active rma")

// activeRMAIndex enforces one active RMA per ticket.
const activeRMAIndex = "rmas_one_active_per_ticket"

// RMARepository persists return authorizations.
type RMARepository interface {
	// Create returns ErrActiveRMA when rma is active and the ticket already
	// has an active RMA.
	Create(ctx context.Context, rma *domain.RMA) error
	// UpdateWithStatus writes rma only while both stored track statuses still
	// equal the expected ones, returning ErrStaleWrite otherwise.
	UpdateWithStatus(ctx context.Context, rma *domain.RMA, expected domain.RMAStatus, expectedReplacement *domain.RMAStatus) error
	GetByID(ctx context.Context, id string) (*domain.RMA, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.RMA, error)
}

type rmaRepository struct {
	pool *pgxpool.Pool
}

// NewRMARepository returns a Postgres-backed implementation.
func NewRMARepository(pool *pgxpool.Pool) RMARepository {
	return &rmaRepository{pool: pool}
}

const rmaColumns = `id, rma_number, ticket_id, asset_id, type, status, reason, original_details_snapshot,
    repair_destination, destination_site_id, replacement_status, stock_source, source_site_id,
    replacement_asset_id, replacement_details, logistics, rejection_reason, requested_by, created_at, updated_at`

func rmaFields(m *domain.RMA) []any {
	return []any{
		&m.ID, &m.RMANumber, &m.TicketID, &m.AssetID, &m.Type, &m.Status, &m.Reason, &m.OriginalDetailsSnapshot,
		&m.RepairDestination, &m.DestinationSiteID, &m.ReplacementStatus, &m.StockSource, &m.SourceSiteID,
		&m.ReplacementAssetID, &m.ReplacementDetails, &m.Logistics, &m.RejectionReason, &m.RequestedBy, &m.CreatedAt, &m.UpdatedAt,
	}
}

func logisticsOrEmpty(entries []domain.Logistics) []domain.Logistics {
	if entries == nil {
		return []domain.Logistics{}
	}
	return entries
}

func (r *rmaRepository) Create(ctx context.Context, m *domain.RMA) error {
	query := `INSERT INTO rmas (` + rmaColumns + `, active) VALUES (` + placeholders(1, 21) + `)`
	_, err := r.pool.Exec(ctx, query,
		m.ID, m.RMANumber, m.TicketID, m.AssetID, m.Type, m.Status, m.Reason, m.OriginalDetailsSnapshot,
		m.RepairDestination, m.DestinationSiteID, m.ReplacementStatus, m.StockSource, m.SourceSiteID,
		m.ReplacementAssetID, m.ReplacementDetails, logisticsOrEmpty(m.Logistics), m.RejectionReason, m.RequestedBy,
		m.CreatedAt, m.UpdatedAt, m.IsActive(),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == activeRMAIndex {
		return fmt.Errorf("insert rma for ticket %s: %w", m.TicketID, ErrActiveRMA)
	}
	return mapWriteError(err, "insert rma")
}

func (r *rmaRepository) UpdateWithStatus(ctx context.Context, m *domain.RMA, expected domain.RMAStatus, expectedReplacement *domain.RMAStatus) error {
	const query = `
        UPDATE rmas SET status=$4, repair_destination=$5, destination_site_id=$6, replacement_status=$7,
            stock_source=$8, source_site_id=$9, replacement_asset_id=$10, replacement_details=$11,
            logistics=$12, rejection_reason=$13, updated_at=$14, active=$15
        WHERE id=$1 AND status=$2 AND replacement_status IS NOT DISTINCT FROM $3`
	cmd, err := r.pool.Exec(ctx, query,
		m.ID, expected, expectedReplacement,
		m.Status, m.RepairDestination, m.DestinationSiteID, m.ReplacementStatus,
		m.StockSource, m.SourceSiteID, m.ReplacementAssetID, m.ReplacementDetails,
		logisticsOrEmpty(m.Logistics), m.RejectionReason, m.UpdatedAt, m.IsActive(),
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.ErrStaleWrite
	}
	return nil
}

func (r *rmaRepository) GetByID(ctx context.Context, id string) (*domain.RMA, error) {
	var m domain.RMA
	if err := r.pool.QueryRow(ctx, `SELECT `+rmaColumns+` FROM rmas WHERE id=$1`, id).Scan(rmaFields(&m)...); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *rmaRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.RMA, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+rmaColumns+` FROM rmas WHERE ticket_id=$1 ORDER BY created_at DESC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.RMA{}
	for rows.Next() {
		var m domain.RMA
		if err := rows.Scan(rmaFields(&m)...); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
