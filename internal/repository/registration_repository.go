package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/maintenance-desk/internal/domain"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// RegistrationRepository persists client sign-up requests.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *domain.ClientRegistration) error
	Update(ctx context.Context, reg *domain.ClientRegistration) error
	GetByID(ctx context.Context, id string) (*domain.ClientRegistration, error)
	List(ctx context.Context, status *domain.RegistrationStatus) ([]domain.ClientRegistration, error)
}

type registrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository returns a Postgres-backed implementation.
func NewRegistrationRepository(pool *pgxpool.Pool) RegistrationRepository {
	return &registrationRepository{pool: pool}
}

const registrationColumns = `id, organization, contact_name, email, status, reviewed_by, reason, user_id, created_at, updated_at`

func registrationFields(g *domain.ClientRegistration) []any {
	return []any{&g.ID, &g.Organization, &g.ContactName, &g.Email, &g.Status, &g.ReviewedBy, &g.Reason, &g.UserID, &g.CreatedAt, &g.UpdatedAt}
}

func (r *registrationRepository) Create(ctx context.Context, g *domain.ClientRegistration) error {
	query := `INSERT INTO client_registrations (` + registrationColumns + `) VALUES (` + placeholders(1, 10) + `)`
	_, err := r.pool.Exec(ctx, query, g.ID, g.Organization, g.ContactName, g.Email, g.Status, g.ReviewedBy, g.Reason, g.UserID, g.CreatedAt, g.UpdatedAt)
	return mapWriteError(err, "insert registration")
}

func (r *registrationRepository) Update(ctx context.Context, g *domain.ClientRegistration) error {
	const query = `
        UPDATE client_registrations SET status=$2, reviewed_by=$3, reason=$4, user_id=$5, updated_at=$6
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, g.ID, g.Status, g.ReviewedBy, g.Reason, g.UserID, g.UpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.ClientRegistration, error) {
	var g domain.ClientRegistration
	query := `SELECT ` + registrationColumns + ` FROM client_registrations WHERE id=$1`
	if err := r.pool.QueryRow(ctx, query, id).Scan(registrationFields(&g)...); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *registrationRepository) List(ctx context.Context, status *domain.RegistrationStatus) ([]domain.ClientRegistration, error) {
	query := `SELECT ` + registrationColumns + ` FROM client_registrations WHERE ($1::text IS NULL OR status=$1) ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ClientRegistration{}
	for rows.Next() {
		var g domain.ClientRegistration
		if err := rows.Scan(registrationFields(&g)...); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}
