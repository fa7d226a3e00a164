package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/maintenance-desk/internal/domain"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// SiteRepository persists physical sites.
type SiteRepository interface {
	Create(ctx context.Context, site *domain.Site) error
	Update(ctx context.Context, site *domain.Site) error
	GetByID(ctx context.Context, id string) (*domain.Site, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Site, error)
}

type siteRepository struct {
	pool *pgxpool.Pool
}

// NewSiteRepository returns a Postgres-backed implementation.
func NewSiteRepository(pool *pgxpool.Pool) SiteRepository {
	return &siteRepository{pool: pool}
}

const siteColumns = `id, code, name, region, address, is_head_office, is_active, created_at, updated_at`

func siteFields(s *domain.Site) []any {
	return []any{&s.ID, &s.Code, &s.Name, &s.Region, &s.Address, &s.IsHeadOffice, &s.IsActive, &s.CreatedAt, &s.UpdatedAt}
}

func (r *siteRepository) Create(ctx context.Context, s *domain.Site) error {
	query := `INSERT INTO sites (` + siteColumns + `) VALUES (` + placeholders(1, 9) + `)`
	_, err := r.pool.Exec(ctx, query, s.ID, s.Code, s.Name, s.Region, s.Address, s.IsHeadOffice, s.IsActive, s.CreatedAt, s.UpdatedAt)
	return mapWriteError(err, "insert site")
}

func (r *siteRepository) Update(ctx context.Context, s *domain.Site) error {
	const query = `
        UPDATE sites SET code=$2, name=$3, region=$4, address=$5, is_head_office=$6, is_active=$7, updated_at=$8
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, s.ID, s.Code, s.Name, s.Region, s.Address, s.IsHeadOffice, s.IsActive, s.UpdatedAt)
	if err != nil {
		return mapWriteError(err, "update site")
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *siteRepository) GetByID(ctx context.Context, id string) (*domain.Site, error) {
	var site domain.Site
	if err := r.pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE id=$1`, id).Scan(siteFields(&site)...); err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *siteRepository) List(ctx context.Context, activeOnly bool) ([]domain.Site, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+siteColumns+` FROM sites WHERE (is_active OR NOT $1) ORDER BY code ASC`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Site{}
	for rows.Next() {
		var site domain.Site
		if err := rows.Scan(siteFields(&site)...); err != nil {
			return nil, err
		}
		result = append(result, site)
	}
	return result, rows.Err()
}
