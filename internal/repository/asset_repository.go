package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/maintenance-desk/internal/domain"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// AssetFilter narrows asset listings. HOStock selects assets with no site.
type AssetFilter struct {
	SiteID    *string
	HOStock   bool
	Status    *domain.AssetStatus
	AssetType *string
	Limit     int
	Offset    int
}

// AssetRepository persists tracked devices.
type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	Update(ctx context.Context, asset *domain.Asset) error
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	List(ctx context.Context, filter AssetFilter) ([]domain.Asset, error)
}

type assetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository returns a Postgres-backed implementation.
func NewAssetRepository(pool *pgxpool.Pool) AssetRepository {
	return &assetRepository{pool: pool}
}

const assetColumns = `id, asset_code, asset_type, device_type, make, model, serial_number, site_id, status,
    criticality, location_name, ip_address, sealed_credentials, created_at, updated_at`

func assetFields(a *domain.Asset) []any {
	return []any{
		&a.ID, &a.AssetCode, &a.AssetType, &a.DeviceType, &a.Make, &a.Model, &a.SerialNumber, &a.SiteID, &a.Status,
		&a.Criticality, &a.LocationName, &a.IPAddress, &a.SealedCredentials, &a.CreatedAt, &a.UpdatedAt,
	}
}

func (r *assetRepository) Create(ctx context.Context, a *domain.Asset) error {
	query := `INSERT INTO assets (` + assetColumns + `) VALUES (` + placeholders(1, 15) + `)`
	_, err := r.pool.Exec(ctx, query,
		a.ID, a.AssetCode, a.AssetType, a.DeviceType, a.Make, a.Model, a.SerialNumber, a.SiteID, a.Status,
		a.Criticality, a.LocationName, a.IPAddress, a.SealedCredentials, a.CreatedAt, a.UpdatedAt,
	)
	return mapWriteError(err, "insert asset")
}

func (r *assetRepository) Update(ctx context.Context, a *domain.Asset) error {
	const query = `
        UPDATE assets SET asset_code=$2, asset_type=$3, device_type=$4, make=$5, model=$6, serial_number=$7,
            site_id=$8, status=$9, criticality=$10, location_name=$11, ip_address=$12, sealed_credentials=$13,
            updated_at=$14
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query,
		a.ID, a.AssetCode, a.AssetType, a.DeviceType, a.Make, a.Model, a.SerialNumber,
		a.SiteID, a.Status, a.Criticality, a.LocationName, a.IPAddress, a.SealedCredentials,
		a.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "update asset")
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	var asset domain.Asset
	if err := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id=$1`, id).Scan(assetFields(&asset)...); err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) List(ctx context.Context, filter AssetFilter) ([]domain.Asset, error) {
	clauses := []string{"1=1"}
	args := []any{}

	switch {
	case filter.HOStock:
		clauses = append(clauses, "site_id IS NULL")
	case filter.SiteID != nil:
		args = append(args, *filter.SiteID)
		clauses = append(clauses, fmt.Sprintf("site_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.AssetType != nil {
		args = append(args, *filter.AssetType)
		clauses = append(clauses, fmt.Sprintf("asset_type=$%d", len(args)))
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE %s ORDER BY asset_code ASC LIMIT %d OFFSET %d`,
		assetColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Asset{}
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(assetFields(&asset)...); err != nil {
			return nil, err
		}
		result = append(result, asset)
	}
	return result, rows.Err()
}
