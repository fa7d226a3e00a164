package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/maintenance-desk/internal/domain"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Role   *domain.Role
	SiteID *string
	Active *bool
}

// UserRepository defines persistence access for desk users. Emails are
// stored lower-cased.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, escalation_tier, site_ids, site_rights, active, created_at, updated_at`

func userFields(u *domain.User) []any {
	return []any{
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.EscalationTier,
		&u.SiteIDs, &u.SiteRights, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	}
}

func userArrays(u *domain.User) ([]string, []domain.SiteRight) {
	siteIDs, rights := u.SiteIDs, u.SiteRights
	if siteIDs == nil {
		siteIDs = []string{}
	}
	if rights == nil {
		rights = []domain.SiteRight{}
	}
	return siteIDs, rights
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	siteIDs, rights := userArrays(u)
	query := `INSERT INTO users (` + userColumns + `) VALUES (` + placeholders(1, 11) + `)`
	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Role, u.EscalationTier,
		siteIDs, rights, u.Active, u.CreatedAt, u.UpdatedAt,
	)
	return mapWriteError(err, "insert user")
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	siteIDs, rights := userArrays(u)
	const query = `
        UPDATE users SET name=$2, email=$3, password_hash=$4, role=$5, escalation_tier=$6,
            site_ids=$7, site_rights=$8, active=$9, updated_at=$10
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query,
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Role, u.EscalationTier,
		siteIDs, rights, u.Active, u.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "update user")
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id).Scan(userFields(&user)...); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	if err := r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(userFields(&user)...); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.SiteID != nil {
		args = append(args, *filter.SiteID)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(site_ids)", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY name ASC`, userColumns, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(userFields(&user)...); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
