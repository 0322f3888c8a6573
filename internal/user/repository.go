// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/tenantgate/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetInTenant(ctx context.Context, tenantID, id string) (*User, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*User, error)
	UpdateRole(ctx context.Context, tenantID, id string, role Role, isTenantAdmin bool) error
	SetStatus(ctx context.Context, tenantID, id string, status Status) error
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	RehashPassword(ctx context.Context, id, passwordHash string) error
	SoftDelete(ctx context.Context, tenantID, id string) error
	List(ctx context.Context, tenantID string, params ListUsersParams) ([]User, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const userColumns = `id, tenant_id, email, password_hash, name, role, is_tenant_admin,
		       status, password_changed_at, created_at, updated_at, deleted_at`

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, tenant_id, email, password_hash, name, role,
		                   is_tenant_admin, status, password_changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.TenantID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
		user.IsTenantAdmin,
		user.Status,
		user.PasswordChangedAt,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return r.get(ctx, "get user", query, id)
}

func (r *repository) GetInTenant(ctx context.Context, tenantID, id string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	return r.get(ctx, "get user", query, tenantID, id)
}

func (r *repository) GetByEmail(ctx context.Context, tenantID, email string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND lower(email) = lower($2) AND deleted_at IS NULL`
	return r.get(ctx, "get user by email", query, tenantID, email)
}

func (r *repository) get(ctx context.Context, op, query string, args ...any) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, query, args...)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

func (r *repository) UpdateRole(
	ctx context.Context,
	tenantID, id string,
	role Role,
	isTenantAdmin bool,
) error {
	query := `
		UPDATE users
		SET role = $3, is_tenant_admin = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	return r.execOne(ctx, "update role", query, tenantID, id, role, isTenantAdmin)
}

func (r *repository) SetStatus(ctx context.Context, tenantID, id string, status Status) error {
	query := `
		UPDATE users
		SET status = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	return r.execOne(ctx, "set user status", query, tenantID, id, status)
}

// UpdatePassword stamps password_changed_at; tokens issued before that
// second stop verifying.
func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
	changedAt time.Time,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, password_changed_at = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	return r.execOne(ctx, "update password", query, id, passwordHash, changedAt)
}

// RehashPassword replaces the hash without touching password_changed_at, so
// live tokens survive a parameter upgrade.
func (r *repository) RehashPassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	return r.execOne(ctx, "rehash password", query, id, passwordHash)
}

func (r *repository) SoftDelete(ctx context.Context, tenantID, id string) error {
	query := `
		UPDATE users
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	return r.execOne(ctx, "delete user", query, tenantID, id)
}

func (r *repository) List(
	ctx context.Context,
	tenantID string,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	conditions := []string{"tenant_id = $1", "deleted_at IS NULL"}
	args := []any{tenantID}
	argIdx := 2

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, *params.Role)
		argIdx++
	}

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, where, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}
