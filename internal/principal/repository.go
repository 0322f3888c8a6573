// AngelaMos | 2026
// repository.go

package principal

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/tenantgate/internal/core"
)

// LoginState is the lockout bookkeeping after a failed attempt.
type LoginState struct {
	Attempts  int        `db:"login_attempts"`
	LockUntil *time.Time `db:"lock_until"`
}

type Repository interface {
	Create(ctx context.Context, admin *SuperAdmin) error
	GetByID(ctx context.Context, id string) (*SuperAdmin, error)
	GetByEmail(ctx context.Context, email string) (*SuperAdmin, error)
	List(ctx context.Context) ([]SuperAdmin, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	RehashPassword(ctx context.Context, id, passwordHash string) error
	// IncLoginAttempts is a single conditional UPDATE so concurrent failures
	// never lose an increment. An expired lock restarts the count at one.
	IncLoginAttempts(ctx context.Context, id string, policy LockPolicy, now time.Time) (LoginState, error)
	ResetLoginAttempts(ctx context.Context, id string) error
}

type LockPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const adminColumns = `id, email, password_hash, name, user_id, is_active, login_attempts,
		       lock_until, password_changed_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, admin *SuperAdmin) error {
	query := `
		INSERT INTO super_admins (id, email, password_hash, name, user_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, admin, query,
		admin.ID,
		admin.Email,
		admin.PasswordHash,
		admin.Name,
		admin.UserID,
		admin.IsActive,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create super admin: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create super admin: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*SuperAdmin, error) {
	return r.get(ctx, `SELECT `+adminColumns+` FROM super_admins WHERE id = $1`, id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*SuperAdmin, error) {
	return r.get(ctx, `SELECT `+adminColumns+` FROM super_admins WHERE lower(email) = lower($1)`, email)
}

func (r *repository) get(ctx context.Context, query, arg string) (*SuperAdmin, error) {
	var admin SuperAdmin
	err := r.db.GetContext(ctx, &admin, query, arg)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("get super admin: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get super admin: %w", err)
	}

	return &admin, nil
}

func (r *repository) List(ctx context.Context) ([]SuperAdmin, error) {
	var admins []SuperAdmin
	query := `SELECT ` + adminColumns + ` FROM super_admins ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &admins, query); err != nil {
		return nil, fmt.Errorf("list super admins: %w", err)
	}
	return admins, nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
	changedAt time.Time,
) error {
	query := `
		UPDATE super_admins
		SET password_hash = $2, password_changed_at = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash, changedAt)
	if err != nil {
		return fmt.Errorf("update super admin password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update super admin password: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update super admin password: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) RehashPassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE super_admins SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("rehash super admin password: %w", err)
	}
	return nil
}

func (r *repository) IncLoginAttempts(
	ctx context.Context,
	id string,
	policy LockPolicy,
	now time.Time,
) (LoginState, error) {
	query := `
		UPDATE super_admins
		SET login_attempts = CASE
		        WHEN lock_until IS NOT NULL AND lock_until <= $3 THEN 1
		        ELSE login_attempts + 1
		    END,
		    lock_until = CASE
		        WHEN lock_until IS NOT NULL AND lock_until <= $3 THEN NULL
		        WHEN lock_until IS NULL AND login_attempts + 1 >= $2 THEN $4::timestamptz
		        ELSE lock_until
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING login_attempts, lock_until`

	var state LoginState
	err := r.db.GetContext(ctx, &state, query, id, policy.MaxAttempts, now, now.Add(policy.Duration))
	if core.IsNoRows(err) {
		return LoginState{}, fmt.Errorf("inc login attempts: %w", core.ErrNotFound)
	}
	if err != nil {
		return LoginState{}, fmt.Errorf("inc login attempts: %w", err)
	}

	return state, nil
}

func (r *repository) ResetLoginAttempts(ctx context.Context, id string) error {
	query := `
		UPDATE super_admins
		SET login_attempts = 0, lock_until = NULL, updated_at = NOW()
		WHERE id = $1 AND (login_attempts <> 0 OR lock_until IS NOT NULL)`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	return nil
}
