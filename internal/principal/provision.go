// AngelaMos | 2026
// provision.go

package principal

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/tenantgate/internal/core"
)

// NewSuperAdmin is an operator account created from the command line. There
// is no HTTP endpoint that creates super admins.
type NewSuperAdmin struct {
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=12,max=128"`
	Name     string `validate:"required,min=1,max=100"`
}

var provisionValidator = validator.New(validator.WithRequiredStructEnabled())

// CreateSuperAdmin stores an active, unlinked super admin. A second account
// with the same email fails with ErrDuplicateKey.
func CreateSuperAdmin(ctx context.Context, admins Repository, in NewSuperAdmin) (*SuperAdmin, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)

	if err := provisionValidator.Struct(in); err != nil {
		return nil, fmt.Errorf("create super admin: %s: %w", core.FormatValidationError(err), core.ErrInvalidInput)
	}

	hash, err := core.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create super admin: %w", err)
	}

	a := &SuperAdmin{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		IsActive:     true,
	}
	if err := admins.Create(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}
