// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type CreateUserRequest struct {
	Email         string `json:"email"         validate:"required,email,max=255"`
	Password      string `json:"password"      validate:"required,min=8,max=128"`
	Name          string `json:"name"          validate:"required,min=1,max=100"`
	Role          Role   `json:"role"          validate:"min=0,max=3"`
	IsTenantAdmin bool   `json:"isTenantAdmin"`
}

type UpdateRoleRequest struct {
	Role          Role `json:"role"          validate:"min=0,max=3"`
	IsTenantAdmin bool `json:"isTenantAdmin"`
}

type UserResponse struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenantId"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          Role      `json:"role"`
	RoleName      string    `json:"roleName"`
	IsTenantAdmin bool      `json:"isTenantAdmin"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type ListUsersParams struct {
	Page     int
	PageSize int
	Search   string
	Role     *Role
	Status   Status
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		TenantID:      u.TenantID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		RoleName:      u.Role.String(),
		IsTenantAdmin: u.IsTenantAdmin,
		Status:        u.Status,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}
