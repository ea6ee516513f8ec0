package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
)

// LoginRequest captures the operator credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the expired access token's pair for rotation.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserDTO is the operator shape exposed by the API.
type UserDTO struct {
	ID          uuid.UUID        `json:"id"`
	TenantID    uuid.UUID        `json:"tenant_id"`
	Email       string           `json:"email"`
	FullName    string           `json:"full_name"`
	Role        enums.MemberRole `json:"role"`
	Permissions []string         `json:"permissions"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
}

// LoginResponse contains the token pair and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         *UserDTO `json:"user"`
}

// RefreshResponse contains the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// FromModel maps a user row to its API shape.
func FromModel(user *models.User) *UserDTO {
	if user == nil {
		return nil
	}
	return &UserDTO{
		ID:          user.ID,
		TenantID:    user.TenantID,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        user.Role,
		Permissions: append([]string(nil), user.Permissions...),
		LastLoginAt: user.LastLoginAt,
	}
}
