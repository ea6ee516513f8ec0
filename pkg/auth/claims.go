package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pabloeorellana/orpos-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID      uuid.UUID
	TenantID    uuid.UUID
	Role        enums.MemberRole
	Permissions []string
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to clients. The
// permission set travels in the token; the core trusts it and never
// re-derives it.
type AccessTokenClaims struct {
	UserID      uuid.UUID        `json:"user_id"`
	TenantID    uuid.UUID        `json:"tenant_id"`
	Role        enums.MemberRole `json:"role"`
	Permissions []string         `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// IsSuperAdmin reports whether the token belongs to a platform operator.
func (c *AccessTokenClaims) IsSuperAdmin() bool {
	return c != nil && c.Role == enums.MemberRoleSuperAdmin
}

// HasPermission reports whether the claim set carries the named
// permission. Super admins implicitly hold every permission.
func (c *AccessTokenClaims) HasPermission(name string) bool {
	if c == nil {
		return false
	}
	if c.IsSuperAdmin() {
		return true
	}
	for _, p := range c.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
