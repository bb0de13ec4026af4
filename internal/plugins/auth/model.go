// Package auth implements the token-issuing side of Gatehouse: login,
// registration, logout, token refresh, and the session-introspection
// endpoint the client SDK reconciles against. Bearer tokens are stateless
// (the edge gate validates them without touching storage); only refresh
// tokens live server-side, in Redis.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"time"

	"github.com/keyxmakerx/gatehouse/internal/rbac"
)

// User is the principal: the domain model used throughout the application
// and the JSON shape returned by the login and introspection endpoints.
// Permissions normally mirror the role's default set from rbac, but the
// request pipeline only ever trusts the copy embedded in the token.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	Role         rbac.Role `json:"role"`
	Permissions  []string  `json:"permissions"`
	TenantID     string    `json:"tenantId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// RegisterRequest is the POST /api/auth/register body.
type RegisterRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email,max=255"`
	Name     string `json:"name" form:"name" validate:"required,min=2,max=100"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=128"`
}

// --- Service Input DTOs (passed from handler to service) ---

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// RegisterInput is the validated input for creating a new user. The role
// defaults to rbac.RoleUser; permissions are seeded from the role's default
// set at creation time.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
	TenantID string
}

// LoginResult is what a successful authentication produces: the principal
// plus the two credentials the handler turns into cookies.
type LoginResult struct {
	User         *User
	Token        string
	RefreshToken string
}
