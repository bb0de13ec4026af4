package admin

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/gatehouse/internal/gate"
	"github.com/keyxmakerx/gatehouse/internal/rbac"
)

// RegisterRoutes sets up the admin API. The gate rejects non-admin tokens
// for the whole /api/admin prefix; the per-route guards additionally require
// the matching user permission from the token.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/admin")

	g.GET("/users", h.ListUsers, gate.RequirePermissions(rbac.PermUserRead))
	g.PUT("/users/:id/role", h.UpdateRole, gate.RequirePermissions(rbac.PermUserUpdate))
}
