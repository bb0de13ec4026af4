package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/gatehouse/internal/gate"
	"github.com/keyxmakerx/gatehouse/internal/plugins/admin"
	"github.com/keyxmakerx/gatehouse/internal/plugins/auth"
)

// RegisterRoutes wires all HTTP routes onto the Echo instance.
func (a *App) RegisterRoutes() {
	// Health check for load balancers and uptime monitors. Listed in the
	// gate's skip set so it never touches the auth pipeline.
	a.Echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	auth.RegisterRoutes(a.Echo, auth.NewHandler(a.Auth, a.Config.Auth.TokenTTL, a.Config.Auth.RefreshTTL))
	admin.RegisterRoutes(a.Echo, admin.NewHandler(a.Users))

	// Dashboard echoes back the derived request context so operators (and
	// the integration tests) can see exactly what the gate resolved.
	a.Echo.GET("/dashboard", dashboardHandler)
}

// dashboardHandler returns the identity and routing context the gate derived
// for the current request.
func dashboardHandler(c echo.Context) error {
	rc := gate.Context(c)
	if rc == nil {
		// The gate redirects unauthenticated requests before they get here,
		// so a nil context means a misconfigured route table.
		return c.Redirect(http.StatusSeeOther, gate.LoginPath)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"userId":      rc.UserID,
		"email":       rc.Email,
		"role":        rc.Role,
		"permissions": rc.Permissions,
		"tenantId":    rc.TenantID,
		"region":      rc.Region,
		"abVariant":   rc.ABVariant,
		"locale":      rc.Locale,
	})
}
