package gate

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/gatehouse/internal/apperror"
	"github.com/keyxmakerx/gatehouse/internal/rbac"
)

// RequireAccess returns a page-level guard to layer on top of the gate
// middleware. The gate already guarantees a valid token; this guard adds
// role and permission constraints for a specific route group. An
// unauthenticated viewer (no RequestContext -- the gate was not applied or
// the route is public) is sent to login with a return path; an
// authenticated viewer failing the constraints gets a 403.
func RequireAccess(req rbac.Requirements) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc := Context(c)
			if rc == nil {
				q := url.Values{}
				q.Set(RedirectParam, c.Request().URL.Path)
				return c.Redirect(http.StatusSeeOther, LoginPath+"?"+q.Encode())
			}

			if !rc.Evaluator().Satisfies(req) {
				return apperror.NewForbidden("you don't have access to this resource")
			}

			return next(c)
		}
	}
}

// RequirePermissions is shorthand for RequireAccess with only permission
// constraints. All listed permissions are required.
func RequirePermissions(permissions ...string) echo.MiddlewareFunc {
	return RequireAccess(rbac.Requirements{Permissions: permissions})
}

// RequireRoles is shorthand for RequireAccess with only role constraints.
// Any listed role suffices.
func RequireRoles(roles ...rbac.Role) echo.MiddlewareFunc {
	return RequireAccess(rbac.Requirements{Roles: roles})
}
