// Package gate is the edge request gatekeeper. Its middleware classifies
// every incoming path, validates the bearer token, enforces the admin-route
// rule, and enriches authorized requests with derived identity, tenant, and
// locale context before any handler runs. The pipeline is pure computation
// over the request and the static route tables -- no I/O -- so it sits in
// front of every route at negligible cost.
package gate

import (
	"encoding/json"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/gatehouse/internal/rbac"
)

// Cookie names. These are part of the wire contract with browsers and the
// session SDK -- do not rename.
const (
	TokenCookie        = "auth_token"
	RefreshTokenCookie = "refresh_token"
	ABTestCookie       = "ab_test_variant"
)

// Forwarded headers set by the gate for downstream handlers. A handler that
// sees X-User-Id can trust that token validation already succeeded.
const (
	HeaderUserID      = "X-User-Id"
	HeaderUserEmail   = "X-User-Email"
	HeaderUserRole    = "X-User-Role"
	HeaderPermissions = "X-User-Permissions"
	HeaderTenantID    = "X-Tenant-Id"
	HeaderRegion      = "X-Region"
	HeaderABVariant   = "X-Ab-Variant"
	HeaderLocale      = "X-Locale"
)

// Defaults applied when the request carries no explicit value.
const (
	DefaultRegion    = "US"
	DefaultABVariant = "control"
	DefaultLocale    = "en"
)

// Redirect targets.
const (
	LoginPath     = "/login"
	ForbiddenPath = "/403"
	RedirectParam = "redirect"
)

// contextKey is the Echo context key the gate stores the RequestContext
// under. Other packages access it via Context(c), never directly.
const contextKey = "gate_request_context"

// RequestContext is the request-scoped identity and routing context derived
// by the gate. It is immutable once set: downstream consumers read it via
// Context(c) and must not modify it.
type RequestContext struct {
	UserID      string
	Email       string
	Role        rbac.Role
	Permissions []string
	TenantID    string
	Region      string
	ABVariant   string
	Locale      string
}

// Evaluator returns a permission evaluator for the request's principal.
func (rc *RequestContext) Evaluator() *rbac.Evaluator {
	if rc == nil {
		return nil
	}
	return rbac.NewEvaluator(rc.Role, rc.Permissions)
}

// Context retrieves the RequestContext injected by the gate middleware.
// Returns nil on public or skipped paths where the gate set nothing.
func Context(c echo.Context) *RequestContext {
	rc, ok := c.Get(contextKey).(*RequestContext)
	if !ok {
		return nil
	}
	return rc
}

// UserID returns the authenticated user's ID, or "" when the request did
// not pass token validation.
func UserID(c echo.Context) string {
	if rc := Context(c); rc != nil {
		return rc.UserID
	}
	return ""
}

// TenantID returns the resolved tenant for the request, or "".
func TenantID(c echo.Context) string {
	if rc := Context(c); rc != nil {
		return rc.TenantID
	}
	return ""
}

// forward writes the derived context onto the request headers so that
// proxied or in-process handlers can consume it uniformly, and stashes the
// RequestContext in the Echo context.
func forward(c echo.Context, rc *RequestContext) {
	h := c.Request().Header

	perms, _ := json.Marshal(rc.Permissions)

	h.Set(HeaderUserID, rc.UserID)
	h.Set(HeaderUserEmail, rc.Email)
	h.Set(HeaderUserRole, string(rc.Role))
	h.Set(HeaderPermissions, string(perms))
	h.Set(HeaderTenantID, rc.TenantID)
	h.Set(HeaderRegion, rc.Region)
	h.Set(HeaderABVariant, rc.ABVariant)
	h.Set(HeaderLocale, rc.Locale)

	c.Set(contextKey, rc)
}
