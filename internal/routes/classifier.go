// Package routes holds the static route tables and the classifier the edge
// gate uses to decide how a path is treated. The tables are configuration,
// not runtime state -- they are fixed at compile time and classification is
// a pure function, so it is safe to run on every request without locking.
package routes

import "strings"

// Public routes require no token at all. A matching path short-circuits the
// gate before any cookie is read, so a stale or garbage token never blocks a
// public page. "/" is special-cased to an exact match; as a prefix it would
// swallow every path.
var publicRoutes = []string{
	"/",
	"/login",
	"/register",
	"/forgot-password",
	"/api/auth/login",
	"/api/auth/register",
	"/api/auth/refresh",
}

// Admin routes additionally require the admin role on a valid token.
var adminRoutes = []string{
	"/admin",
	"/api/admin",
}

// protectedPrefix marks the authenticated application area.
const protectedPrefix = "/dashboard"

// RegionRoutes maps a region code to its region-scoped dashboard route.
var RegionRoutes = map[string]string{
	"CN": "/dashboard/cn",
	"US": "/dashboard/us",
	"EU": "/dashboard/eu",
	"AP": "/dashboard/ap",
}

// skipPrefixes are never touched by the gate: static assets, the favicon,
// and operational endpoints.
var skipPrefixes = []string{
	"/static",
	"/assets",
	"/favicon.ico",
	"/healthz",
}

// Classification is the derived category of a request path. It is recomputed
// per request and never stored.
type Classification struct {
	Public    bool
	AdminOnly bool
	Protected bool
}

// Classify categorizes a path against the static route tables. Public wins
// over everything else; exactly one flag is ever set.
func Classify(path string) Classification {
	if isPublic(path) {
		return Classification{Public: true}
	}
	for _, route := range adminRoutes {
		if strings.HasPrefix(path, route) {
			return Classification{AdminOnly: true}
		}
	}
	if strings.HasPrefix(path, protectedPrefix) {
		return Classification{Protected: true}
	}
	// Anything not in a table is treated as protected: the gate requires a
	// token for every non-public path.
	return Classification{Protected: true}
}

// Skip reports whether the gate should ignore this path entirely.
func Skip(path string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isPublic(path string) bool {
	for _, route := range publicRoutes {
		if route == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if strings.HasPrefix(path, route) {
			return true
		}
	}
	return false
}

// RegionRoute returns the region-scoped route for a region code, or the
// empty string when the region has no dedicated routing.
func RegionRoute(region string) string {
	return RegionRoutes[region]
}
