// Package rbac defines the role and permission model for Gatehouse.
// Roles are coarse identity tiers; permissions are fine-grained
// "resource:action" capability strings carried inside the bearer token.
// Request-time authorization trusts the token's embedded permission set --
// the registry below is only consulted when an account is created.
package rbac

// Role is a coarse-grained identity tier.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
	RoleGuest   Role = "guest"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser, RoleGuest:
		return true
	}
	return false
}

// Permission constants. The string form is "resource:action".
const (
	PermUserCreate      = "user:create"
	PermUserRead        = "user:read"
	PermUserUpdate      = "user:update"
	PermUserDelete      = "user:delete"
	PermAnalyticsView   = "analytics:view"
	PermAnalyticsExport = "analytics:export"
	PermReportCreate    = "report:create"
	PermReportRead      = "report:read"
	PermReportUpdate    = "report:update"
	PermReportDelete    = "report:delete"
	PermSettingsRead    = "settings:read"
	PermSettingsUpdate  = "settings:update"
)

// rolePermissions maps each role to its default permission set. Each higher
// tier is a superset of the tier below it. This is not structurally enforced;
// keep the table consistent when editing.
var rolePermissions = map[Role][]string{
	RoleAdmin: {
		PermUserCreate,
		PermUserRead,
		PermUserUpdate,
		PermUserDelete,
		PermAnalyticsView,
		PermAnalyticsExport,
		PermReportCreate,
		PermReportRead,
		PermReportUpdate,
		PermReportDelete,
		PermSettingsRead,
		PermSettingsUpdate,
	},
	RoleManager: {
		PermUserRead,
		PermUserUpdate,
		PermAnalyticsView,
		PermAnalyticsExport,
		PermReportCreate,
		PermReportRead,
		PermReportUpdate,
		PermSettingsRead,
	},
	RoleUser: {
		PermUserRead,
		PermAnalyticsView,
		PermReportRead,
		PermSettingsRead,
	},
	RoleGuest: {},
}

// DefaultPermissions returns a copy of the default permission set for the
// given role. Unknown roles get an empty set. Callers may mutate the result.
func DefaultPermissions(role Role) []string {
	perms, ok := rolePermissions[role]
	if !ok {
		return []string{}
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
