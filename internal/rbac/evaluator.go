package rbac

// Evaluator answers permission and role questions about a single principal.
// It is a pure value; build one from whatever carries the principal's role
// and permission set (a decoded token, a session snapshot) and throw it away.
// The zero Evaluator represents "no principal" and fails every check.
type Evaluator struct {
	role  Role
	perms map[string]struct{}
}

// NewEvaluator builds an Evaluator for the given role and permission set.
func NewEvaluator(role Role, permissions []string) *Evaluator {
	perms := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		perms[p] = struct{}{}
	}
	return &Evaluator{role: role, perms: perms}
}

// HasPermission reports whether the principal holds the given permission.
func (e *Evaluator) HasPermission(permission string) bool {
	if e == nil {
		return false
	}
	_, ok := e.perms[permission]
	return ok
}

// HasAnyPermission reports whether the principal holds at least one of the
// given permissions (OR).
func (e *Evaluator) HasAnyPermission(permissions ...string) bool {
	if e == nil {
		return false
	}
	for _, p := range permissions {
		if _, ok := e.perms[p]; ok {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the principal holds every one of the
// given permissions (AND). An empty list is trivially satisfied.
func (e *Evaluator) HasAllPermissions(permissions ...string) bool {
	if e == nil {
		return false
	}
	for _, p := range permissions {
		if _, ok := e.perms[p]; ok {
			continue
		}
		return false
	}
	return true
}

// Can is the combinator used by rendering guards. A single permission checks
// simple membership; multiple permissions require ALL of them. The AND
// semantics for lists is deliberate -- use HasAnyPermission for OR.
func (e *Evaluator) Can(permissions ...string) bool {
	if len(permissions) == 1 {
		return e.HasPermission(permissions[0])
	}
	return e.HasAllPermissions(permissions...)
}

// IsRole reports whether the principal has exactly the given role.
func (e *Evaluator) IsRole(role Role) bool {
	return e != nil && e.role == role
}

// IsAnyRole reports whether the principal's role is in the given list.
func (e *Evaluator) IsAnyRole(roles ...Role) bool {
	if e == nil {
		return false
	}
	for _, r := range roles {
		if e.role == r {
			return true
		}
	}
	return false
}

// Role returns the principal's role, or RoleGuest for a nil evaluator.
func (e *Evaluator) Role() Role {
	if e == nil {
		return RoleGuest
	}
	return e.role
}

// Permissions returns the principal's permission set as a fresh slice.
// Order is unspecified.
func (e *Evaluator) Permissions() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.perms))
	for p := range e.perms {
		out = append(out, p)
	}
	return out
}

// Requirements describes the access constraints of a page or component:
// the principal must hold one of Roles (if any are listed) and ALL of
// Permissions (if any are listed).
type Requirements struct {
	Roles       []Role
	Permissions []string
}

// Empty reports whether no constraints are set.
func (r Requirements) Empty() bool {
	return len(r.Roles) == 0 && len(r.Permissions) == 0
}

// Satisfies reports whether the principal passes every constraint in req.
// Role lists are OR'd, permission lists are AND'd, and the two groups are
// AND'd together.
func (e *Evaluator) Satisfies(req Requirements) bool {
	if e == nil {
		return req.Empty()
	}
	if len(req.Roles) > 0 && !e.IsAnyRole(req.Roles...) {
		return false
	}
	if len(req.Permissions) > 0 && !e.HasAllPermissions(req.Permissions...) {
		return false
	}
	return true
}
