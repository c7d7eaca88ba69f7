package model

// Role is an account's access level. The set is closed.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Permission names a guarded capability, namespaced as "resource:verb".
type Permission string

const (
	// PermissionAll is the wildcard: a role holding it passes every
	// permission check.
	PermissionAll Permission = "*"

	PermissionUserRead   Permission = "user:read"
	PermissionUserWrite  Permission = "user:write"
	PermissionUserDelete Permission = "user:delete"
	PermissionRoleAssign Permission = "role:assign"

	PermissionCourseCreate Permission = "course:create"
	PermissionCourseUpdate Permission = "course:update"
	PermissionCourseDelete Permission = "course:delete"

	PermissionEnrollmentManage Permission = "enrollment:manage"
	PermissionGradeWrite       Permission = "grade:write"

	PermissionAuditRead Permission = "audit:read"
	PermissionStatsRead Permission = "stats:read"
)

// RolePermissions is the fixed role → permission mapping. Admin holds the
// wildcard; every other grant is explicit. Students act only on resources
// they own, which the ownership check covers without a permission grant.
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {PermissionAll},
	RoleInstructor: {
		PermissionUserRead,
		PermissionCourseCreate,
		PermissionCourseUpdate,
		PermissionEnrollmentManage,
		PermissionGradeWrite,
	},
	RoleStudent: {},
}

// Can reports whether the role's permission set contains p or the wildcard.
func (r Role) Can(p Permission) bool {
	for _, granted := range RolePermissions[r] {
		if granted == PermissionAll || granted == p {
			return true
		}
	}
	return false
}

// Valid reports whether r is one of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// ParseRole validates a raw role string against the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}
