package model

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleSystemAdmin Role = "SYSTEM_ADMIN"
	RoleDeptAdmin   Role = "DEPT_ADMIN"
	RoleUser        Role = "USER"
)

// IsAdmin reports whether the role may act on other users' records.
func (r Role) IsAdmin() bool { return r == RoleSystemAdmin || r == RoleDeptAdmin }

// Principal identifies the authenticated caller of an operation.
type Principal struct {
	UserID uint64
	Role   Role
}

// Owns reports whether p is the owner of a record or an administrator.
func (p Principal) Owns(userID uint64) bool { return p.UserID == userID || p.Role.IsAdmin() }
