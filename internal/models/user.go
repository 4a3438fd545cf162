package models

import "time"

// SiteAdminGroup is the group whose members triage and resolve reports.
const SiteAdminGroup = "site_admin"

// UserRole is the single authorization role carried by a session. It is derived from
// site_admin group membership when the session is issued.
type UserRole string

const (
	RoleSiteAdmin UserRole = "SITE_ADMIN"
	RoleRegular   UserRole = "REGULAR"
)

// RoleFromGroups derives the session role from a user's group memberships.
func RoleFromGroups(groups []string) UserRole {
	for _, g := range groups {
		if g == SiteAdminGroup {
			return RoleSiteAdmin
		}
	}
	return RoleRegular
}

// User represents an application account stored in the users table.
// LegacyRole mirrors the historical role column and is never used for authorization.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	IsSuperuser  bool       `db:"is_superuser" json:"is_superuser"`
	LegacyRole   string     `db:"role" json:"-"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	Groups       []string   `db:"-" json:"groups,omitempty"`
}

// Principal is the caller identity handed explicitly to every lifecycle and access check.
// The zero value is an anonymous caller.
type Principal struct {
	UserID      string
	Email       string
	FullName    string
	Role        UserRole
	IsSuperuser bool
}

// Authenticated reports whether the principal represents a logged-in user.
func (p *Principal) Authenticated() bool {
	return p != nil && p.UserID != ""
}

// ID returns the user id or an empty string for anonymous callers.
func (p *Principal) ID() string {
	if p == nil {
		return ""
	}
	return p.UserID
}
