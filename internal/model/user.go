package model

import (
	"errors"
	"strings"
	"time"
)

// Role is one entry of the fixed role catalog. Values are the exact
// strings carried in the access token's "role" claim.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleCoach  Role = "Coach"
	RoleRunner Role = "Runner"

	// RoleUnknown is emitted as the role claim for users that hold no
	// catalog role. It is never assignable and never satisfies a role
	// requirement.
	RoleUnknown Role = "Unknown"
)

// ErrUnknownRole is returned by ParseRole for names outside the catalog.
var ErrUnknownRole = errors.New("unknown role")

// Catalog returns the roles in precedence order.
func Catalog() []Role {
	return []Role{RoleAdmin, RoleCoach, RoleRunner}
}

// ParseRole matches name case-insensitively against the catalog.
func ParseRole(name string) (Role, error) {
	name = strings.TrimSpace(name)
	for _, r := range Catalog() {
		if strings.EqualFold(name, string(r)) {
			return r, nil
		}
	}
	return "", ErrUnknownRole
}

// Normalized is the case-folded form stored in roles.normalized_name.
func (r Role) Normalized() string { return strings.ToUpper(string(r)) }

func (r Role) String() string { return string(r) }

// User represents a row of the `users` table together with the names of
// the roles joined from `user_roles`.
//
// Fields:
//
//	ID                 – UUID primary key.
//	Email              – unique login name, stored lower-cased.
//	DisplayName        – name shown to other members.
//	PasswordHash       – bcrypt hash.
//	Roles              – assigned catalog roles, in catalog order.
//	RefreshTokenHash   – SHA‑256 hex of the active refresh token, empty when none.
//	RefreshTokenExpiry – expiry of the active refresh token (nil when none).
type User struct {
	ID                 string
	Email              string
	DisplayName        string
	PasswordHash       string
	Roles              []Role
	RefreshTokenHash   string
	RefreshTokenExpiry *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasRole reports whether r is among the user's roles.
func (u User) HasRole(r Role) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// PrimaryRole is the role embedded in access tokens: the first catalog
// role the user holds, or RoleUnknown.
func (u User) PrimaryRole() Role {
	for _, r := range Catalog() {
		if u.HasRole(r) {
			return r
		}
	}
	return RoleUnknown
}

// SortRoles orders roles by catalog precedence and drops duplicates and
// anything outside the catalog.
func SortRoles(in []Role) []Role {
	out := make([]Role, 0, len(in))
	for _, r := range Catalog() {
		for _, have := range in {
			if have == r {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// RoleEntry mirrors a row of the `roles` table.
type RoleEntry struct {
	ID             uint8
	Name           Role
	NormalizedName string
}
