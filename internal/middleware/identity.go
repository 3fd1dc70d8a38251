package middleware

// identity.go defines the authenticated principal that JWTAuth stores in the
// echo context and the helpers downstream handlers use to read it.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/runclub-api/internal/model"
)

const principalKey = "principal"

// Principal is the caller identity taken from a validated access token.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   model.Role
}

// IsAdmin reports whether the principal carries the Admin role.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// CanActOn reports whether the principal may manage the account userID:
// its own account, or any account for an Admin.
func (p Principal) CanActOn(userID string) bool {
	return p.UserID == userID || p.IsAdmin()
}

// PrincipalFrom returns the principal stored by JWTAuth.
func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

// userID returns the authenticated user id, or "anon" when the request
// carries no principal.
func userID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok && p.UserID != "" {
		return p.UserID
	}
	return "anon"
}
