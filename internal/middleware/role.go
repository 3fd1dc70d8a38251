package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/runclub-api/internal/metrics" // rejection counter
	"github.com/iliyamo/runclub-api/internal/model"   // role type and constants
)

// RequireRole returns a middleware function that enforces that the
// authenticated user has one of the specified roles.  It must run after
// JWTAuth.  A request without a principal gets 401; a principal whose
// role claim is outside the set gets 403.  RoleUnknown never matches.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	delete(allowed, model.RoleUnknown)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return unauthenticated(c, "unauthorized")
			}
			if !allowed[p.Role] {
				metrics.ObserveRejection("forbidden")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
