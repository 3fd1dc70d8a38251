package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/runclub-api/internal/metrics" // rejection counter
	"github.com/iliyamo/runclub-api/internal/model"   // role parsing for the claim
	"github.com/iliyamo/runclub-api/internal/utils"   // Claims type returned by the verifier
)

// TokenVerifier validates a raw access token.  *utils.Issuer satisfies it.
type TokenVerifier interface {
	Parse(raw string) (*utils.Claims, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the resulting Principal in the request context.  Signature,
// issuer, audience and expiry are all checked by the verifier; any failure
// is reported as the same 401 so callers cannot tell which check failed.
// No server-side session state is consulted.
func JWTAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthenticated(c, "missing bearer token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if raw == "" {
				return unauthenticated(c, "missing bearer token")
			}

			claims, err := v.Parse(raw)
			if err != nil {
				c.Logger().Debugf("jwt rejected: %v", err)
				return unauthenticated(c, "invalid token")
			}

			role, err := model.ParseRole(claims.Role)
			if err != nil {
				role = model.RoleUnknown
			}
			c.Set(principalKey, Principal{
				UserID: claims.Subject,
				Email:  claims.Email,
				Name:   claims.Name,
				Role:   role,
			})
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context, msg string) error {
	metrics.ObserveRejection("unauthenticated")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
}
