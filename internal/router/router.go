package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp" // exposes the default registry over HTTP

	"github.com/iliyamo/runclub-api/internal/handler"    // import the handlers that implement the endpoints
	"github.com/iliyamo/runclub-api/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/iliyamo/runclub-api/internal/model"      // role constants for the gates
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems poll this to verify the service
	// is up.
	e.GET("/healthz", handler.Health)
}

// RegisterMetrics mounts the Prometheus scrape endpoint.  It belongs on the
// internal metrics listener, never on the public API instance.
func RegisterMetrics(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the credential endpoints and every protected route.
// Login, register and refresh live under /api/auth and sit behind the rate
// limiter; everything else requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, v middleware.TokenVerifier, limiter echo.MiddlewareFunc) {
	// Operations that do not require an existing session.
	g := e.Group("/api/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	// Any authenticated principal.  Revoke checks self-or-Admin itself.
	authed := middleware.JWTAuth(v)
	e.POST("/api/auth/revoke", a.Revoke, authed)
	e.GET("/api/auth/me", a.Me, authed)

	// Role administration is Admin only.
	roles := e.Group("/api/roles", authed, middleware.RequireRole(model.RoleAdmin))
	roles.GET("", a.ListRoles)
	roles.DELETE("/:name", a.DeleteRole)
	roles.POST("/assign", a.AssignRole)
	roles.POST("/remove", a.RemoveRole)

	users := e.Group("/api/users", authed)
	users.GET("/:id", a.GetUser, middleware.RequireRole(model.RoleAdmin, model.RoleCoach))
	users.DELETE("/:id", a.DeleteUser)
}
