package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/runclub-api/internal/middleware"
	"github.com/iliyamo/runclub-api/internal/service"
)

// GetUser returns one account.  Routed behind RequireRole(Admin, Coach).
func (h *AuthHandler) GetUser(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	u, err := h.Svc.GetUser(c.Request().Context(), id)
	if errors.Is(err, service.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// DeleteUser removes an account.  A user may delete themselves; anyone
// else needs Admin.
func (h *AuthHandler) DeleteUser(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if !p.CanActOn(id) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	err := h.Svc.DeleteUser(c.Request().Context(), id)
	if errors.Is(err, service.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return c.NoContent(http.StatusNoContent)
}
