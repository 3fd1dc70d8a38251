package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/runclub-api/internal/model"
	"github.com/iliyamo/runclub-api/internal/service"
)

type roleAssignReq struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type roleEntryResp struct {
	ID             uint8  `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalizedName"`
}

// roleError maps role-administration failures to responses.  It reports
// false when err is not one it knows.
func roleError(c echo.Context, err error) (bool, error) {
	switch {
	case errors.Is(err, model.ErrUnknownRole):
		return true, c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	case errors.Is(err, service.ErrRoleNotFound):
		return true, c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	case errors.Is(err, service.ErrUserNotFound):
		return true, c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, service.ErrProtectedRole):
		return true, c.JSON(http.StatusConflict, echo.Map{"error": "role is protected"})
	}
	return false, nil
}

// ListRoles returns the role catalog.
func (h *AuthHandler) ListRoles(c echo.Context) error {
	entries, err := h.Svc.ListRoles(c.Request().Context())
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}
	out := make([]roleEntryResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, roleEntryResp{ID: e.ID, Name: e.Name.String(), NormalizedName: e.NormalizedName})
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": out})
}

// DeleteRole removes a role from the catalog (Admin only).
func (h *AuthHandler) DeleteRole(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	err := h.Svc.DeleteRole(c.Request().Context(), name)
	if err == nil {
		return c.NoContent(http.StatusNoContent)
	}
	if handled, werr := roleError(c, err); handled {
		return werr
	}
	return fmt.Errorf("delete role: %w", err)
}

func (h *AuthHandler) bindAssign(c echo.Context) (roleAssignReq, bool) {
	var req roleAssignReq
	if err := c.Bind(&req); err != nil {
		return req, false
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Role = strings.TrimSpace(req.Role)
	return req, req.UserID != "" && req.Role != ""
}

// AssignRole grants a role to a user.  The change shows up in the user's
// next access token, not in tokens already issued.
func (h *AuthHandler) AssignRole(c echo.Context) error {
	req, ok := h.bindAssign(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId and role required"})
	}
	err := h.Svc.AssignRole(c.Request().Context(), req.UserID, req.Role)
	if err == nil {
		return c.NoContent(http.StatusNoContent)
	}
	if handled, werr := roleError(c, err); handled {
		return werr
	}
	return fmt.Errorf("assign role: %w", err)
}

// RemoveRole takes a role away from a user.
func (h *AuthHandler) RemoveRole(c echo.Context) error {
	req, ok := h.bindAssign(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId and role required"})
	}
	err := h.Svc.RemoveRole(c.Request().Context(), req.UserID, req.Role)
	if err == nil {
		return c.NoContent(http.StatusNoContent)
	}
	if handled, werr := roleError(c, err); handled {
		return werr
	}
	return fmt.Errorf("remove role: %w", err)
}
