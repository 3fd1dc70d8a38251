package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/runclub-api/internal/middleware"
	"github.com/iliyamo/runclub-api/internal/model"
	"github.com/iliyamo/runclub-api/internal/service"
)

// AuthHandler serves the credential endpoints under /api/auth.
type AuthHandler struct {
	Svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	if svc == nil {
		panic("nil service passed to NewAuthHandler")
	}
	return &AuthHandler{Svc: svc}
}

// ----- DTOs -----

type registerReq struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"` // ignored; registrants are always Runner
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type revokeReq struct {
	UserID string `json:"userId"`
}

type userPart struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}
type authResp struct {
	AccessToken         string    `json:"accessToken"`
	AccessTokenExpires  time.Time `json:"accessTokenExpires"`
	RefreshToken        string    `json:"refreshToken"`
	RefreshTokenExpires time.Time `json:"refreshTokenExpires"`
	User                userPart  `json:"user"`
}

func toUserPart(u model.User) userPart {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, r.String())
	}
	return userPart{ID: u.ID, Email: u.Email, Name: u.DisplayName, Roles: roles}
}

func toAuthResp(res service.AuthResult) authResp {
	return authResp{
		AccessToken:         res.Tokens.Access.Token,
		AccessTokenExpires:  res.Tokens.Access.Exp,
		RefreshToken:        res.Tokens.Refresh.Raw,
		RefreshTokenExpires: res.Tokens.Refresh.Exp,
		User:                toUserPart(res.User),
	}
}

// Login: verify credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	res, err := h.Svc.Login(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return c.JSON(http.StatusOK, toAuthResp(res))
}

// Register: create a Runner account.  Tokens are not issued; the client
// logs in afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	_, err := h.Svc.Register(c.Request().Context(), service.Registration{
		Email:           req.Email,
		Name:            req.Name,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            req.Role,
	})
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "registration successful"})
	case errors.Is(err, service.ErrDuplicateEmail):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "registration failed"})
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrMissingName),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrWeakPassword):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return fmt.Errorf("register: %w", err)
}

// Refresh: exchange a refresh token for a new pair.  The presented token
// is consumed.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}

	res, err := h.Svc.RefreshToken(c.Request().Context(), strings.TrimSpace(req.RefreshToken))
	if errors.Is(err, service.ErrInvalidRefreshToken) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return c.JSON(http.StatusOK, toAuthResp(res))
}

// Revoke clears a user's refresh token (protected).  An empty userId
// means the caller.  Only Admin may revoke someone else.
func (h *AuthHandler) Revoke(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req revokeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	target := strings.TrimSpace(req.UserID)
	if target == "" {
		target = p.UserID
	}
	if !p.CanActOn(target) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Svc.RevokeRefreshToken(c.Request().Context(), target); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the principal carried by the access token.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"userId": p.UserID,
		"email":  p.Email,
		"name":   p.Name,
		"role":   p.Role.String(),
	})
}
