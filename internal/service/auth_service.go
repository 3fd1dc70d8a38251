// Package service holds the authentication and role-management logic that
// sits between the HTTP handlers and the credential store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/iliyamo/runclub-api/internal/metrics"
	"github.com/iliyamo/runclub-api/internal/model"
	"github.com/iliyamo/runclub-api/internal/repository"
	"github.com/iliyamo/runclub-api/internal/utils"
)

// AuthResult is returned by Login and RefreshToken.
type AuthResult struct {
	User   model.User
	Tokens TokenPair
}

// Registration is the self-service sign-up request.  Role is accepted for
// compatibility with older clients and ignored.
type Registration struct {
	Email           string
	Name            string
	Password        string
	ConfirmPassword string
	Role            string
}

// Options tunes an AuthService.  Zero values are usable.
type Options struct {
	BcryptCost int
	Notifier   Notifier
	Logger     *slog.Logger
}

// AuthService composes the credential store and the session manager into
// the login, register, refresh and revoke operations, plus the
// administrative role and account operations.
type AuthService struct {
	users    UserStore
	roles    RoleStore
	sessions *SessionManager
	notifier Notifier
	cost     int
	log      *slog.Logger
}

func NewAuthService(users UserStore, roles RoleStore, sessions *SessionManager, opts Options) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		roles:    roles,
		sessions: sessions,
		notifier: opts.Notifier,
		cost:     opts.BcryptCost,
		log:      logger,
	}
}

// EnsureRoleCatalog makes sure Admin, Coach and Runner exist.  Run once
// before serving traffic.
func (s *AuthService) EnsureRoleCatalog(ctx context.Context) error {
	if err := s.roles.EnsureCatalog(ctx); err != nil {
		return fmt.Errorf("ensure role catalog: %w", err)
	}
	return nil
}

// Login verifies credentials and returns a new token pair.  An unknown
// email and a wrong password both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPasswordCheck(password)
		s.log.InfoContext(ctx, "login rejected", "reason", "unknown_email")
		metrics.ObserveAuth("login", metrics.OutcomeFailure)
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		metrics.ObserveAuth("login", metrics.OutcomeError)
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		s.log.InfoContext(ctx, "login rejected", "reason", "bad_password", "user_id", u.ID)
		metrics.ObserveAuth("login", metrics.OutcomeFailure)
		return AuthResult{}, ErrInvalidCredentials
	}
	pair, err := s.sessions.Rotate(ctx, u)
	if err != nil {
		metrics.ObserveAuth("login", metrics.OutcomeError)
		return AuthResult{}, err
	}
	metrics.ObserveAuth("login", metrics.OutcomeSuccess)
	return AuthResult{User: u, Tokens: pair}, nil
}

// Register creates a Runner account.  The requested role is never
// honoured; elevated roles are granted through AssignRole only.
func (s *AuthService) Register(ctx context.Context, r Registration) (model.User, error) {
	u, err := s.register(ctx, r)
	switch {
	case err == nil:
		metrics.ObserveAuth("register", metrics.OutcomeSuccess)
	case isRegistrationFailure(err):
		metrics.ObserveAuth("register", metrics.OutcomeFailure)
	default:
		metrics.ObserveAuth("register", metrics.OutcomeError)
	}
	return u, err
}

func isRegistrationFailure(err error) bool {
	for _, target := range []error{ErrInvalidEmail, ErrMissingName, ErrPasswordMismatch, ErrWeakPassword, ErrDuplicateEmail} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *AuthService) register(ctx context.Context, r Registration) (model.User, error) {
	email := repository.NormalizeEmail(r.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return model.User{}, ErrInvalidEmail
	}
	if strings.TrimSpace(r.Name) == "" {
		return model.User{}, ErrMissingName
	}
	if r.Password != r.ConfirmPassword {
		return model.User{}, ErrPasswordMismatch
	}
	if req := strings.TrimSpace(r.Role); req != "" && !strings.EqualFold(req, model.RoleRunner.String()) {
		s.log.WarnContext(ctx, "registration requested elevated role; ignored", "requested_role", req, "email", email)
	}

	u, err := s.users.Create(ctx, email, r.Name, r.Password, model.RoleRunner, s.cost)
	switch {
	case errors.Is(err, utils.ErrWeakPassword):
		return model.User{}, ErrWeakPassword
	case errors.Is(err, repository.ErrEmailExists):
		s.log.InfoContext(ctx, "registration rejected", "reason", "duplicate_email")
		return model.User{}, ErrDuplicateEmail
	case err != nil:
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyRegistered(ctx, u); err != nil {
			s.log.WarnContext(ctx, "verification notification failed", "user_id", u.ID, "error", err)
		}
	}
	return u, nil
}

// RefreshToken exchanges a refresh token for a new pair.
func (s *AuthService) RefreshToken(ctx context.Context, raw string) (AuthResult, error) {
	u, pair, err := s.sessions.Refresh(ctx, raw)
	switch {
	case err == nil:
		metrics.ObserveAuth("refresh", metrics.OutcomeSuccess)
	case errors.Is(err, ErrInvalidRefreshToken):
		metrics.ObserveAuth("refresh", metrics.OutcomeFailure)
	default:
		metrics.ObserveAuth("refresh", metrics.OutcomeError)
	}
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Tokens: pair}, nil
}

// RevokeRefreshToken clears the user's refresh token.  Idempotent.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, userID string) error {
	if err := s.sessions.Revoke(ctx, userID); err != nil {
		metrics.ObserveAuth("revoke", metrics.OutcomeError)
		return err
	}
	metrics.ObserveAuth("revoke", metrics.OutcomeSuccess)
	return nil
}
