package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/runclub-api/internal/model"
	"github.com/iliyamo/runclub-api/internal/repository"
	"github.com/iliyamo/runclub-api/internal/utils"
)

// DefaultRefreshTTL is used when SessionManager is given a zero TTL.
const DefaultRefreshTTL = 7 * 24 * time.Hour

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// SessionManager owns the refresh-token state stored on each user: one
// active token per user, rotated on every use and cleared on revoke.
type SessionManager struct {
	users      UserStore
	issuer     *utils.Issuer
	refreshTTL time.Duration
	log        *slog.Logger
}

func NewSessionManager(users UserStore, issuer *utils.Issuer, refreshTTL time.Duration, logger *slog.Logger) *SessionManager {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{users: users, issuer: issuer, refreshTTL: refreshTTL, log: logger}
}

func (m *SessionManager) issue(u model.User) (TokenPair, error) {
	access, err := m.issuer.NewAccessToken(u)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := m.issuer.NewRefreshToken(m.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Rotate issues a fresh pair for an authenticated user and overwrites the
// stored refresh token, invalidating whatever was there.
func (m *SessionManager) Rotate(ctx context.Context, u model.User) (TokenPair, error) {
	pair, err := m.issue(u)
	if err != nil {
		return TokenPair{}, err
	}
	if err := m.users.SetRefresh(ctx, u.ID, utils.HashRefreshRaw(pair.Refresh.Raw), pair.Refresh.Exp); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

// Refresh exchanges a presented refresh token for a new pair.  The token
// must match the stored one and expire strictly after now.  The stored
// token is replaced with a compare-and-swap, so of two concurrent
// refreshes with the same token exactly one succeeds.
func (m *SessionManager) Refresh(ctx context.Context, raw string) (model.User, TokenPair, error) {
	if raw == "" {
		return model.User{}, TokenPair{}, ErrInvalidRefreshToken
	}
	hash := utils.HashRefreshRaw(raw)
	u, err := m.users.GetByRefreshHash(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		m.log.InfoContext(ctx, "refresh rejected", "reason", "no_match")
		return model.User{}, TokenPair{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return model.User{}, TokenPair{}, fmt.Errorf("lookup refresh token: %w", err)
	}
	now := m.issuer.Now()
	if u.RefreshTokenExpiry == nil || !u.RefreshTokenExpiry.After(now) {
		m.log.InfoContext(ctx, "refresh rejected", "reason", "expired", "user_id", u.ID)
		return model.User{}, TokenPair{}, ErrInvalidRefreshToken
	}

	pair, err := m.issue(u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	ok, err := m.users.SwapRefresh(ctx, u.ID, hash, utils.HashRefreshRaw(pair.Refresh.Raw), pair.Refresh.Exp, now)
	if err != nil {
		return model.User{}, TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !ok {
		m.log.WarnContext(ctx, "refresh rejected", "reason", "superseded", "user_id", u.ID)
		return model.User{}, TokenPair{}, ErrInvalidRefreshToken
	}
	return u, pair, nil
}

// Revoke clears the user's refresh token.  Unknown users and users with
// no active token are not errors.
func (m *SessionManager) Revoke(ctx context.Context, userID string) error {
	if err := m.users.ClearRefresh(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
