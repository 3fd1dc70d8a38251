package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/runclub-api/internal/model"
	"github.com/iliyamo/runclub-api/internal/repository"
	"github.com/iliyamo/runclub-api/internal/utils"
)

const testPassword = "Abcd12!@"

type recordingNotifier struct {
	mu    sync.Mutex
	users []model.User
	err   error
}

func (n *recordingNotifier) NotifyRegistered(_ context.Context, u model.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, u)
	return n.err
}

type fixture struct {
	svc      *AuthService
	store    *repository.MemoryStore
	issuer   *utils.Issuer
	notifier *recordingNotifier
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	f := &fixture{clock: &clock, notifier: &recordingNotifier{}}

	iss, err := utils.NewIssuer(utils.IssuerConfig{Secret: "test-secret", Issuer: "runclub-test", AccessTTL: time.Hour})
	require.NoError(t, err)
	f.issuer = iss.WithClock(func() time.Time { return *f.clock })

	f.store = repository.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := NewSessionManager(f.store, f.issuer, 7*24*time.Hour, logger)
	f.svc = NewAuthService(f.store, f.store.RoleCatalog(), sessions, Options{
		BcryptCost: bcrypt.MinCost,
		Notifier:   f.notifier,
		Logger:     logger,
	})
	require.NoError(t, f.svc.EnsureRoleCatalog(context.Background()))
	return f
}

func (f *fixture) register(t *testing.T, email string) model.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), Registration{
		Email: email, Name: "Anna", Password: testPassword, ConfirmPassword: testPassword,
	})
	require.NoError(t, err)
	return u
}

func TestLoginSubjectIsUserID(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")

	res, err := f.svc.Login(context.Background(), "A@x.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	claims, err := f.issuer.Parse(res.Tokens.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, "Runner", claims.Role)
	assert.True(t, f.clock.Add(time.Hour).Equal(res.Tokens.Access.Exp))
	assert.True(t, f.clock.Add(7*24*time.Hour).Equal(res.Tokens.Refresh.Exp))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")
	ctx := context.Background()

	wrongPw, errWrong := f.svc.Login(ctx, "a@x.com", "wrong")
	noUser, errMissing := f.svc.Login(ctx, "nobody@x.com", testPassword)

	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.ErrorIs(t, errMissing, ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errMissing.Error())
	assert.Equal(t, AuthResult{}, wrongPw)
	assert.Equal(t, AuthResult{}, noUser)
}

func TestRefreshSucceedsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "a@x.com", testPassword)
	require.NoError(t, err)

	first, err := f.svc.RefreshToken(ctx, login.Tokens.Refresh.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.Refresh.Raw, first.Tokens.Refresh.Raw)

	_, err = f.svc.RefreshToken(ctx, login.Tokens.Refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.svc.RefreshToken(ctx, first.Tokens.Refresh.Raw)
	assert.NoError(t, err)
}

func TestLoginSupersedesPreviousRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")
	ctx := context.Background()

	one, err := f.svc.Login(ctx, "a@x.com", testPassword)
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "a@x.com", testPassword)
	require.NoError(t, err)

	_, err = f.svc.RefreshToken(ctx, one.Tokens.Refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefreshExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "a@x.com", testPassword)
	require.NoError(t, err)
	expiry := login.Tokens.Refresh.Exp

	*f.clock = expiry
	_, err = f.svc.RefreshToken(ctx, login.Tokens.Refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "expiry == now is expired")

	*f.clock = expiry.Add(-time.Nanosecond)
	_, err = f.svc.RefreshToken(ctx, login.Tokens.Refresh.Raw)
	assert.NoError(t, err)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RefreshToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = f.svc.RefreshToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestConcurrentRefreshHasSingleWinner(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "a@x.com", testPassword)
	require.NoError(t, err)

	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RefreshToken(ctx, login.Tokens.Refresh.Raw)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrInvalidRefreshToken):
				losses.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(15), losses.Load())
}

func TestRevokeIsIdempotentAndBlocksRefresh(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "a@x.com", testPassword)
	require.NoError(t, err)

	require.NoError(t, f.svc.RevokeRefreshToken(ctx, u.ID))
	require.NoError(t, f.svc.RevokeRefreshToken(ctx, u.ID))
	require.NoError(t, f.svc.RevokeRefreshToken(ctx, "no-such-user"))

	_, err = f.svc.RefreshToken(ctx, login.Tokens.Refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRegisterForcesRunner(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.Register(context.Background(), Registration{
		Email: "a@x.com", Name: "Anna", Password: testPassword, ConfirmPassword: testPassword, Role: "Admin",
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleRunner}, u.Roles)
	require.Len(t, f.notifier.users, 1)
	assert.Equal(t, u.ID, f.notifier.users[0].ID)
}

func TestRegisterNotifierFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	f.register(t, "a@x.com")
}

func TestRegisterValidation(t *testing.T) {
	longPassword := "Aa1!" + strings.Repeat("x", 80)
	f := newFixture(t)
	f.register(t, "a@x.com")
	ctx := context.Background()

	cases := []struct {
		name string
		reg  Registration
		want error
	}{
		{"bad email", Registration{Email: "not-an-email", Name: "N", Password: testPassword, ConfirmPassword: testPassword}, ErrInvalidEmail},
		{"missing name", Registration{Email: "b@x.com", Password: testPassword, ConfirmPassword: testPassword}, ErrMissingName},
		{"mismatch", Registration{Email: "b@x.com", Name: "N", Password: testPassword, ConfirmPassword: "Abcd12!#"}, ErrPasswordMismatch},
		{"weak", Registration{Email: "b@x.com", Name: "N", Password: "abc", ConfirmPassword: "abc"}, ErrWeakPassword},
		{"short multibyte", Registration{Email: "b@x.com", Name: "N", Password: "Ää1!", ConfirmPassword: "Ää1!"}, ErrWeakPassword},
		{"past bcrypt limit", Registration{Email: "b@x.com", Name: "N", Password: longPassword, ConfirmPassword: longPassword}, ErrWeakPassword},
		{"duplicate", Registration{Email: "A@X.COM", Name: "N", Password: testPassword, ConfirmPassword: testPassword}, ErrDuplicateEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tc.reg)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, isRegistrationFailure(err))
		})
	}
}

func TestAssignedRoleAppearsInNextToken(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")
	ctx := context.Background()

	login, err := f.svc.Login(ctx, "a@x.com", testPassword)
	require.NoError(t, err)

	require.NoError(t, f.svc.AssignRole(ctx, u.ID, "admin"))
	res, err := f.svc.RefreshToken(ctx, login.Tokens.Refresh.Raw)
	require.NoError(t, err)
	claims, err := f.issuer.Parse(res.Tokens.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "Admin", claims.Role)

	assert.ErrorIs(t, f.svc.AssignRole(ctx, u.ID, "Superuser"), model.ErrUnknownRole)
	assert.ErrorIs(t, f.svc.AssignRole(ctx, "missing", "Coach"), ErrUserNotFound)
}

func TestRoleCatalogPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.DeleteRole(ctx, "Admin"), ErrProtectedRole)
	assert.ErrorIs(t, f.svc.DeleteRole(ctx, "runner"), ErrProtectedRole)
	require.NoError(t, f.svc.DeleteRole(ctx, "Coach"))
	assert.ErrorIs(t, f.svc.DeleteRole(ctx, "Coach"), ErrRoleNotFound)

	roles, err := f.svc.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	// Registration still works with Coach gone.
	f.register(t, "after@x.com")

	require.NoError(t, f.svc.EnsureRoleCatalog(ctx))
	roles, err = f.svc.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 3)
}

func TestAssignRoleByEmailAndRemove(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")
	ctx := context.Background()

	u, err := f.svc.AssignRoleByEmail(ctx, "a@x.com", "Coach")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCoach, u.PrimaryRole())

	require.NoError(t, f.svc.RemoveRole(ctx, u.ID, "Coach"))
	u, err = f.svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleRunner, u.PrimaryRole())

	_, err = f.svc.AssignRoleByEmail(ctx, "nobody@x.com", "Coach")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")
	ctx := context.Background()

	require.NoError(t, f.svc.DeleteUser(ctx, u.ID))
	assert.ErrorIs(t, f.svc.DeleteUser(ctx, u.ID), ErrUserNotFound)
	_, err := f.svc.Login(ctx, "a@x.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
