package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/runclub-api/internal/config"
	"github.com/iliyamo/runclub-api/internal/model"
	"github.com/iliyamo/runclub-api/internal/utils"
)

const testSecret = "middleware-secret"

func newIssuer(t *testing.T) *utils.Issuer {
	t.Helper()
	iss, err := utils.NewIssuer(utils.IssuerConfig{Secret: testSecret, Issuer: "runclub-test", AccessTTL: time.Hour})
	require.NoError(t, err)
	return iss
}

func tokenFor(t *testing.T, iss *utils.Issuer, id string, roles ...model.Role) string {
	t.Helper()
	at, err := iss.NewAccessToken(model.User{ID: id, Email: id + "@club.test", DisplayName: "Test", Roles: roles})
	require.NoError(t, err)
	return at.Token
}

// serve runs a GET through mws and reports the status plus the principal
// the final handler saw.
func serve(t *testing.T, header string, mws ...echo.MiddlewareFunc) (int, *Principal) {
	t.Helper()
	e := echo.New()
	var seen *Principal
	e.GET("/x", func(c echo.Context) error {
		if p, ok := PrincipalFrom(c); ok {
			seen = &p
		}
		return c.NoContent(http.StatusOK)
	}, mws...)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code, seen
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	iss := newIssuer(t)
	code, p := serve(t, "Bearer "+tokenFor(t, iss, "u-1", model.RoleCoach), JWTAuth(iss))
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, p)
	assert.Equal(t, "u-1", p.UserID)
	assert.Equal(t, model.RoleCoach, p.Role)
}

func TestJWTAuthRejects(t *testing.T) {
	iss := newIssuer(t)
	other, err := utils.NewIssuer(utils.IssuerConfig{Secret: "someone-else", Issuer: "runclub-test"})
	require.NoError(t, err)
	expired := newIssuer(t).WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })

	cases := map[string]string{
		"no header":      "",
		"basic scheme":   "Basic dXNlcjpwYXNz",
		"empty bearer":   "Bearer ",
		"garbage":        "Bearer not.a.jwt",
		"foreign secret": "Bearer " + tokenFor(t, other, "u-1", model.RoleAdmin),
		"expired":        "Bearer " + tokenFor(t, expired, "u-1", model.RoleAdmin),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			code, p := serve(t, header, JWTAuth(iss))
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Nil(t, p)
		})
	}
}

func TestJWTAuthMapsForeignRoleToUnknown(t *testing.T) {
	iss := newIssuer(t)
	now := time.Now()
	claims := utils.Claims{
		Role: "Superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-9",
			Issuer:    "runclub-test",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	code, p := serve(t, "Bearer "+raw, JWTAuth(iss))
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, p)
	assert.Equal(t, model.RoleUnknown, p.Role)

	// Unknown never satisfies a role requirement.
	code, _ = serve(t, "Bearer "+raw, JWTAuth(iss), RequireRole(model.RoleAdmin, model.RoleCoach, model.RoleRunner, model.RoleUnknown))
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRequireRole(t *testing.T) {
	iss := newIssuer(t)
	admin := "Bearer " + tokenFor(t, iss, "a", model.RoleAdmin)
	runner := "Bearer " + tokenFor(t, iss, "r", model.RoleRunner)

	code, _ := serve(t, admin, JWTAuth(iss), RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusOK, code)

	code, _ = serve(t, runner, JWTAuth(iss), RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = serve(t, runner, JWTAuth(iss), RequireRole(model.RoleAdmin, model.RoleRunner))
	assert.Equal(t, http.StatusOK, code)

	// Without JWTAuth in front there is no principal at all.
	code, _ = serve(t, runner, RequireRole(model.RoleRunner))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPrincipalCanActOn(t *testing.T) {
	runner := Principal{UserID: "u-1", Role: model.RoleRunner}
	assert.True(t, runner.CanActOn("u-1"))
	assert.False(t, runner.CanActOn("u-2"))

	admin := Principal{UserID: "a-1", Role: model.RoleAdmin}
	assert.True(t, admin.CanActOn("u-2"))
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/auth/login")

	cfg := config.RateLimitConfig{Prefix: "rl:auth"}

	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:auth:ip:203.0.113.7", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip_route"
	assert.Equal(t, "rl:auth:ip:203.0.113.7:route:POST /api/auth/login", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:auth:user:anon", buildRateKey(cfg, c))

	c.Set(principalKey, Principal{UserID: "u-1", Role: model.RoleRunner})
	cfg.KeyStrategy = "ip_user"
	assert.Equal(t, "rl:auth:ip:203.0.113.7:user:u-1", buildRateKey(cfg, c))
}

func TestDisabledLimiterPassesThrough(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)
	code, _ := serve(t, "", mw)
	assert.Equal(t, http.StatusOK, code)

	mw = NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil)
	code, _ = serve(t, "", mw)
	assert.Equal(t, http.StatusOK, code)
}
