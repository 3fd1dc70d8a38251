package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"     // secure random number generation
	"crypto/sha256"   // SHA‑256 hashing for refresh tokens
	"encoding/base64" // encoding of raw refresh tokens
	"encoding/hex"    // hex encoding of refresh token digests
	"errors"          // sentinel configuration errors
	"time"            // token lifetimes

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // unique token ids (jti)

	"github.com/iliyamo/runclub-api/internal/model" // user and role types embedded in claims
)

// RefreshTokenBytes is the amount of randomness in a refresh token.
const RefreshTokenBytes = 64

var (
	ErrMissingSecret = errors.New("jwt signing secret is required")
	ErrMissingIssuer = errors.New("jwt issuer is required")
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp.  Access tokens are short‑lived and sent in the Authorization
// header when calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived opaque token used to obtain a new
// token pair.  Raw is returned to the client exactly once; only
// HashRefreshRaw(Raw) is ever persisted.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// Claims is the payload of an access token.  Role is the single canonical
// role claim consulted by the authorization middleware.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IssuerConfig carries the signing material and lifetimes.  Audience is
// optional; when set it is embedded on issue and required on parse.
type IssuerConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	AccessTTL time.Duration
}

// Issuer mints and verifies access tokens and mints refresh tokens.  It is
// safe for concurrent use.
type Issuer struct {
	cfg IssuerConfig
	now func() time.Time
}

// NewIssuer validates cfg and returns an Issuer.  A zero AccessTTL falls
// back to one hour.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.Issuer == "" {
		return nil, ErrMissingIssuer
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	return &Issuer{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}, nil
}

// WithClock replaces the time source.  Intended for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

// Now returns the issuer's current time.
func (i *Issuer) Now() time.Time { return i.now() }

// NewAccessToken builds and signs an HS256 JWT for u.  The subject is the
// user id and the role claim is the user's primary role, or "Unknown"
// when the user holds none.
func (i *Issuer) NewAccessToken(u model.User) (AccessToken, error) {
	now := i.now()
	exp := now.Add(i.cfg.AccessTTL)
	claims := Claims{
		Email: u.Email,
		Name:  u.DisplayName,
		Role:  u.PrimaryRole().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if i.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.cfg.Audience}
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: claims.ExpiresAt.Time}, nil
}

// Parse verifies the signature, issuer, audience and time claims of raw
// and returns its claims.  Tokens are rejected once now >= exp.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(i.cfg.Audience))
	}
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(i.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// NewRefreshToken returns a cryptographically secure random token and its
// expiration time.  It has no relation to any access token.
func (i *Issuer) NewRefreshToken(ttl time.Duration) (RefreshToken, error) {
	buf := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: base64.StdEncoding.EncodeToString(buf),
		Exp: i.now().Add(ttl),
	}, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.  Storing only the hash means a leaked users table cannot be
// replayed against the refresh endpoint.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
