package jwt

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("not authenticated")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// DefaultTTL is how long a dashboard session lasts unless configured.
const DefaultTTL = 24 * time.Hour

// Identity is what a session token vouches for: the Discord user and the
// OAuth access token the dashboard acts with on their behalf.
type Identity struct {
	UserID       string
	Username     string
	DiscordToken string
}

// Claims JWT 声明
type Claims struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	DiscordToken string `json:"discord_token"`
	jwt.RegisteredClaims
}

// Identity returns the identity the claims were issued for.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Username: c.Username, DiscordToken: c.DiscordToken}
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type Option func(*TokenManager)

// WithIssuer sets the iss claim written and required by the manager.
func WithIssuer(issuer string) Option {
	return func(tm *TokenManager) { tm.issuer = issuer }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(tm *TokenManager) { tm.now = now }
}

// NewTokenManager builds a manager signing with secret. A non-positive ttl
// means DefaultTTL. The secret policy (non-empty, non-default) is enforced by
// configuration validation before this is called.
func NewTokenManager(secret string, ttl time.Duration, opts ...Option) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	tm := &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// TTL returns the default session lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue signs a session token for id with the default lifetime.
func (tm *TokenManager) Issue(id Identity) (string, error) {
	return tm.IssueWithTTL(id, tm.ttl)
}

// IssueWithTTL signs a session token expiring ttl from now. A token issued
// with ttl <= 0 is already expired.
func (tm *TokenManager) IssueWithTTL(id Identity, ttl time.Duration) (string, error) {
	now := tm.now()
	if ttl < 0 {
		ttl = 0
	}

	claims := Claims{
		UserID:       id.UserID,
		Username:     id.Username,
		DiscordToken: id.DiscordToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Verify checks the signature and expiry of tokenString and returns its
// claims. It never returns claims together with an error.
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return tm.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
