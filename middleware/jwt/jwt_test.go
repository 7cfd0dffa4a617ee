package jwt

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"pgregory.net/rapid"
)

var testIdentity = Identity{
	UserID:       "80351110224678912",
	Username:     "nelly",
	DiscordToken: "discord-access-token",
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewTokenManager(t *testing.T) {
	tm := NewTokenManager("test-secret", 0)
	if tm.TTL() != DefaultTTL {
		t.Errorf("Expected default ttl %v, got %v", DefaultTTL, tm.TTL())
	}

	tm = NewTokenManager("test-secret", time.Hour, WithIssuer("happybot"))
	if tm.TTL() != time.Hour {
		t.Errorf("Expected ttl 1h, got %v", tm.TTL())
	}
	if tm.issuer != "happybot" {
		t.Errorf("Expected issuer happybot, got %s", tm.issuer)
	}
}

func TestIssueAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", DefaultTTL, WithIssuer("happybot"))

	token, err := tm.Issue(testIdentity)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token == "" {
		t.Fatal("Issued token is empty")
	}

	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Identity() != testIdentity {
		t.Errorf("Expected identity %+v, got %+v", testIdentity, claims.Identity())
	}

	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime != DefaultTTL {
		t.Errorf("Expected lifetime %v, got %v", DefaultTTL, lifetime)
	}
}

func TestVerify_Errors(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := NewTokenManager("test-secret", time.Hour, WithClock(fixedClock(start)))

	valid, err := tm.Issue(testIdentity)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	other := NewTokenManager("other-secret", time.Hour, WithClock(fixedClock(start)))
	foreign, _ := other.Issue(testIdentity)

	zeroTTL, _ := tm.IssueWithTTL(testIdentity, 0)

	noneToken, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: testIdentity.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(start.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "missing", token: "", want: ErrMissingToken},
		{name: "garbage", token: "not.a.jwt", want: ErrInvalidToken},
		{name: "wrong key", token: foreign, want: ErrInvalidToken},
		{name: "forged claims", token: forgeUserID(t, valid, "1"), want: ErrInvalidToken},
		{name: "alg none", token: noneToken, want: ErrInvalidToken},
		{name: "zero ttl", token: zeroTTL, want: ErrExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tm.Verify(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if claims != nil {
				t.Errorf("Expected no claims, got %+v", claims)
			}
		})
	}
}

func TestVerify_Expiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tm := NewTokenManager("test-secret", time.Hour, WithClock(clock))

	token, err := tm.Issue(testIdentity)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, err := tm.Verify(token); err != nil {
		t.Errorf("Expected token valid before expiry, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := tm.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken after expiry, got %v", err)
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	issuer := NewTokenManager("test-secret", time.Hour, WithIssuer("someone-else"))
	token, _ := issuer.Issue(testIdentity)

	tm := NewTokenManager("test-secret", time.Hour, WithIssuer("happybot"))
	if _, err := tm.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    error
	}{
		{header: "", err: ErrMissingToken},
		{header: "Bearer", err: ErrMissingToken},
		{header: "Bearer   ", err: ErrMissingToken},
		{header: "Basic abc", err: ErrMissingToken},
		{header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{header: "bearer abc", want: "abc"},
	}

	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if !errors.Is(err, tt.err) {
			t.Errorf("BearerToken(%q) error = %v, want %v", tt.header, err, tt.err)
		}
		if got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

// Any positive elapsed time after a zero-ttl issue reports expiry, and any
// elapsed time short of the ttl verifies.
func TestVerify_ExpiryProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := time.Unix(rapid.Int64Range(1_600_000_000, 2_000_000_000).Draw(rt, "start"), 0)
		ttl := time.Duration(rapid.IntRange(0, 48*3600).Draw(rt, "ttl")) * time.Second
		elapsed := time.Duration(rapid.IntRange(0, 96*3600).Draw(rt, "elapsed")) * time.Second

		now := start
		tm := NewTokenManager("prop-secret", time.Hour, WithClock(func() time.Time { return now }))
		token, err := tm.IssueWithTTL(testIdentity, ttl)
		if err != nil {
			rt.Fatalf("issue: %v", err)
		}

		now = start.Add(elapsed)
		claims, err := tm.Verify(token)
		if elapsed >= ttl {
			if !errors.Is(err, ErrExpiredToken) || claims != nil {
				rt.Fatalf("ttl=%v elapsed=%v: expected expired, got %v", ttl, elapsed, err)
			}
			return
		}
		if err != nil || claims.UserID != testIdentity.UserID {
			rt.Fatalf("ttl=%v elapsed=%v: expected valid, got %v", ttl, elapsed, err)
		}
	})
}

// forgeUserID rewrites the payload of token while keeping its signature.
func forgeUserID(t *testing.T, token, userID string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape %q", token)
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	forged := strings.Replace(string(payload), testIdentity.UserID, userID, 2)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))
	return strings.Join(parts, ".")
}
