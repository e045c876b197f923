package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("unit-test-secret")

func testPrincipal() Principal {
	return Principal{ID: "u-123", Email: "user@example.com", Role: RoleUser}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer, err := NewIssuer(testSecret, 0)
	require.NoError(t, err)
	verifier, err := NewVerifier(testSecret)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := issuer.Issue(testPrincipal(), now)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	got, err := verifier.Verify(tok, now)
	require.NoError(t, err)
	require.Equal(t, "u-123", got.ID)
	require.Equal(t, "user@example.com", got.Email)
	require.Equal(t, RoleUser, got.Role)
	require.True(t, got.IssuedAt.Equal(now))
	require.True(t, got.ExpiresAt.Equal(now.Add(DefaultLifetime)))

	// Still valid anywhere inside the window, including the issue instant.
	_, err = verifier.Verify(tok, now.Add(DefaultLifetime-time.Second))
	require.NoError(t, err)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer, err := NewIssuer(testSecret, 0)
	require.NoError(t, err)
	other, err := NewVerifier([]byte("a-different-secret"))
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := issuer.Issue(testPrincipal(), now)
	require.NoError(t, err)

	_, err = other.Verify(tok, now)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyExpired(t *testing.T) {
	issuer, err := NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	verifier, err := NewVerifier(testSecret)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := issuer.Issue(testPrincipal(), now)
	require.NoError(t, err)

	// Valid right up to the expiry instant, expired from it onward.
	_, err = verifier.Verify(tok, now.Add(time.Hour-time.Second))
	require.NoError(t, err)
	_, err = verifier.Verify(tok, now.Add(time.Hour))
	require.ErrorIs(t, err, ErrExpired)
	_, err = verifier.Verify(tok, now.Add(48*time.Hour))
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyMalformed(t *testing.T) {
	verifier, err := NewVerifier(testSecret)
	require.NoError(t, err)
	now := time.Now()

	for _, bad := range []string{"", "garbage", "a.b", "a.b.c.d", "!!!.###.$$$"} {
		_, err := verifier.Verify(bad, now)
		require.ErrorIs(t, err, ErrMalformed, "input %q", bad)
	}
}

func TestVerifyTamperedClaims(t *testing.T) {
	issuer, err := NewIssuer(testSecret, 0)
	require.NoError(t, err)
	verifier, err := NewVerifier(testSecret)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := issuer.Issue(testPrincipal(), now)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	escalated := strings.Replace(string(payload), `"role":"user"`, `"role":"admin"`, 1)
	require.NotEqual(t, string(payload), escalated)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(escalated))

	_, err = verifier.Verify(strings.Join(parts, "."), now)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	issuer, err := NewIssuer(testSecret, 0)
	require.NoError(t, err)

	p := testPrincipal()
	p.Role = "root"
	_, err = issuer.Issue(p, time.Now())
	require.Error(t, err)
}

func TestEmptySecretRefused(t *testing.T) {
	_, err := NewIssuer(nil, 0)
	require.Error(t, err)
	_, err = NewVerifier(nil)
	require.Error(t, err)
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"user", "admin"} {
		r, ok := ParseRole(valid)
		require.True(t, ok)
		require.Equal(t, Role(valid), r)
	}
	for _, invalid := range []string{"", "User", "superadmin"} {
		_, ok := ParseRole(invalid)
		require.False(t, ok)
	}
}
