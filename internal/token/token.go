// Package token issues and verifies the signed bearer credential that
// carries identity between services. Verification is pure: any service
// provisioned with the same secret can verify a credential without
// touching the user store or any other service.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the closed set of roles a principal can hold.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a claim string back to a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Principal is the authenticated identity embedded in a credential.
type Principal struct {
	ID        string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

var (
	// ErrMalformed means the credential could not be decoded at all.
	ErrMalformed = errors.New("token: malformed credential")
	// ErrInvalidSignature means the credential was tampered with or was
	// signed with a different secret.
	ErrInvalidSignature = errors.New("token: invalid signature")
	// ErrExpired means the signature checked out but the validity window
	// has lapsed. The client must authenticate again.
	ErrExpired = errors.New("token: credential expired")
)

// DefaultLifetime is how long an issued credential stays valid. Expiry is
// the only invalidation mechanism; there is no revocation store.
const DefaultLifetime = 14 * 24 * time.Hour

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer mints credentials. Only the service that authenticates users
// (webd) holds one; peer services only verify.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
}

func NewIssuer(secret []byte, lifetime time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: signing secret must not be empty")
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Issuer{secret: secret, lifetime: lifetime}, nil
}

// Lifetime reports how long credentials from this issuer stay valid,
// so the transport layer can align cookie expiry with it.
func (i *Issuer) Lifetime() time.Duration { return i.lifetime }

// Issue signs a credential for an already-authenticated principal. It does
// not check passwords and has no side effects.
func (i *Issuer) Issue(p Principal, now time.Time) (string, error) {
	if p.ID == "" {
		return "", errors.New("token: principal id is required")
	}
	if _, ok := ParseRole(string(p.Role)); !ok {
		return "", fmt.Errorf("token: unknown role %q", p.Role)
	}
	c := claims{
		Email: p.Email,
		Role:  string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(i.secret)
}

// Verifier checks credentials. Every service in the deployment runs the
// same verification against the shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: verification secret must not be empty")
	}
	return &Verifier{secret: secret}, nil
}

// Verify decodes and validates a credential at time now. It performs no
// I/O. The embedded principal is returned unchanged on success; otherwise
// one of ErrMalformed, ErrInvalidSignature or ErrExpired.
func (v *Verifier) Verify(tokenString string, now time.Time) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{},
		func(t *jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" || c.IssuedAt == nil || c.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	role, ok := ParseRole(c.Role)
	if !ok {
		return nil, ErrMalformed
	}
	return &Principal{
		ID:        c.Subject,
		Email:     c.Email,
		Role:      role,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
