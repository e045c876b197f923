package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/perimeter/internal/token"
)

func principal(role token.Role) *token.Principal {
	now := time.Now()
	return &token.Principal{
		ID:        "u-1",
		Email:     "user@example.com",
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func testRules() []Rule {
	return []Rule{
		{Pattern: "/login", Require: Public},
		{Pattern: "/register", Require: Public},
		{Pattern: "/webhooks/", Require: Public},
		{Pattern: "/admin/", Require: AdminRole},
		{Pattern: "/", Exact: true, Require: Public},
	}
}

func TestDecide(t *testing.T) {
	rules := testRules()

	cases := []struct {
		name string
		path string
		p    *token.Principal
		want Decision
	}{
		{"public path anonymous", "/login", nil, Allow},
		{"public path authenticated", "/login", principal(token.RoleUser), Allow},
		{"webhook carve-out anonymous", "/webhooks/payment", nil, Allow},
		{"root exact anonymous", "/", nil, Allow},
		{"admin path anonymous", "/admin/users", nil, DenyUnauthenticated},
		{"admin path as user", "/admin/users", principal(token.RoleUser), DenyForbidden},
		{"admin path as admin", "/admin/users", principal(token.RoleAdmin), Allow},
		{"unmatched path anonymous", "/account", nil, DenyUnauthenticated},
		{"unmatched path authenticated", "/account", principal(token.RoleUser), Allow},
		{"unmatched path as admin", "/account", principal(token.RoleAdmin), Allow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Decide(rules, tc.path, tc.p))
		})
	}
}

func TestFirstMatchWins(t *testing.T) {
	// A broad admin prefix followed by a narrower public one: the first
	// match decides, the later rule never runs.
	rules := []Rule{
		{Pattern: "/admin/", Require: AdminRole},
		{Pattern: "/admin/health", Require: Public},
	}
	require.Equal(t, DenyUnauthenticated, Decide(rules, "/admin/health", nil))

	// Reversed order, the carve-out applies.
	rules = []Rule{
		{Pattern: "/admin/health", Require: Public},
		{Pattern: "/admin/", Require: AdminRole},
	}
	require.Equal(t, Allow, Decide(rules, "/admin/health", nil))
}

func TestReorderingNonMatchingRulesIsIrrelevant(t *testing.T) {
	a := []Rule{
		{Pattern: "/never-a", Require: Public},
		{Pattern: "/never-b", Require: AdminRole},
		{Pattern: "/account", Require: Authenticated},
	}
	b := []Rule{
		{Pattern: "/never-b", Require: AdminRole},
		{Pattern: "/never-a", Require: Public},
		{Pattern: "/account", Require: Authenticated},
	}
	for _, p := range []*token.Principal{nil, principal(token.RoleUser), principal(token.RoleAdmin)} {
		require.Equal(t, Decide(a, "/account", p), Decide(b, "/account", p))
	}
}

func TestExactMatchDoesNotCoverSubpaths(t *testing.T) {
	rules := []Rule{{Pattern: "/", Exact: true, Require: Public}}
	require.Equal(t, Allow, Decide(rules, "/", nil))
	// "/account" misses the exact rule and falls to the default.
	require.Equal(t, DenyUnauthenticated, Decide(rules, "/account", nil))
}

func TestEmptyRulesUseDefault(t *testing.T) {
	require.Equal(t, DenyUnauthenticated, Decide(nil, "/anything", nil))
	require.Equal(t, Allow, Decide(nil, "/anything", principal(token.RoleUser)))
}
