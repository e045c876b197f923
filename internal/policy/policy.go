// Package policy decides whether a request may proceed, given the verified
// principal (or its absence) and the request path. It never touches the
// transport; translating a deny into a redirect, 401 or 403 is the
// caller's job.
package policy

import (
	"strings"

	"github.com/example/perimeter/internal/token"
)

// Requirement is the condition a rule imposes on matching paths.
type Requirement int

const (
	// Public allows any request, authenticated or not.
	Public Requirement = iota
	// Authenticated requires a verified principal of any role.
	Authenticated
	// AdminRole requires a verified principal with the admin role.
	AdminRole
)

// DefaultRequirement applies to paths no rule matches. Unknown paths
// require authentication rather than being open.
const DefaultRequirement = Authenticated

// Decision is the ternary outcome of evaluating a request.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny-unauthenticated"
	case DenyForbidden:
		return "deny-forbidden"
	}
	return "unknown"
}

// Rule binds a path pattern to a requirement. Pattern is a prefix match
// unless Exact is set. Rules are evaluated in declaration order and the
// first match wins, so carve-outs for login, registration and webhook
// intake must precede broader patterns.
type Rule struct {
	Pattern string
	Exact   bool
	Require Requirement
}

func (r Rule) matches(path string) bool {
	if r.Exact {
		return path == r.Pattern
	}
	return strings.HasPrefix(path, r.Pattern)
}

// Decide scans rules in order and applies the first match, falling back
// to DefaultRequirement when nothing matches. It is pure: same inputs,
// same decision. A nil principal means the request is anonymous.
func Decide(rules []Rule, path string, p *token.Principal) Decision {
	req := DefaultRequirement
	for _, r := range rules {
		if r.matches(path) {
			req = r.Require
			break
		}
	}
	switch req {
	case Public:
		return Allow
	case AdminRole:
		if p == nil {
			return DenyUnauthenticated
		}
		if p.Role != token.RoleAdmin {
			return DenyForbidden
		}
		return Allow
	default:
		if p == nil {
			return DenyUnauthenticated
		}
		return Allow
	}
}
