// Package guard is the per-request trust boundary: it pulls the bearer
// credential off the request, verifies it, asks the policy evaluator for
// a decision and short-circuits the handler on any deny. How a deny turns
// into an HTTP response (redirect, 401, 403) is supplied by the service.
package guard

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/perimeter/internal/policy"
	"github.com/example/perimeter/internal/token"
)

// SessionCookie carries the credential on browser requests to webd. API
// clients use the Authorization header instead; both hold the same
// opaque token string.
const SessionCookie = "perimeter_session"

type ctxKey struct{}

// Principal returns the verified principal attached to the request
// context, or nil for an anonymous request.
func Principal(ctx context.Context) *token.Principal {
	p, _ := ctx.Value(ctxKey{}).(*token.Principal)
	return p
}

// Credential extracts the opaque token string from the Authorization
// header (Bearer scheme) or, failing that, the session cookie. Empty
// means anonymous, which is a valid state until policy says otherwise.
func Credential(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// DenyFunc translates a deny decision into an HTTP response.
type DenyFunc func(w http.ResponseWriter, r *http.Request, d policy.Decision)

// Guard evaluates every inbound request against an immutable rule list.
type Guard struct {
	Verifier *token.Verifier
	Rules    []policy.Rule
	Deny     DenyFunc
	// Now is stubbed in tests; nil means time.Now.
	Now func() time.Time
}

func (g *Guard) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Middleware verifies the credential (if any), decides, and either passes
// the request through with the principal in context or invokes Deny.
// A credential that fails verification demotes the request to anonymous
// rather than erroring outright, so public routes keep working for
// clients holding a stale token.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var principal *token.Principal
		if cred := Credential(r); cred != "" {
			p, err := g.Verifier.Verify(cred, g.now())
			switch {
			case err == nil:
				principal = p
			case errors.Is(err, token.ErrInvalidSignature):
				// Tamper or wrong secret: security-relevant, log it.
				log.Printf("SECURITY invalid credential signature from %s on %s", r.RemoteAddr, r.URL.Path)
			default:
				// Expired or malformed: demoted to anonymous, but the
				// rejection is still noted once at the boundary.
				log.Printf("credential rejected (%v) from %s on %s", err, r.RemoteAddr, r.URL.Path)
			}
		}

		d := policy.Decide(g.Rules, r.URL.Path, principal)
		if d != policy.Allow {
			g.Deny(w, r, d)
			return
		}
		if principal != nil {
			r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, principal))
		}
		next.ServeHTTP(w, r)
	})
}
