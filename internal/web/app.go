// Package web implements webd, the primary service: it authenticates
// users, issues credentials, takes payment webhooks and serves the
// guarded browser-facing routes.
package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/example/perimeter/internal/config"
	"github.com/example/perimeter/internal/guard"
	"github.com/example/perimeter/internal/httpx"
	"github.com/example/perimeter/internal/lazy"
	"github.com/example/perimeter/internal/policy"
	"github.com/example/perimeter/internal/store"
	"github.com/example/perimeter/internal/token"
)

type App struct {
	cfg      *config.Config
	issuer   *token.Issuer
	verifier *token.Verifier
	db       *lazy.Conn[store.Store]
	limiter  *ipLimiter
}

// New builds the app. open dials the store; nil selects store.Open with
// the given config (tests inject a memory store instead).
func New(cfg *config.Config, open func(ctx context.Context) (store.Store, error)) (*App, error) {
	if cfg.WebhookSecret == "" {
		return nil, errors.New("web: WEBHOOK_SECRET must be set")
	}
	issuer, err := token.NewIssuer([]byte(cfg.SharedSecret), cfg.TokenLifetime)
	if err != nil {
		return nil, err
	}
	verifier, err := token.NewVerifier([]byte(cfg.SharedSecret))
	if err != nil {
		return nil, err
	}
	if open == nil {
		open = func(ctx context.Context) (store.Store, error) {
			return store.Open(ctx, cfg)
		}
	}
	return &App{
		cfg:      cfg,
		issuer:   issuer,
		verifier: verifier,
		db:       lazy.New(open, 0),
		limiter:  newIPLimiter(loginRatePerMinute),
	}, nil
}

// store returns the shared store handle, dialing it on first use.
func (a *App) store(ctx context.Context) (store.Store, error) {
	return a.db.Acquire(ctx)
}

// Close releases the store handle if one was ever dialed.
func (a *App) Close() error {
	if !a.db.Ready() {
		return nil
	}
	st, err := a.db.Acquire(context.Background())
	if err != nil {
		return err
	}
	return st.Close()
}

// Rules is webd's authorization policy. Order matters: the auth
// carve-outs (login, registration, webhook intake, health) are exactly
// the paths an anonymous client must reach, so they precede everything
// else. Unlisted paths fall through to the authenticated default.
func Rules() []policy.Rule {
	return []policy.Rule{
		{Pattern: "/login", Require: policy.Public},
		{Pattern: "/register", Require: policy.Public},
		{Pattern: "/logout", Require: policy.Public},
		{Pattern: "/webhooks/", Require: policy.Public},
		{Pattern: "/health", Require: policy.Public},
		{Pattern: "/ready", Require: policy.Public},
		{Pattern: "/static/", Require: policy.Public},
		{Pattern: "/", Exact: true, Require: policy.Public},
		{Pattern: "/admin/", Require: policy.AdminRole},
	}
}

// deny translates a policy decision at the browser-facing boundary:
// unauthenticated requests are sent to the login page, forbidden ones
// get a plain rejection.
func (a *App) deny(w http.ResponseWriter, r *http.Request, d policy.Decision) {
	switch d {
	case policy.DenyUnauthenticated:
		http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.Path), http.StatusFound)
	default:
		httpx.WriteError(w, http.StatusForbidden, "FORBIDDEN", "You do not have access to this resource")
	}
}

func (a *App) Router() *mux.Router {
	r := mux.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(a.Logging)
	g := &guard.Guard{Verifier: a.verifier, Rules: Rules(), Deny: a.deny}
	r.Use(g.Middleware)

	r.HandleFunc("/health", a.HandleHealth).Methods("GET")
	r.HandleFunc("/ready", a.HandleReady).Methods("GET")

	r.HandleFunc("/", a.HandleIndex).Methods("GET")
	r.HandleFunc("/login", a.HandleLoginPage).Methods("GET")
	r.HandleFunc("/login", a.rateLimited(a.HandleLogin)).Methods("POST")
	r.HandleFunc("/register", a.rateLimited(a.HandleRegister)).Methods("POST")
	r.HandleFunc("/logout", a.HandleLogout).Methods("POST")

	r.HandleFunc("/account", a.HandleAccount).Methods("GET")
	r.HandleFunc("/account/orders", a.HandleCreateOrder).Methods("POST")
	r.HandleFunc("/admin/users", a.HandleAdminUsers).Methods("GET")

	r.HandleFunc("/webhooks/payment", a.rateLimited(a.HandlePaymentWebhook)).Methods("POST")

	return r
}

func (a *App) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// HandleReady reports readiness. It pings the store only if a handle is
// already cached; a readiness probe should not be what triggers the dial.
func (a *App) HandleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if a.db.Ready() {
		st, err := a.db.Acquire(r.Context())
		if err != nil || !st.Ping() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"ready":false}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"ready":true}`))
}
