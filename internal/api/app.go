// Package api implements apid, an auxiliary service that never issues
// credentials. It verifies bearer tokens with the same shared secret the
// issuing service uses and serves JSON resources; denies surface as 401
// or 403 rather than redirects.
package api

import (
	"context"
	"net/http"

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
	verifier *token.Verifier
	db       *lazy.Conn[store.Store]
}

// New builds the app. open dials the store; nil selects store.Open with
// the given config.
func New(cfg *config.Config, open func(ctx context.Context) (store.Store, error)) (*App, error) {
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
		verifier: verifier,
		db:       lazy.New(open, 0),
	}, nil
}

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

// Rules is apid's authorization policy: health probes are open, admin
// endpoints need the admin role, everything else needs a valid
// credential via the authenticated default.
func Rules() []policy.Rule {
	return []policy.Rule{
		{Pattern: "/health", Require: policy.Public},
		{Pattern: "/ready", Require: policy.Public},
		{Pattern: "/api/v1/admin/", Require: policy.AdminRole},
	}
}

func deny(w http.ResponseWriter, r *http.Request, d policy.Decision) {
	switch d {
	case policy.DenyUnauthenticated:
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "A valid bearer credential is required")
	default:
		httpx.WriteError(w, http.StatusForbidden, "FORBIDDEN", "You do not have access to this resource")
	}
}

func (a *App) Router() *mux.Router {
	r := mux.NewRouter()

	r.Use(a.Logging)
	g := &guard.Guard{Verifier: a.verifier, Rules: Rules(), Deny: deny}
	r.Use(g.Middleware)

	r.HandleFunc("/health", a.HandleHealth).Methods("GET")
	r.HandleFunc("/ready", a.HandleReady).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/me", a.HandleMe).Methods("GET")
	v1.HandleFunc("/orders", a.HandleOrders).Methods("GET")
	v1.HandleFunc("/admin/users", a.HandleAdminUsers).Methods("GET")

	return r
}

func (a *App) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

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
