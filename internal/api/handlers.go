package api

import (
	"log"
	"net/http"
	"time"

	"github.com/example/perimeter/internal/guard"
	"github.com/example/perimeter/internal/httpx"
)

// HandleMe echoes the verified principal. No store lookup happens here:
// everything the endpoint needs travels inside the credential.
func (a *App) HandleMe(w http.ResponseWriter, r *http.Request) {
	p := guard.Principal(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":         p.ID,
		"email":      p.Email,
		"role":       p.Role,
		"issued_at":  p.IssuedAt.UTC(),
		"expires_at": p.ExpiresAt.UTC(),
	})
}

func (a *App) HandleOrders(w http.ResponseWriter, r *http.Request) {
	p := guard.Principal(r.Context())
	st, err := a.store(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage is not available")
		return
	}
	orders, err := st.ListOrdersForUser(p.ID)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load orders")
		return
	}
	out := make([]map[string]interface{}, 0, len(orders))
	for _, o := range orders {
		v := map[string]interface{}{
			"reference":    o.Reference,
			"amount_cents": o.AmountCents,
			"currency":     o.Currency,
			"status":       o.Status,
			"created_at":   o.CreatedAt,
		}
		if o.PaidAt != nil {
			v["paid_at"] = *o.PaidAt
		}
		out = append(out, v)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"orders": out})
}

func (a *App) HandleAdminUsers(w http.ResponseWriter, r *http.Request) {
	st, err := a.store(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage is not available")
		return
	}
	users, err := st.ListUsers()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list users")
		return
	}
	out := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]interface{}{
			"id":         u.ID,
			"email":      u.Email,
			"role":       u.Role,
			"created_at": u.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": out})
}

// Logging middleware logs requests
func (a *App) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		log.Printf("[%s] %s %s %d %v", r.Method, r.URL.Path, r.RemoteAddr, wrapped.statusCode, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
