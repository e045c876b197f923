package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/perimeter/internal/guard"
	"github.com/example/perimeter/internal/httpx"
	"github.com/example/perimeter/internal/store"
	"github.com/example/perimeter/internal/token"
)

type creds struct{ Email, Password string }

func hashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	return string(b), err
}

func comparePassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}

// issueSession signs a credential for u and sets it as the session
// cookie. The cookie expiry matches the credential's.
func (a *App) issueSession(w http.ResponseWriter, u *store.User, now time.Time) (string, error) {
	role, ok := token.ParseRole(u.Role)
	if !ok {
		return "", fmt.Errorf("web: user %s has unknown role %q", u.ID, u.Role)
	}
	tok, err := a.issuer.Issue(token.Principal{ID: u.ID, Email: u.Email, Role: role}, now)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     guard.SessionCookie,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(a.issuer.Lifetime()),
	})
	return tok, nil
}

func (a *App) HandleIndex(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"service": "perimeter-webd"})
}

// HandleLoginPage is the redirect target for unauthenticated requests.
// Rendering is a stub; the real pages live with the frontend.
func (a *App) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!doctype html><title>Sign in</title><h1>Sign in</h1><p>POST /login with {"email","password"}</p>`)
}

func (a *App) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var c creds
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if c.Email == "" || c.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", "Email and password are required")
		return
	}

	st, err := a.store(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage is not available")
		return
	}

	hashed, err := hashPassword(c.Password)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process password")
		return
	}
	user, err := st.CreateUser(c.Email, hashed, string(token.RoleUser))
	if err == store.ErrExists {
		httpx.WriteError(w, http.StatusConflict, "USER_EXISTS", "User with this email already exists")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user")
		return
	}

	tok, err := a.issueSession(w, user, time.Now())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue credential")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
		"token": tok,
	})
}

func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var c creds
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	st, err := a.store(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage is not available")
		return
	}

	user, err := st.GetUserByEmail(c.Email)
	if err != nil || user == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	if !comparePassword(user.PasswordHash, c.Password) {
		httpx.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	tok, err := a.issueSession(w, user, time.Now())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue credential")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
		"token": tok,
	})
}

// HandleLogout clears the session cookie. There is no server-side state
// to invalidate: the credential stays valid until it expires, and logout
// is purely the client discarding it.
func (a *App) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     guard.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	httpx.WriteSuccess(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

func (a *App) HandleAccount(w http.ResponseWriter, r *http.Request) {
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
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{
			"id":    p.ID,
			"email": p.Email,
			"role":  p.Role,
		},
		"orders": orderViews(orders),
	})
}

func (a *App) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	p := guard.Principal(r.Context())
	var in struct {
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.AmountCents <= 0 || in.Currency == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", "amount_cents and currency are required")
		return
	}
	st, err := a.store(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage is not available")
		return
	}
	order, err := st.CreateOrder(p.ID, in.AmountCents, in.Currency)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, orderView(order))
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

func orderView(o *store.Order) map[string]interface{} {
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
	return v
}

func orderViews(orders []*store.Order) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderView(o))
	}
	return out
}
