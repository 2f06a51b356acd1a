package middleware

import (
	"crypto/subtle"
	"net/http"
)

// AuthGate is the single static-cookie gate in front of the app: a
// request passes when its auth cookie carries the configured token. An
// empty token disables the gate.
type AuthGate struct {
	cookieName   string
	token        string
	isProduction bool
}

// NewAuthGate creates a new auth gate
func NewAuthGate(token string, isProduction bool) *AuthGate {
	return &AuthGate{
		cookieName:   "auth",
		token:        token,
		isProduction: isProduction,
	}
}

// Enabled reports whether a token is configured
func (g *AuthGate) Enabled() bool {
	return g.token != ""
}

func (g *AuthGate) authenticated(r *http.Request) bool {
	if !g.Enabled() {
		return true
	}
	cookie, err := r.Cookie(g.cookieName)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(g.token)) == 1
}

// RequireAuthAPI rejects unauthenticated API requests with 401
func (g *AuthGate) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.authenticated(r) {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetAuthCookie marks the client as authenticated
func (g *AuthGate) SetAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    g.token,
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60, // 30 days
		HttpOnly: true,
		Secure:   g.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie logs the client out
func (g *AuthGate) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}
