package authflow

import (
	"net/http"
	"strings"

	"github.com/pixielabs/pixie-wallet/pkg/siteurl"
)

// handoffRoutes are exempt from the guard entirely: they carry single-use
// codes and must work with or without a session.
var handoffRoutes = []string{"/auth/callback", "/pwa-opener", "/pwa-auth", "/auth-mobile"}

// authRoutes are only meaningful when signed out.
var authRoutes = []string{"/login"}

// Guard routes requests by session state. Unauthenticated requests to
// protected routes land on the login page (API routes get 401 instead of a
// redirect); authenticated requests to auth-only routes land on the
// dashboard. The resolved session rides the request context for handlers.
func (h *Handler) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if isHandoffRoute(path) {
			next.ServeHTTP(w, r)
			return
		}

		session := h.resolveSession(r)
		if session != nil {
			r = r.WithContext(WithSession(r.Context(), session))
		}

		switch {
		case isAuthRoute(path) && session != nil:
			http.Redirect(w, r, h.resolver.DashboardURL(siteurl.ServerContext()), http.StatusFound)
		case path == "/":
			if session != nil {
				http.Redirect(w, r, h.resolver.DashboardURL(siteurl.ServerContext()), http.StatusFound)
			} else {
				http.Redirect(w, r, h.resolver.LoginURL(siteurl.ServerContext()), http.StatusFound)
			}
		case isProtectedRoute(path) && session == nil && path != "/dashboard":
			// The dashboard passes through unauthenticated so its
			// handler can run handoff recovery first.
			if strings.HasPrefix(path, "/api/") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","code":401}`))
			} else {
				http.Redirect(w, r, h.resolver.LoginURL(siteurl.ServerContext()), http.StatusFound)
			}
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func isHandoffRoute(path string) bool {
	for _, route := range handoffRoutes {
		if path == route {
			return true
		}
	}
	return false
}

func isAuthRoute(path string) bool {
	for _, route := range authRoutes {
		if path == route {
			return true
		}
	}
	return false
}

func isProtectedRoute(path string) bool {
	return path == "/dashboard" || strings.HasPrefix(path, "/api/")
}
