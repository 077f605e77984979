// Package authflow implements the magic-link auth handoff. The callback
// route decides per device how a one-time authorization code reaches a
// session: desktop browsers exchange directly, mobile browsers hand the
// code to the installed shell through short-lived cookies. Codes are
// single-use, so every path consumes a code at most once.
package authflow

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/pkg/config"
	"github.com/pixielabs/pixie-wallet/pkg/identity"
	"github.com/pixielabs/pixie-wallet/pkg/siteurl"
)

const (
	// SessionCookie carries the access token of the active session.
	SessionCookie = "pixie_session"

	// CodeCookie stores a pending handoff code for the installed shell.
	CodeCookie = "magiclink_auth_code"

	// TimestampCookie stores the code's issuance time in unix milliseconds.
	TimestampCookie = "magiclink_timestamp"

	// standaloneParam is the explicit installed-shell signal. The shell
	// appends it to every navigation; plain browsers never send it.
	standaloneParam = "standalone"
)

type contextKey int

const sessionKey contextKey = iota

// Handler serves the auth handoff and login routes.
type Handler struct {
	identity identity.Service
	resolver *siteurl.Resolver
	cfg      config.HandoffConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates the auth flow handler.
func NewHandler(identitySvc identity.Service, resolver *siteurl.Resolver, cfg config.HandoffConfig, logger *zap.Logger) *Handler {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.CountdownTicks <= 0 {
		cfg.CountdownTicks = 5
	}
	return &Handler{
		identity: identitySvc,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// requestContext derives the URL resolution context from the request.
func requestContext(r *http.Request) siteurl.Context {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}

	standalone := r.URL.Query().Get(standaloneParam)
	return siteurl.Context{
		Origin:     scheme + "://" + r.Host,
		UserAgent:  r.UserAgent(),
		Standalone: standalone == "1" || standalone == "true",
	}
}

// setSessionCookie binds the session to the browser.
func (h *Handler) setSessionCookie(w http.ResponseWriter, session *identity.Session) {
	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    session.AccessToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if !session.ExpiresAt.IsZero() {
		cookie.Expires = session.ExpiresAt
	}
	http.SetCookie(w, cookie)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// setHandoffCookies stores the code and its issuance timestamp for the
// installed shell to pick up. Lifetime matches the code's validity window.
func (h *Handler) setHandoffCookies(w http.ResponseWriter, code string) {
	maxAge := int(h.cfg.CodeTTL.Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     CodeCookie,
		Value:    code,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     TimestampCookie,
		Value:    strconv.FormatInt(h.now().UnixMilli(), 10),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clearHandoffCookies removes the stored code pair. Called before any
// exchange attempt so a failed exchange cannot be retried with the same
// stored code.
func (h *Handler) clearHandoffCookies(w http.ResponseWriter) {
	for _, name := range []string{CodeCookie, TimestampCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}

// storedHandoff reads the pending code pair from the request, if any.
func storedHandoff(r *http.Request) (code string, issuedAt time.Time, ok bool) {
	codeCookie, err := r.Cookie(CodeCookie)
	if err != nil || codeCookie.Value == "" {
		return "", time.Time{}, false
	}
	tsCookie, err := r.Cookie(TimestampCookie)
	if err != nil || tsCookie.Value == "" {
		return "", time.Time{}, false
	}
	millis, err := strconv.ParseInt(tsCookie.Value, 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return codeCookie.Value, time.UnixMilli(millis), true
}

// SessionFrom returns the session the guard middleware resolved, or nil.
func SessionFrom(ctx context.Context) *identity.Session {
	session, _ := ctx.Value(sessionKey).(*identity.Session)
	return session
}

// WithSession stores the resolved session on the request context.
func WithSession(ctx context.Context, session *identity.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// resolveSession validates the session cookie against the identity
// service. Returns nil when there is no usable session.
func (h *Handler) resolveSession(r *http.Request) *identity.Session {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := h.identity.GetSession(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	if session.Expired() {
		return nil
	}
	return session
}
