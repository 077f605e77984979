package authflow

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/internal/metrics"
	"github.com/pixielabs/pixie-wallet/pkg/identity"
	"github.com/pixielabs/pixie-wallet/pkg/siteurl"
)

var dashboardPage = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head><meta name="viewport" content="width=device-width, initial-scale=1"><title>Pixie Wallet</title></head>
<body>
<h1>Pixie Wallet</h1>
<p>Signed in as {{.Email}}</p>
<div id="wallet" data-api="/api/wallet"></div>
</body>
</html>`))

// Dashboard serves the signed-in landing page. When the installed shell
// arrives here unauthenticated but carrying a parked handoff code, the
// code is recovered into a session. The stored pair is deleted before the
// exchange: a code that fails to exchange must never be retried.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := SessionFrom(r.Context())

	if session == nil {
		session = h.recoverFromHandoff(w, r)
		if session == nil {
			http.Redirect(w, r, h.resolver.LoginURL(siteurl.ServerContext()), http.StatusFound)
			return
		}
	}

	err := dashboardPage.Execute(w, map[string]any{"Email": session.User.Email})
	if err != nil {
		h.logger.Error("Failed to render dashboard", zap.Error(err))
	}
}

// recoverFromHandoff attempts exactly one exchange of a parked code.
func (h *Handler) recoverFromHandoff(w http.ResponseWriter, r *http.Request) *identity.Session {
	code, issuedAt, ok := storedHandoff(r)
	if !ok {
		return nil
	}

	// The pair is gone from the browser regardless of what happens next.
	h.clearHandoffCookies(w)

	if h.now().Sub(issuedAt) > h.cfg.CodeTTL {
		h.logger.Info("Discarding stale handoff code",
			zap.Duration("age", h.now().Sub(issuedAt)))
		metrics.CodeExchangesTotal.WithLabelValues("recovery", "stale").Inc()
		return nil
	}

	session, err := h.identity.ExchangeCodeForSession(r.Context(), code)
	if err != nil {
		h.logger.Warn("Handoff recovery exchange failed", zap.Error(err))
		metrics.CodeExchangesTotal.WithLabelValues("recovery", "error").Inc()
		return nil
	}

	metrics.CodeExchangesTotal.WithLabelValues("recovery", "ok").Inc()
	h.setSessionCookie(w, session)
	return session
}
