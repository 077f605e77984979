package authflow

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/internal/metrics"
	apphttp "github.com/pixielabs/pixie-wallet/pkg/app/http"
	"github.com/pixielabs/pixie-wallet/pkg/siteurl"
)

// Callback handles the magic-link landing. The link in the email always
// points here; what happens next depends on the device class.
//
// Mobile browsers never exchange. The system browser that opened the link
// is usually not the installed shell, and the code is single-use, so
// burning it here would strand the shell. The code travels onward via the
// opener route instead.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	rc := requestContext(r)
	code := r.URL.Query().Get("code")

	if code == "" {
		h.logger.Warn("Callback hit without a code")
		http.Redirect(w, r, h.resolver.LoginURL(siteurl.ServerContext()), http.StatusFound)
		return
	}

	if siteurl.IsMobileDevice(rc.UserAgent) {
		h.logger.Info("Mobile callback, deferring exchange to shell handoff",
			zap.String("user_agent", rc.UserAgent))
		metrics.HandoffRedirectsTotal.Inc()
		apphttp.NoCache(w)
		http.Redirect(w, r, h.resolver.PwaOpenerURL(siteurl.ServerContext(), code), http.StatusFound)
		return
	}

	session, err := h.identity.ExchangeCodeForSession(r.Context(), code)
	if err != nil {
		h.logger.Warn("Desktop code exchange failed", zap.Error(err))
		metrics.CodeExchangesTotal.WithLabelValues("callback", "error").Inc()
		http.Redirect(w, r, h.resolver.LoginURL(siteurl.ServerContext()), http.StatusFound)
		return
	}

	metrics.CodeExchangesTotal.WithLabelValues("callback", "ok").Inc()
	h.setSessionCookie(w, session)
	apphttp.NoCache(w)
	http.Redirect(w, r, h.resolver.DashboardURL(siteurl.ServerContext()), http.StatusFound)
}
