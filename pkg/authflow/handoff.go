package authflow

import (
	"html/template"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/internal/metrics"
	apphttp "github.com/pixielabs/pixie-wallet/pkg/app/http"
	"github.com/pixielabs/pixie-wallet/pkg/siteurl"
)

var openerPage = template.Must(template.New("opener").Parse(`<!DOCTYPE html>
<html>
<head><meta name="viewport" content="width=device-width, initial-scale=1"><title>Opening Pixie Wallet</title></head>
<body>
<h1>Opening Pixie Wallet</h1>
<p>Continuing to the app in <span id="count">{{.Ticks}}</span>s...</p>
<p><a id="open" href="{{.ContinueURL}}">Open now</a></p>
<script>
var n = {{.Ticks}};
var timer = setInterval(function () {
  n--;
  document.getElementById('count').textContent = n;
  if (n <= 0) {
    clearInterval(timer);
    window.location.href = {{.ContinueURL}};
  }
}, 1000);
</script>
</body>
</html>`))

var transferPage = template.Must(template.New("transfer").Parse(`<!DOCTYPE html>
<html>
<head><meta name="viewport" content="width=device-width, initial-scale=1"><title>Continue in the app</title></head>
<body>
<h1>Continue in the installed app</h1>
<p>This sign-in link belongs to your installed Pixie Wallet app.</p>
<p><a href="{{.DeepLink}}">Open Pixie Wallet</a></p>
</body>
</html>`))

// PwaOpener receives the code from the mobile callback redirect. It parks
// the code in short-lived cookies and serves the countdown page so the
// user lands in the installed shell with the code still unspent.
func (h *Handler) PwaOpener(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, h.resolver.LoginURL(siteurl.ServerContext()), http.StatusFound)
		return
	}

	h.setHandoffCookies(w, code)
	apphttp.NoCache(w)

	continueURL := h.resolver.DashboardURL(siteurl.ServerContext())
	err := openerPage.Execute(w, map[string]any{
		"Ticks":       h.cfg.CountdownTicks,
		"ContinueURL": continueURL,
	})
	if err != nil {
		h.logger.Error("Failed to render opener page", zap.Error(err))
	}
}

// PwaAuth is the installed-shell entry point. Inside the shell the code is
// exchanged directly; outside it the page defers to the shell through a
// deep link so the single-use code is not burned in the wrong context.
func (h *Handler) PwaAuth(w http.ResponseWriter, r *http.Request) {
	h.shellEntry(w, r, "pwa_auth", "/pwa-auth")
}

// AuthMobile is the legacy installed-shell entry point, kept for links
// minted before the opener flow existed. Same semantics as PwaAuth.
func (h *Handler) AuthMobile(w http.ResponseWriter, r *http.Request) {
	h.shellEntry(w, r, "auth_mobile", "/auth-mobile")
}

func (h *Handler) shellEntry(w http.ResponseWriter, r *http.Request, metricPath, routePath string) {
	rc := requestContext(r)
	code := r.URL.Query().Get("code")

	if code == "" {
		http.Redirect(w, r, h.resolver.LoginURL(siteurl.ServerContext()), http.StatusFound)
		return
	}

	if !rc.Standalone {
		apphttp.NoCache(w)
		deepLink := h.resolver.SiteURL(siteurl.ServerContext()) + routePath +
			"?code=" + url.QueryEscape(code) + "&" + standaloneParam + "=1"
		if err := transferPage.Execute(w, map[string]any{"DeepLink": deepLink}); err != nil {
			h.logger.Error("Failed to render transfer page", zap.Error(err))
		}
		return
	}

	session, err := h.identity.ExchangeCodeForSession(r.Context(), code)
	if err != nil {
		h.logger.Warn("Shell code exchange failed",
			zap.String("path", metricPath),
			zap.Error(err))
		metrics.CodeExchangesTotal.WithLabelValues(metricPath, "error").Inc()
		http.Redirect(w, r, h.resolver.LoginURL(siteurl.ServerContext()), http.StatusFound)
		return
	}

	metrics.CodeExchangesTotal.WithLabelValues(metricPath, "ok").Inc()
	h.setSessionCookie(w, session)
	apphttp.NoCache(w)
	http.Redirect(w, r, h.resolver.DashboardURL(siteurl.ServerContext()), http.StatusFound)
}
