// Package siteurl resolves the canonical site origin used for every
// redirect target the auth flow builds. Picking the wrong origin breaks the
// magic-link round trip, so all URL construction goes through here.
package siteurl

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/pkg/config"
)

// mobileMarkers is the fixed set of platform markers that classify a device
// as mobile. Matching is case-insensitive substring search.
var mobileMarkers = []string{
	"android", "webos", "iphone", "ipad", "ipod", "blackberry", "iemobile", "opera mini",
}

// Context describes the execution context a URL is being resolved for.
// Server-side resolution never trusts request-derived origins; client-side
// resolution carries the live origin plus the installed-shell signal.
type Context struct {
	// Server marks resolution happening with no live browser origin.
	Server bool
	// Origin is the current browser origin (scheme://host[:port]).
	Origin string
	// UserAgent is the raw device identification string.
	UserAgent string
	// Standalone reports whether the app runs as an installed shell
	// (display-mode standalone or the platform standalone flag).
	Standalone bool
}

// ServerContext is the resolution context for server-built redirect targets.
func ServerContext() Context {
	return Context{Server: true}
}

// Resolver computes the canonical origin from configuration and context.
type Resolver struct {
	baseURL      string
	tunnelMarker string
	logger       *zap.Logger
}

// NewResolver creates a Resolver from site configuration.
func NewResolver(cfg config.SiteConfig, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		tunnelMarker: cfg.TunnelMarker,
		logger:       logger,
	}
}

// SiteURL returns the canonical origin for the given context.
//
// On the server the configured base URL always wins (never guessed from
// request headers). On the client, a tunnel-marked base URL wins
// unconditionally; an installed shell on a mobile device off loopback
// prefers the configured base; everything else uses the live origin.
func (r *Resolver) SiteURL(rc Context) string {
	if rc.Server {
		return r.baseURL
	}

	if r.tunnelMarker != "" && strings.Contains(r.baseURL, r.tunnelMarker) {
		r.logger.Debug("Using tunnel base URL", zap.String("url", r.baseURL))
		return r.baseURL
	}

	if rc.Standalone && IsMobileDevice(rc.UserAgent) {
		if !IsLoopbackOrigin(rc.Origin) && r.baseURL != "" {
			return r.baseURL
		}
	}

	if rc.Origin != "" {
		return strings.TrimSuffix(rc.Origin, "/")
	}
	return r.baseURL
}

// AuthCallbackURL returns the absolute magic-link callback URL.
func (r *Resolver) AuthCallbackURL(rc Context) string {
	return r.SiteURL(rc) + "/auth/callback"
}

// DashboardURL returns the absolute dashboard URL.
func (r *Resolver) DashboardURL(rc Context) string {
	return r.SiteURL(rc) + "/dashboard"
}

// LoginURL returns the absolute login URL.
func (r *Resolver) LoginURL(rc Context) string {
	return r.SiteURL(rc) + "/login"
}

// PwaOpenerURL returns the shell-opener URL carrying the authorization code.
// Only the code itself is query-encoded.
func (r *Resolver) PwaOpenerURL(rc Context, code string) string {
	return fmt.Sprintf("%s/pwa-opener?code=%s", r.SiteURL(rc), url.QueryEscape(code))
}

// IsMobileDevice reports whether the device identification string matches
// one of the known mobile platform markers.
func IsMobileDevice(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, marker := range mobileMarkers {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}

// IsLoopbackOrigin reports whether an origin points at a loopback address.
func IsLoopbackOrigin(origin string) bool {
	return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
}
