package siteurl

import (
	"testing"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/pkg/config"
)

func newTestResolver(baseURL string) *Resolver {
	return NewResolver(config.SiteConfig{
		BaseURL:      baseURL,
		TunnelMarker: "ngrok",
	}, zap.NewNop())
}

func TestSiteURL_ServerAlwaysUsesConfiguredBase(t *testing.T) {
	r := newTestResolver("https://wallet.example.com")

	got := r.SiteURL(ServerContext())
	if got != "https://wallet.example.com" {
		t.Fatalf("expected configured base, got %q", got)
	}
}

func TestSiteURL_TunnelBaseWinsOnClient(t *testing.T) {
	r := newTestResolver("https://abc123.ngrok.io")

	got := r.SiteURL(Context{
		Origin:    "http://localhost:3000",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
	})
	if got != "https://abc123.ngrok.io" {
		t.Fatalf("expected tunnel URL, got %q", got)
	}
}

func TestSiteURL_StandaloneMobileOffLoopbackPrefersBase(t *testing.T) {
	r := newTestResolver("https://wallet.example.com")

	got := r.SiteURL(Context{
		Origin:     "https://some-other-host.example.net",
		UserAgent:  "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
		Standalone: true,
	})
	if got != "https://wallet.example.com" {
		t.Fatalf("expected configured base, got %q", got)
	}
}

func TestSiteURL_StandaloneMobileOnLoopbackUsesOrigin(t *testing.T) {
	r := newTestResolver("https://wallet.example.com")

	got := r.SiteURL(Context{
		Origin:     "http://localhost:3000",
		UserAgent:  "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
		Standalone: true,
	})
	if got != "http://localhost:3000" {
		t.Fatalf("expected live origin, got %q", got)
	}
}

func TestSiteURL_DesktopClientUsesOrigin(t *testing.T) {
	r := newTestResolver("https://wallet.example.com")

	got := r.SiteURL(Context{
		Origin:    "https://preview.example.org",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
	})
	if got != "https://preview.example.org" {
		t.Fatalf("expected live origin, got %q", got)
	}
}

func TestPwaOpenerURL_EncodesCode(t *testing.T) {
	r := newTestResolver("https://wallet.example.com")

	got := r.PwaOpenerURL(ServerContext(), "ab c+1")
	want := "https://wallet.example.com/pwa-opener?code=ab+c%2B1"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestHelperURLs(t *testing.T) {
	r := newTestResolver("https://wallet.example.com")
	rc := ServerContext()

	if got := r.AuthCallbackURL(rc); got != "https://wallet.example.com/auth/callback" {
		t.Fatalf("unexpected callback URL: %q", got)
	}
	if got := r.DashboardURL(rc); got != "https://wallet.example.com/dashboard" {
		t.Fatalf("unexpected dashboard URL: %q", got)
	}
	if got := r.LoginURL(rc); got != "https://wallet.example.com/login" {
		t.Fatalf("unexpected login URL: %q", got)
	}
}

func TestIsMobileDevice(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want bool
	}{
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", true},
		{"android", "Mozilla/5.0 (Linux; Android 14; Pixel 8)", true},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)", true},
		{"blackberry lowercase", "blackberry9700", true},
		{"opera mini", "Opera/9.80 (J2ME/MIDP; Opera Mini/9.80)", true},
		{"macintosh", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)", false},
		{"windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMobileDevice(tt.ua); got != tt.want {
				t.Fatalf("IsMobileDevice(%q) = %v, want %v", tt.ua, got, tt.want)
			}
		})
	}
}

func TestIsLoopbackOrigin(t *testing.T) {
	if !IsLoopbackOrigin("http://localhost:3000") {
		t.Fatal("localhost should be loopback")
	}
	if !IsLoopbackOrigin("http://127.0.0.1:8080") {
		t.Fatal("127.0.0.1 should be loopback")
	}
	if IsLoopbackOrigin("https://wallet.example.com") {
		t.Fatal("public host should not be loopback")
	}
}
