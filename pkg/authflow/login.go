package authflow

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/pixielabs/pixie-wallet/pkg/app/errors"
	"github.com/pixielabs/pixie-wallet/pkg/identity"
	"github.com/pixielabs/pixie-wallet/pkg/siteurl"
)

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><meta name="viewport" content="width=device-width, initial-scale=1"><title>Sign in to Pixie Wallet</title></head>
<body>
<h1>Sign in</h1>
<form method="post" action="/login/otp">
  <input type="email" name="email" placeholder="you@example.com" required>
  <button type="submit">Email me a sign-in code</button>
</form>
</body>
</html>`))

// LoginPage serves the sign-in form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if err := loginPage.Execute(w, nil); err != nil {
		h.logger.Error("Failed to render login page", zap.Error(err))
	}
}

type otpRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// RequestOTP starts an email challenge. The magic link in the email points
// back at the callback route.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) error {
	email, err := readEmail(r)
	if err != nil {
		return err
	}

	redirectTo := h.resolver.AuthCallbackURL(siteurl.ServerContext())
	if err := h.identity.RequestEmailOTP(r.Context(), email, redirectTo); err != nil {
		return apperrors.DependencyError(err, "could not send sign-in email")
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]string{"status": "sent"})
}

// VerifyOTP completes an email challenge and signs the browser in.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) error {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Token = strings.TrimSpace(req.Token)
	if req.Email == "" || req.Token == "" {
		return apperrors.BadRequestError(errors.New("missing email or token"), "email and token are required")
	}

	session, err := h.identity.VerifyEmailOTP(r.Context(), req.Email, req.Token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCode) {
			return apperrors.UnAuthorizedError(err, "invalid or expired code")
		}
		return apperrors.DependencyError(err, "verification failed")
	}

	h.setSessionCookie(w, session)
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]string{"redirect": "/dashboard"})
}

// Logout revokes the session remotely on a best-effort basis and always
// clears the browser's cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if err := h.identity.SignOut(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("Remote sign-out failed, clearing cookie anyway", zap.Error(err))
		}
	}

	h.clearSessionCookie(w)
	h.clearHandoffCookies(w)
	http.Redirect(w, r, h.resolver.LoginURL(siteurl.ServerContext()), http.StatusFound)
}

func readEmail(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var req otpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", apperrors.BadRequestError(err, "invalid request body")
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" {
			return "", apperrors.BadRequestError(errors.New("missing email"), "email is required")
		}
		return req.Email, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", apperrors.BadRequestError(err, "invalid form body")
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	if email == "" {
		return "", apperrors.BadRequestError(errors.New("missing email"), "email is required")
	}
	return email, nil
}
