package custody

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// mintBearer signs a short-lived request bearer with the configured API
// key pair. The provider matches the kid header against the registered key
// and verifies the HMAC signature.
func (c *Client) mintBearer(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    c.cfg.APIKeyID,
		Audience:  jwt.ClaimStrings{c.cfg.BaseURL},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.BearerTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = c.cfg.APIKeyID

	signed, err := token.SignedString([]byte(c.cfg.APIKeySecret))
	if err != nil {
		return "", fmt.Errorf("sign bearer: %w", err)
	}
	return signed, nil
}
