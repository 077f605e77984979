package custody

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Config contains the configuration required to initialize the custody client.
type Config struct {
	// BaseURL is the custody provider API root.
	BaseURL string `validate:"required,url"`

	// APIKeyID identifies the signing key pair registered with the provider.
	APIKeyID string `validate:"required"`

	// APIKeySecret is the shared secret used to sign request bearers.
	APIKeySecret string `validate:"required"`

	// NetworkID names the chain custody accounts are provisioned on.
	NetworkID string `validate:"required"`

	// RequestTimeout bounds every custody provider call.
	RequestTimeout time.Duration `default:"30s"`

	// BearerTTL bounds the lifetime of each minted request bearer.
	BearerTTL time.Duration `default:"1m"`
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid custody config: %w", err)
	}
	return nil
}
