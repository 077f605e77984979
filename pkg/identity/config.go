package identity

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Config contains the configuration required to initialize the identity client.
type Config struct {
	// BaseURL is the identity service auth endpoint root.
	BaseURL string `validate:"required,url"`

	// APIKey is the public (anon) API key sent with every request.
	APIKey string `validate:"required"`

	// RequestTimeout bounds every identity service call.
	RequestTimeout time.Duration `default:"30s"`
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid identity config: %w", err)
	}
	return nil
}
