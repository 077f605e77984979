package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the wallet server configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Site     SiteConfig     `mapstructure:"site"`
	Identity IdentityConfig `mapstructure:"identity"`
	Custody  CustodyConfig  `mapstructure:"custody"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Handoff  HandoffConfig  `mapstructure:"handoff"`
	Tx       TxConfig       `mapstructure:"tx"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// SiteConfig contains settings for resolving the canonical site origin.
type SiteConfig struct {
	// BaseURL is the configured public origin. Redirect targets built on the
	// server always use it; clients prefer it in tunnel and installed-shell
	// scenarios where the live origin would be wrong.
	BaseURL string `mapstructure:"base_url"`
	// TunnelMarker identifies a development tunnel in BaseURL (e.g. "ngrok").
	TunnelMarker string `mapstructure:"tunnel_marker"`
}

// IdentityConfig contains identity (auth) service client settings
type IdentityConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// CustodyConfig contains wallet custody service client settings.
// Credentials are server-side only and must never reach the browser.
type CustodyConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKeyID       string        `mapstructure:"api_key_id"`
	APIKeySecret   string        `mapstructure:"api_key_secret"`
	NetworkID      string        `mapstructure:"network_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ChainConfig contains public JSON-RPC endpoint settings
type ChainConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HandoffConfig contains authorization-code handoff settings
type HandoffConfig struct {
	// CodeTTL bounds how long a stored handoff code stays exchangeable.
	CodeTTL time.Duration `mapstructure:"code_ttl"`
	// CountdownTicks is the number of one-second ticks on the opener page
	// before it auto-continues into the installed shell.
	CountdownTicks int `mapstructure:"countdown_ticks"`
}

// TxConfig contains transaction submission and receipt polling settings
type TxConfig struct {
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	PollTimeout        time.Duration `mapstructure:"poll_timeout"`
	SendRefreshDelay   time.Duration `mapstructure:"send_refresh_delay"`
	FaucetRefreshDelay time.Duration `mapstructure:"faucet_refresh_delay"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "pixie_wallet")

	// Site defaults
	viper.SetDefault("site.base_url", "http://localhost:3000")
	viper.SetDefault("site.tunnel_marker", "ngrok")

	// Identity defaults
	viper.SetDefault("identity.request_timeout", "30s")

	// Custody defaults
	viper.SetDefault("custody.network_id", "base-sepolia")
	viper.SetDefault("custody.request_timeout", "30s")

	// Chain defaults
	viper.SetDefault("chain.rpc_url", "https://sepolia.base.org")
	viper.SetDefault("chain.request_timeout", "15s")

	// Handoff defaults
	viper.SetDefault("handoff.code_ttl", "5m")
	viper.SetDefault("handoff.countdown_ticks", 5)

	// Tx defaults
	viper.SetDefault("tx.poll_interval", "3s")
	viper.SetDefault("tx.poll_timeout", "120s")
	viper.SetDefault("tx.send_refresh_delay", "1s")
	viper.SetDefault("tx.faucet_refresh_delay", "3s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if config.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	if config.Identity.BaseURL == "" {
		return fmt.Errorf("identity.base_url is required")
	}
	if config.Custody.BaseURL == "" {
		return fmt.Errorf("custody.base_url is required")
	}
	if config.Custody.APIKeyID == "" || config.Custody.APIKeySecret == "" {
		return fmt.Errorf("custody.api_key_id and custody.api_key_secret are required")
	}
	if config.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
