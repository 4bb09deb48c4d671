package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SHIELDCARE_SERVER_ADDR.
const EnvPrefix = "SHIELDCARE"

// Config is the full application configuration.
type Config struct {
	Server Server `mapstructure:"server"`
	Log    Log    `mapstructure:"log"`
	Delays Delays `mapstructure:"delays"`
	Wallet Wallet `mapstructure:"wallet"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Delays are the simulated latencies of the mock collaborators.
type Delays struct {
	Encrypt       time.Duration `mapstructure:"encrypt"`
	StagePause    time.Duration `mapstructure:"stage_pause"`
	Contract      time.Duration `mapstructure:"contract"`
	Decrypt       time.Duration `mapstructure:"decrypt"`
	WalletConnect time.Duration `mapstructure:"wallet_connect"`
}

type Wallet struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	// Required gates submit and reset behind a connected wallet.
	Required bool `mapstructure:"required"`
}

// Defaults are the demo timings.
var Defaults = map[string]any{
	"server.addr":             ":8080",
	"server.shutdown_timeout": 10 * time.Second,
	"log.level":               "info",
	"log.format":              "text",
	"delays.encrypt":          1500 * time.Millisecond,
	"delays.stage_pause":      800 * time.Millisecond,
	"delays.contract":         3 * time.Second,
	"delays.decrypt":          1200 * time.Millisecond,
	"delays.wallet_connect":   1500 * time.Millisecond,
	// Use a default for development - should be overridden in production
	"wallet.signing_key": "dev-secret-key-change-in-production",
	"wallet.issuer":      "shieldcare",
	"wallet.token_ttl":   time.Hour,
	"wallet.required":    true,
}

// Load reads configuration from defaults, an optional file, SHIELDCARE_*
// environment variables and any flags already bound to v, in increasing
// precedence.
func Load(v *viper.Viper, configFile string) (Config, error) {
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	for name, d := range map[string]time.Duration{
		"delays.encrypt":        c.Delays.Encrypt,
		"delays.stage_pause":    c.Delays.StagePause,
		"delays.contract":       c.Delays.Contract,
		"delays.decrypt":        c.Delays.Decrypt,
		"delays.wallet_connect": c.Delays.WalletConnect,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.Wallet.SigningKey == "" {
		errs = append(errs, errors.New("wallet.signing_key is required"))
	}
	if c.Wallet.TokenTTL <= 0 {
		errs = append(errs, errors.New("wallet.token_ttl must be positive"))
	}
	return errors.Join(errs...)
}
