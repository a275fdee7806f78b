package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the daemon configuration, loaded from FREO_* environment
// variables.
type Config struct {
	ListenAddr      string        `envconfig:"LISTEN_ADDR" default:":8545"`
	RedisURL        string        `envconfig:"REDIS_URL"`
	SecretFile      string        `envconfig:"SECRET_FILE" default:"freo-secret.json"`
	ChainsFile      string        `envconfig:"CHAINS_FILE"`
	DefaultChain    string        `envconfig:"DEFAULT_CHAIN" default:"0x1"`
	SessionLifetime time.Duration `envconfig:"SESSION_LIFETIME" default:"24h"`
	ApprovalTimeout time.Duration `envconfig:"APPROVAL_TIMEOUT" default:"2m"`
	MinPasswordLen  int           `envconfig:"MIN_PASSWORD_LEN" default:"8"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("freo", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return cfg, nil
}
