package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the broker's process configuration. Provider client
// credentials are deliberately not here: each provider resolves its own
// credentials from the environment at call time, so secrets injected after
// startup are picked up without a restart.
type Config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	CallbackBaseURL string        `env:"CALLBACK_BASE_URL" envDefault:"https://oauth.platform.hanzo.ai"`
	StateTTL        time.Duration `env:"STATE_TTL" envDefault:"10m"`
	SweepInterval   time.Duration `env:"STATE_SWEEP_INTERVAL" envDefault:"5m"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.CallbackBaseURL = strings.TrimRight(cfg.CallbackBaseURL, "/")
	return cfg, nil
}
