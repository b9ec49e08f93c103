// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration surface.
type Config struct {
	// Port the HTTP API listens on.
	Port string `env:"PORT" envDefault:"8080"`

	// DatabasePath is the SQLite database file.
	DatabasePath string `env:"DATABASE_PATH" envDefault:"quizgen.db"`

	// CacheTTL is the freshness window for cached quizzes.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"60m"`

	// RedisURL selects the Redis cache backend when set; empty keeps
	// the in-process store.
	RedisURL string `env:"REDIS_URL"`

	// GeminiAPIKey enables live generation; empty selects the
	// deterministic fallback payloads.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`

	// LLMModel is the Gemini model name.
	LLMModel string `env:"LLM_MODEL" envDefault:"gemini-1.5-flash"`

	// AllowedOrigins is a comma-separated CORS allowlist; empty allows
	// any origin.
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	// SweepSchedule is the cron spec for the cache maintenance sweep.
	SweepSchedule string `env:"SWEEP_SCHEDULE" envDefault:"@every 10m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Origins returns the parsed CORS allowlist, nil when any origin is allowed.
func (c Config) Origins() []string {
	if strings.TrimSpace(c.AllowedOrigins) == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
