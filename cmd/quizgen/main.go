// Command quizgen runs the quiz generation HTTP service.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/wikiquiz/quizgen/internal/config"
	"github.com/wikiquiz/quizgen/internal/server"
	"github.com/wikiquiz/quizgen/pkg/cache"
	"github.com/wikiquiz/quizgen/pkg/llm"
	"github.com/wikiquiz/quizgen/pkg/logging"
	"github.com/wikiquiz/quizgen/pkg/scrape"
	"github.com/wikiquiz/quizgen/pkg/service"
	"github.com/wikiquiz/quizgen/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.Setup(logging.DefaultConfig())
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	repo, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to open database")
	}
	defer repo.Close()
	logger.Info().Str("path", cfg.DatabasePath).Msg("Database ready")

	cacheStore := buildCache(cfg, logger)

	var generator llm.Generator
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGemini(cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create generator")
		}
		generator = gemini
		logger.Info().Str("model", cfg.LLMModel).Msg("LLM generator enabled")
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set, serving fallback quizzes")
	}

	fetcher := scrape.NewScraper(scrape.Options{})
	svc := service.New(cacheStore, repo, fetcher, generator)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		if err := cacheStore.SweepExpired(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Cache sweep failed")
		}
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.SweepSchedule).Msg("Invalid sweep schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(svc, cfg.Origins())

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Msg("Starting quizgen server")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// buildCache selects the cache backend: Redis when REDIS_URL is set,
// otherwise the in-process store.
func buildCache(cfg config.Config, logger zerolog.Logger) cache.Store {
	if cfg.RedisURL == "" {
		logger.Info().Dur("ttl", cfg.CacheTTL).Msg("Using in-memory cache")
		return cache.NewMemoryStore(cfg.CacheTTL)
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisURL).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.RedisURL).Dur("ttl", cfg.CacheTTL).Msg("Using Redis cache")
	return cache.NewRedisStore(client, cfg.CacheTTL)
}
