// Package service orchestrates the quiz generation flow: cache lookup,
// repository lookup, article fetch, quiz generation, normalization,
// persistence, and cache write-back.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/wikiquiz/quizgen/pkg/cache"
	"github.com/wikiquiz/quizgen/pkg/llm"
	"github.com/wikiquiz/quizgen/pkg/logging"
	"github.com/wikiquiz/quizgen/pkg/quiz"
	"github.com/wikiquiz/quizgen/pkg/scrape"
	"github.com/wikiquiz/quizgen/pkg/store"
)

// Prometheus metrics for the generation flow.
var (
	generateRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizgen_generate_requests_total",
		Help: "Total quiz generation requests by outcome",
	}, []string{"outcome"}) // "cache_hit", "store_hit", "generated", "fallback", "error"

	generateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quizgen_generate_duration_seconds",
		Help:    "Quiz request duration in seconds by outcome",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
	}, []string{"outcome"})

	serviceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizgen_errors_total",
		Help: "Total request failures by error kind",
	}, []string{"kind"})
)

// Repository is the durable store consumed by the orchestrator.
// *store.Repository implements it.
type Repository interface {
	FindByURL(ctx context.Context, url string) (*quiz.Entry, error)
	FindByID(ctx context.Context, id int64) (*quiz.Entry, error)
	List(ctx context.Context) ([]*quiz.Entry, error)
	Create(ctx context.Context, data quiz.EntryData) (*quiz.Entry, error)
	Update(ctx context.Context, existing *quiz.Entry, data quiz.EntryData) (*quiz.Entry, error)
}

// Service handles quiz requests. The multi-step flow is deliberately not
// transactional: two concurrent first-time requests for the same URL may
// both fetch and generate, and the repository's natural-key conflict
// handling merges the results. See DESIGN.md.
type Service struct {
	cache     cache.Store
	repo      Repository
	fetcher   scrape.Fetcher
	generator llm.Generator // nil when no credential is configured
	logger    zerolog.Logger
}

// New creates a Service. generator may be nil, in which case every
// generation produces the deterministic fallback payload.
func New(cacheStore cache.Store, repo Repository, fetcher scrape.Fetcher, generator llm.Generator) *Service {
	return &Service{
		cache:     cacheStore,
		repo:      repo,
		fetcher:   fetcher,
		generator: generator,
		logger:    logging.NewLogger("orchestrator"),
	}
}

// Generate returns the quiz for url, serving it from the freshness cache
// or the repository when possible and running the fetch-and-generate
// pipeline otherwise. force bypasses both short-circuits but reuses an
// existing record's identity (update in place, never a duplicate row).
func (s *Service) Generate(ctx context.Context, url string, force bool) (*quiz.Entry, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		generateDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		generateRequestsTotal.WithLabelValues(outcome).Inc()
	}()

	key := cache.DeriveKey(url)

	if !force {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			s.logger.Debug().Str("url", url).Str("cache_key", key).Msg("Serving cached quiz")
			outcome = "cache_hit"
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			serviceErrorsTotal.WithLabelValues(string(KindInfrastructure)).Inc()
			return nil, newError(KindInfrastructure, "cache lookup", err)
		}
	}

	existing, err := s.repo.FindByURL(ctx, url)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		serviceErrorsTotal.WithLabelValues(string(KindInfrastructure)).Inc()
		return nil, newError(KindInfrastructure, "repository lookup", err)
	}

	if existing != nil && !force {
		if err := s.cache.Set(ctx, key, existing); err != nil {
			serviceErrorsTotal.WithLabelValues(string(KindInfrastructure)).Inc()
			return nil, newError(KindInfrastructure, "cache write", err)
		}
		s.logger.Debug().Str("url", url).Int64("quiz_id", existing.ID).Msg("Serving stored quiz")
		outcome = "store_hit"
		return existing, nil
	}

	article, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("Article fetch failed")
		serviceErrorsTotal.WithLabelValues(string(KindClientInput)).Inc()
		return nil, newError(KindClientInput, "fetch article", err)
	}

	payload, topics, generated, err := s.generatePayload(ctx, article)
	if err != nil {
		serviceErrorsTotal.WithLabelValues(string(KindUpstream)).Inc()
		return nil, newError(KindUpstream, "generate quiz", err)
	}

	data := quiz.EntryData{
		URL:           url,
		Title:         article.Title,
		Summary:       article.Summary,
		KeyEntities:   payload.KeyEntities,
		Sections:      article.Sections,
		Quiz:          quiz.NormalizeQuestions(payload.Quiz),
		RelatedTopics: topics,
	}

	var result *quiz.Entry
	if existing != nil {
		// Only reachable with force=true: reuse the record's identity.
		result, err = s.repo.Update(ctx, existing, data)
	} else {
		result, err = s.repo.Create(ctx, data)
	}
	if err != nil {
		serviceErrorsTotal.WithLabelValues(string(KindInfrastructure)).Inc()
		return nil, newError(KindInfrastructure, "persist quiz", err)
	}

	if err := s.cache.Set(ctx, key, result); err != nil {
		serviceErrorsTotal.WithLabelValues(string(KindInfrastructure)).Inc()
		return nil, newError(KindInfrastructure, "cache write", err)
	}

	s.logger.Info().
		Str("url", url).
		Int64("quiz_id", result.ID).
		Bool("force", force).
		Int("questions", len(result.Quiz)).
		Dur("duration", time.Since(start)).
		Msg("Quiz generated")

	if generated {
		outcome = "generated"
	} else {
		outcome = "fallback"
	}
	return result, nil
}

// generatePayload runs the generator when one is configured and the
// deterministic fallback otherwise. A configured generator that fails is
// an error, never a silent fallback.
func (s *Service) generatePayload(ctx context.Context, article *scrape.Article) (quiz.RawPayload, []string, bool, error) {
	if s.generator == nil {
		s.logger.Warn().Str("title", article.Title).Msg("No generator configured, using fallback payload")
		return quiz.FallbackPayload(article.Summary, article.Sections), quiz.FallbackRelatedTopics(), false, nil
	}

	payload, err := s.generator.GenerateQuiz(ctx, article.BodyText, article.Title, article.Summary, article.Sections)
	if err != nil {
		return quiz.RawPayload{}, nil, false, fmt.Errorf("quiz payload: %w", err)
	}

	topics, err := s.generator.GenerateRelatedTopics(ctx, article.BodyText, article.Title, article.Summary, article.Sections)
	if err != nil {
		return quiz.RawPayload{}, nil, false, fmt.Errorf("related topics: %w", err)
	}

	return payload, topics, true, nil
}

// History lists all persisted quizzes, newest first.
func (s *Service) History(ctx context.Context) ([]*quiz.Entry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, newError(KindInfrastructure, "list quizzes", err)
	}
	return entries, nil
}

// Detail returns one persisted quiz by id. store.ErrNotFound passes
// through unclassified so transports can map it to a 404.
func (s *Service) Detail(ctx context.Context, id int64) (*quiz.Entry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, newError(KindInfrastructure, "find quiz", err)
	}
	return entry, nil
}
