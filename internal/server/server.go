// Package server exposes the quiz service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/wikiquiz/quizgen/pkg/logging"
	"github.com/wikiquiz/quizgen/pkg/quiz"
	"github.com/wikiquiz/quizgen/pkg/service"
	"github.com/wikiquiz/quizgen/pkg/store"
)

// QuizService is the application surface the HTTP layer consumes.
// *service.Service implements it.
type QuizService interface {
	Generate(ctx context.Context, url string, force bool) (*quiz.Entry, error)
	History(ctx context.Context) ([]*quiz.Entry, error)
	Detail(ctx context.Context, id int64) (*quiz.Entry, error)
}

// Server routes HTTP requests to the quiz service.
type Server struct {
	svc     QuizService
	origins []string
	mux     *http.ServeMux
	logger  zerolog.Logger
}

// New creates a Server. origins is the CORS allowlist; nil allows any origin.
func New(svc QuizService, origins []string) *Server {
	s := &Server{
		svc:     svc,
		origins: origins,
		mux:     http.NewServeMux(),
		logger:  logging.NewLogger("http"),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/quizzes/generate", s.handleGenerate)
	s.mux.HandleFunc("GET /api/quizzes", s.handleHistory)
	s.mux.HandleFunc("GET /api/quizzes/{id}", s.handleDetail)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns the root handler with common middleware applied.
func (s *Server) Handler() http.Handler {
	return s.withCORS(s.mux)
}

type generateRequest struct {
	URL   string `json:"url"`
	Force bool   `json:"force"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		s.writeError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}

	start := time.Now()
	entry, err := s.svc.Generate(r.Context(), req.URL, req.Force)
	if err != nil {
		status := statusForError(err)
		s.logger.Warn().
			Err(err).
			Str("url", req.URL).
			Bool("force", req.Force).
			Str("error_kind", string(service.KindOf(err))).
			Int("status", status).
			Msg("Generate request failed")
		s.writeError(w, status, err.Error())
		return
	}

	s.logger.Info().
		Str("url", req.URL).
		Int64("quiz_id", entry.ID).
		Dur("duration", time.Since(start)).
		Msg("Generate request served")
	s.writeJSON(w, http.StatusOK, entry)
}

// historyItem is the trimmed listing shape: no quiz body.
type historyItem struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.History(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("History request failed")
		s.writeError(w, http.StatusInternalServerError, "could not list quizzes")
		return
	}

	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{ID: e.ID, URL: e.URL, Title: e.Title, CreatedAt: e.CreatedAt})
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid quiz id")
		return
	}

	entry, err := s.svc.Detail(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		s.logger.Error().Err(err).Int64("quiz_id", id).Msg("Detail request failed")
		s.writeError(w, http.StatusInternalServerError, "could not load quiz")
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   "quizgen",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// statusForError maps the service error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch service.KindOf(err) {
	case service.KindClientInput:
		return http.StatusBadRequest
	case service.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// withCORS adds CORS and common headers.
func (s *Server) withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.origins) > 0 {
			origin = ""
			for _, o := range s.origins {
				if o == r.Header.Get("Origin") {
					origin = o
					break
				}
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Server", "quizgen")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
