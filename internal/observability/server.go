// Package observability provides the metrics and monitoring HTTP server.
package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"clarity-caption-service/internal/captions"
	"clarity-caption-service/internal/language"
)

// SubtitleSource exposes the current visible subtitles for the snapshot endpoint.
type SubtitleSource interface {
	Visible() []captions.SubtitleItem
}

// LanguageControl exposes the display-language preference over HTTP, for
// headless embedders that have no UI of their own.
type LanguageControl interface {
	Language() string
	SetLanguage(code string)
}

// Server provides HTTP endpoints for observability.
type Server struct {
	server *http.Server
	addr   string
}

// NewServer creates a new observability HTTP server.
// subtitles and prefs may be nil; the corresponding endpoints degrade to an
// empty list and 404.
func NewServer(addr string, subtitles SubtitleSource, prefs LanguageControl) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// Current visible subtitles, for debugging and headless embedders
	r.Get("/v1/subtitles", func(w http.ResponseWriter, _ *http.Request) {
		items := []captions.SubtitleItem{}
		if subtitles != nil {
			items = subtitles.Visible()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(items); err != nil {
			log.Error().Err(err).Msg("Failed to encode subtitle snapshot")
		}
	})

	// Selectable languages, common ones first. ?q= filters by name or code.
	r.Get("/v1/languages", func(w http.ResponseWriter, req *http.Request) {
		langs := language.Filter(req.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(langs); err != nil {
			log.Error().Err(err).Msg("Failed to encode language catalog")
		}
	})

	r.Get("/v1/language", func(w http.ResponseWriter, req *http.Request) {
		if prefs == nil {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		code := prefs.Language()
		_ = json.NewEncoder(w).Encode(language.Language{Code: code, Name: language.Name(code)})
	})

	r.Put("/v1/language", func(w http.ResponseWriter, req *http.Request) {
		if prefs == nil {
			http.NotFound(w, req)
			return
		}
		var body struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Code == "" {
			http.Error(w, "body must be {\"code\":\"<iso-639-1>\"}", http.StatusBadRequest)
			return
		}
		prefs.SetLanguage(body.Code)
		w.WriteHeader(http.StatusNoContent)
	})

	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("Starting observability HTTP server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Observability HTTP server error")
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down observability HTTP server")
	return s.server.Shutdown(ctx)
}
