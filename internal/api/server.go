// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/planetquant/quant-engine/internal/api/middleware"
	"github.com/planetquant/quant-engine/internal/api/response"
	"github.com/planetquant/quant-engine/internal/core"
	"github.com/planetquant/quant-engine/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const archiveTimeout = 10 * time.Second

// Analyzer answers trading questions and exposes raw source data.
type Analyzer interface {
	Analyze(ctx context.Context, req core.TradeRequest) (core.AnalyzeResponse, error)
	Scrape(ctx context.Context, question string) (core.ScrapeResponse, error)
}

// Archiver persists completed analyses.
type Archiver interface {
	Save(ctx context.Context, resp core.AnalyzeResponse) (string, error)
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	APIKey         string
	MetricsEnabled bool
	MetricsPath    string
}

// Dependencies are the components the server serves. Archiver and Metrics
// may be nil.
type Dependencies struct {
	Analyzer Analyzer
	Archiver Archiver
	Metrics  *metrics.Registry
}

// Server represents the HTTP server for the quant engine
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	deps       Dependencies
	logger     *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger,
	}

	mux := http.NewServeMux()
	auth := middleware.APIKeyAuth(cfg.APIKey)

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/api/analyze", auth(http.HandlerFunc(s.handleAnalyze)))
	mux.Handle("/api/scrape", auth(http.HandlerFunc(s.handleScrape)))

	if cfg.MetricsEnabled && deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)
	handler = middleware.Recovery(logger)(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "Quant Engine is running!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.Error(w, http.StatusMethodNotAllowed,
			core.WrapError(core.ErrRequestInvalid, fmt.Errorf("method %s not allowed", r.Method)))
		return
	}

	var req core.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusUnprocessableEntity,
			core.WrapError(core.ErrRequestInvalid, fmt.Errorf("invalid request body: %w", err)))
		return
	}

	resp, err := s.deps.Analyzer.Analyze(r.Context(), req)
	if err != nil {
		s.writeAnalyzerError(w, err)
		return
	}

	if s.deps.Archiver != nil {
		go s.archive(resp)
	}

	response.JSON(w, http.StatusOK, resp)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.Error(w, http.StatusMethodNotAllowed,
			core.WrapError(core.ErrRequestInvalid, fmt.Errorf("method %s not allowed", r.Method)))
		return
	}

	question := r.URL.Query().Get("question")

	resp, err := s.deps.Analyzer.Scrape(r.Context(), question)
	if err != nil {
		s.writeAnalyzerError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, resp)
}

func (s *Server) writeAnalyzerError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrRequestInvalid) {
		response.Error(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.logger.Error("analysis failed", zap.Error(err))
	response.Error(w, http.StatusInternalServerError, err)
}

// archive persists a completed analysis off the request path.
func (s *Server) archive(resp core.AnalyzeResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if _, err := s.deps.Archiver.Save(ctx, resp); err != nil {
		s.logger.Warn("failed to archive analysis", zap.Error(err))
	}
}
