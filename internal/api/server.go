package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/restreamer/internal/api/models"
	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/events"
	"github.com/smazurov/restreamer/internal/logging"
	"github.com/smazurov/restreamer/internal/process"
	"github.com/smazurov/restreamer/internal/version"
	"github.com/smazurov/restreamer/ui"
)

// StreamController is the part of the supervisor the API drives.
type StreamController interface {
	Start(ctx context.Context, source process.ConfigSource) (*process.Result, error)
	Stop() (*process.Result, error)
	Status() process.Status
	Info() process.Info
}

// LaunchStore is where the launch configuration lives. It is read on every
// start and replaced by PUT /api/config.
type LaunchStore interface {
	Load(ctx context.Context) (config.LaunchConfig, error)
	Save(cfg config.LaunchConfig) error
	Path() string
}

// Options configures the API server.
type Options struct {
	Controller     StreamController
	Launch         LaunchStore
	EventBus       *events.Bus  // Optional, enables /api/events and /api/logs/stream
	MetricsHandler http.Handler // Optional Prometheus metrics handler
	OnReady        func(addr string)
}

// Server is the HTTP control surface of the restreamer.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	controller StreamController
	launch     LaunchStore
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()

	// Add CORS preflight handler for all OPTIONS requests
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("Restreamer API", version.String())
	config.Info.Description = "Control API for a single HLS to RTMP(S) ffmpeg restream"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	server := &Server{
		api:        api,
		mux:        mux,
		controller: opts.Controller,
		launch:     opts.Launch,
		eventBus:   opts.EventBus,
		options:    opts,
		logger:     logging.GetLogger(logging.ModuleAPI),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", AllowCORS(corsConfig, opts.MetricsHandler))
	}

	server.registerRoutes()

	mux.Handle("GET /{$}", ui.Handler())

	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// API returns the Huma API instance
func (s *Server) API() huma.API {
	return s.api
}

// Start listens on addr and serves until Stop is called.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.httpServer = &http.Server{Handler: s.mux}
	srv := s.httpServer
	s.mu.Unlock()

	bound := ln.Addr().String()
	s.logger.Info("Starting restreamer API server", "addr", bound)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+bound+"/docs")
	if s.options.OnReady != nil {
		s.options.OnReady(bound)
	}

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes the listener and all connections, SSE streams included.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		return srv.Close()
	}
	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		versionInfo := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   versionInfo.Version,
				GitCommit: versionInfo.GitCommit,
				BuildDate: versionInfo.BuildDate,
				BuildID:   versionInfo.BuildID,
				GoVersion: versionInfo.GoVersion,
				Compiler:  versionInfo.Compiler,
				Platform:  versionInfo.Platform,
			},
		}, nil
	})

	s.registerStreamRoutes()
	s.registerConfigRoutes()
	s.registerLogRoutes()

	if s.eventBus != nil {
		s.registerSSERoutes()
		s.registerLogStreamRoutes()
	}
}
