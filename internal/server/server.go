// Package server provides the web application: session-cookie
// authentication, device and diagnostics CRUD pages, and the
// supporting HTTP plumbing.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"procodus.dev/device-monitor/internal/auth"
	"procodus.dev/device-monitor/internal/store"
	"procodus.dev/device-monitor/pkg/metrics"
)

// Server represents the device monitor web server.
type Server struct {
	logger      *slog.Logger
	httpServer  *http.Server
	config      *ServerConfig
	tokens      *auth.TokenManager
	users       *store.UserRepository
	devices     *store.DeviceRepository
	diagnostics *store.DiagnosticRepository
	templates   map[string]*template.Template
	metrics     *metrics.ServerMetrics
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger *slog.Logger

	// DB is the shared database handle the repositories run on.
	DB *gorm.DB

	// TokenManager issues and verifies the session tokens.
	TokenManager *auth.TokenManager

	// Metrics is optional; when nil no metrics are recorded.
	Metrics *metrics.ServerMetrics

	// HTTP server configuration.
	HTTPPort int

	// SecureCookies marks the session cookies Secure; enable behind
	// HTTPS.
	SecureCookies bool
}

// NewServer creates a new web server instance.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.DB == nil {
		return nil, errors.New("database cannot be nil")
	}

	if cfg.TokenManager == nil {
		return nil, errors.New("token manager cannot be nil")
	}

	if cfg.HTTPPort <= 0 {
		return nil, errors.New("HTTP port must be positive")
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Server{
		logger:      cfg.Logger,
		config:      cfg,
		tokens:      cfg.TokenManager,
		users:       store.NewUserRepository(cfg.DB),
		devices:     store.NewDeviceRepository(cfg.DB),
		diagnostics: store.NewDiagnosticRepository(cfg.DB),
		templates:   templates,
		metrics:     cfg.Metrics,
	}, nil
}

// Run starts the web server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting web server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "address", s.httpServer.Addr)

	httpErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	s.logger.Info("web server started")

	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled")
	case err := <-httpErr:
		if err != nil {
			s.logger.Error("HTTP server error", "error", err)
			cancel()
			return err
		}
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down web server")

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown HTTP server", "error", err)
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
	}

	s.logger.Info("web server shutdown completed")
	return nil
}

// Handler returns the fully wired HTTP handler for the application.
func (s *Server) Handler() http.Handler {
	return s.withMetrics(s.setupRoutes())
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Operational endpoints
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	// Auth section
	mux.HandleFunc("GET /auth/register", s.handleRegisterForm)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("GET /auth/login", s.handleLoginForm)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/logout", s.handleLogout)
	mux.HandleFunc("/auth/", s.handleAuthCatchAll)

	// Devices section (authenticated)
	mux.HandleFunc("GET /devices/home", s.requireAuth(s.handleDeviceList))
	mux.HandleFunc("GET /devices/add", s.requireAuth(s.handleDeviceAddForm))
	mux.HandleFunc("POST /devices/add", s.requireAuth(s.handleDeviceAdd))
	mux.HandleFunc("GET /devices/update/{id}", s.requireAuth(s.handleDeviceUpdateForm))
	mux.HandleFunc("POST /devices/update/{id}", s.requireAuth(s.handleDeviceUpdate))
	mux.HandleFunc("GET /devices/delete/{id}", s.requireAuth(s.handleDeviceDelete))
	mux.HandleFunc("/devices/", s.requireAuth(s.handleDeviceCatchAll))

	// Diagnostics section (authenticated)
	mux.HandleFunc("GET /diagnostics/home", s.requireAuth(s.handleDiagnosticList))
	mux.HandleFunc("GET /diagnostics/add", s.requireAuth(s.handleDiagnosticAddForm))
	mux.HandleFunc("POST /diagnostics/add", s.requireAuth(s.handleDiagnosticAdd))
	mux.HandleFunc("GET /diagnostics/update/{id}", s.requireAuth(s.handleDiagnosticUpdateForm))
	mux.HandleFunc("POST /diagnostics/update/{id}", s.requireAuth(s.handleDiagnosticUpdate))
	mux.HandleFunc("GET /diagnostics/delete/{id}", s.requireAuth(s.handleDiagnosticDelete))
	mux.HandleFunc("/diagnostics/", s.requireAuth(s.handleDiagnosticCatchAll))

	// Home page and fallback
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /home", s.handleHome)
	mux.HandleFunc("/", s.handleNotFound)

	return mux
}

// redirect queues a flash notice and sends the browser to url.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, url, category, message string) {
	setFlash(w, category, message)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// handleHealth serves the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		s.logger.Error("failed to write health response", "error", err)
	}
}
