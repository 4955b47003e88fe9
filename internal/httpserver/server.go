// internal/httpserver/server.go
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/MrSnakeDoc/marktrabit/internal/config"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/mw"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/routes"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
	"github.com/MrSnakeDoc/marktrabit/internal/version"
)

// DefaultRequestTimeout bounds page and API handlers.
const DefaultRequestTimeout = 30 * time.Second

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http      *http.Server
	logger    logger.Logger
	started   time.Time
	closing   chan struct{}
	closeOnce sync.Once
}

// NewRouter builds the router (middlewares, route registration).
func NewRouter(d deps.Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()

	// --- Global middlewares (safe defaults)
	r.Use(middleware.RequestID) // X-Request-ID on each request
	r.Use(middleware.Recoverer) // never crash the process on panic
	r.Use(mw.Log(d.Logger))     // structured access logs
	r.Use(mw.Metrics(d.Metrics))
	r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))

	routes.RegisterAll(r, d)

	return otelhttp.NewHandler(r, version.Name,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// New builds the HTTP server.
func New(cfg *config.Config, loggerClient logger.Logger, d deps.Deps) *Server {
	closing := make(chan struct{})
	d.Closing = closing

	s := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewRouter(d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{
		http:    s,
		logger:  loggerClient,
		started: d.StartTime,
		closing: closing,
	}
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	// http.ErrServerClosed is expected on graceful shutdown.
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
// Open event streams are told to end first; Shutdown would otherwise wait
// for them until the deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...",
		logger.Duration("uptime", time.Since(s.started)))
	s.closeOnce.Do(func() { close(s.closing) })
	return s.http.Shutdown(ctx)
}
