// Package server constructs and runs the relay HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/JOJOXU918/infinity-backend/internal/config"
)

// CreateServer creates and configures an HTTP server with the specified address and handler.
// It sets reasonable timeout values for production use. Upgraded connections
// manage their own deadlines.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active requests to finish or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration, logger *slog.Logger) error {
	logger.Info("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info("http server shutdown completed")
	return nil
}

// Server ties the hub to its HTTP surface.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	hub    *Hub
	http   *http.Server
}

// New builds a Server from cfg. The gin engine runs in release mode unless the
// log level is debug.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := NewHub(cfg, logger)
	return &Server{
		cfg:    cfg,
		logger: logger,
		hub:    hub,
		http:   CreateServer(cfg.Addr(), SetupRoutes(hub, logger)),
	}
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run listens on the configured address and serves until ctx is cancelled.
// A failure to bind is returned immediately.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down the
// HTTP server and the hub within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("server started",
		"addr", ln.Addr().String(),
		"url", "ws://"+ln.Addr().String(),
		"probe_interval", s.cfg.ProbeInterval,
		"probe_timeout", s.cfg.ProbeTimeout,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		httpErr := ShutdownServer(s.http, s.cfg.ShutdownTimeout, s.logger)
		hubErr := s.hub.Shutdown(s.cfg.ShutdownTimeout)
		if hubErr != nil {
			hubErr = fmt.Errorf("shutdown hub: %w", hubErr)
		}
		return errors.Join(httpErr, hubErr)
	})

	err := g.Wait()
	s.logger.Info("server stopped")
	return err
}
