package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/target/hookline/config"
	httpx "github.com/target/hookline/internal/http"
	"golang.org/x/net/netutil"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// ErrCh receives a serve failure after startup.
	ErrCh chan<- error
}

// RouterServices maps the container onto the HTTP router's dependencies.
func RouterServices(cfg *config.AppConfig, svcs ServiceContainer, logger *slog.Logger) httpx.RouterServices {
	rs := httpx.RouterServices{
		Ingest:          svcs.Ingest,
		Health:          svcs.Health,
		CronAuth:        svcs.CronAuth,
		SignatureHeader: cfg.Webhook.SignatureHeader,
		MaxBodyBytes:    cfg.HTTP.MaxBodyBytes,
		Logger:          logger,
	}
	// Typed nil runners must stay nil interfaces so the handlers answer 503.
	if svcs.RetryRunner != nil {
		rs.Cron.Retry = svcs.RetryRunner
	}
	if svcs.QueueRunner != nil {
		rs.Cron.Queue = svcs.QueueRunner
	}
	if svcs.Reaper != nil {
		rs.Cron.Reap = svcs.Reaper
	}
	return rs
}

// StartHTTPServer binds the listener and serves in the background. Binding
// errors are returned synchronously.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpCfg := cfg.Config.HTTP

	addr := httpCfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if httpCfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, httpCfg.MaxConnections)
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      httpx.NewRouter(RouterServices(cfg.Config, cfg.Services, logger)),
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
		IdleTimeout:  httpCfg.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", ln.Addr().String(), "max_connections", httpCfg.MaxConnections)
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", serveErr)
			if cfg.ErrCh != nil {
				select {
				case cfg.ErrCh <- fmt.Errorf("http server: %w", serveErr):
				default:
				}
			}
		}
	}()

	return server, nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server, letting in-flight
// deliveries finish within the context deadline.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	if err := cfg.Server.Shutdown(cfg.Context); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
