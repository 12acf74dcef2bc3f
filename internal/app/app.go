// Package app owns the process lifecycle: wiring the container, loading
// plugins, starting the watcher and status server, and handling graceful
// shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/outbound/logging"
	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/wiring"
)

// App is the thin lifecycle manager that delegates dependency construction to wiring.Container.
type App struct {
	cfg        Config
	container  *wiring.Container
	httpServer *http.Server
}

// New constructs the application by creating a logger and wiring
// infrastructure components via the container.
func New(cfg Config) (*App, error) {
	level := parseLogLevel(cfg.LogLevel)
	logger := logging.New(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	container, err := wiring.New(wiring.Params{
		Logger:                  logger,
		VulnPluginDir:           cfg.VulnPluginDir,
		ToolPluginDir:           cfg.ToolPluginDir,
		RateLimiterCapacity:     cfg.RateLimiterCapacity,
		RateLimiterRate:         cfg.RateLimiterRate,
		BreakerFailureThreshold: cfg.BreakerFailureThreshold,
		BreakerSuccessThreshold: cfg.BreakerSuccessThreshold,
		BreakerRecoveryTimeout:  cfg.BreakerRecoveryTimeout,
		DefaultTimeout:          cfg.DefaultTimeout,
		AuditLogDir:             cfg.AuditLogDir,
		AuditMaxFileMB:          cfg.AuditMaxFileMB,
		AuditMaxFiles:           cfg.AuditMaxFiles,
		AuditConsole:            cfg.AuditConsole,
		AuditFilterExpr:         cfg.AuditFilterExpr,
		TraceSize:               cfg.TraceSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to wire infrastructure: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      container.StatusServer(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		container:  container,
		httpServer: httpServer,
	}, nil
}

// Run executes the full application lifecycle: load plugins, start the
// plugin watcher, serve the status surface, and handle graceful shutdown
// on SIGINT/SIGTERM or context cancellation.
func (a *App) Run(ctx context.Context) error {
	defer a.container.Close()

	logger := a.container.Logger()
	loader := a.container.Loader()

	n := loader.LoadAll()
	logger.Info("plugins loaded", "count", n)

	a.container.Watcher().Start()
	logger.Info("plugin watcher started", "vuln_dir", a.cfg.VulnPluginDir, "tool_dir", a.cfg.ToolPluginDir)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting status server", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("stopped")
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
