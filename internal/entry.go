// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultfold/internal/api"
	"github.com/starford/vaultfold/internal/folders"
	"github.com/starford/vaultfold/internal/mcpserver"
	"github.com/starford/vaultfold/internal/sse"
	"github.com/starford/vaultfold/internal/storage"
	"github.com/starford/vaultfold/internal/vaultpath"
	"github.com/starford/vaultfold/internal/watch"
)

type runtime struct {
	cfg    *Config
	logger *slog.Logger
	guard  *vaultpath.Guard
	store  *storage.FS
}

// setup applies opts, installs the default logger and opens the vault.
func setup(defaultOut io.Writer, opts []Option) (*runtime, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config
	out := app.logOutput
	if out == nil {
		out = defaultOut
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.Any("protected", cfg.Vault.Protected),
		slog.Duration("operation_timeout", cfg.App.OperationTimeout),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	guard, err := vaultpath.NewGuard(cfg.Vault.Path, cfg.Vault.Protected)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, guard: guard, store: storage.NewFS(guard)}, nil
}

func (rt *runtime) engine(opts ...folders.Option) *folders.Engine {
	opts = append([]folders.Option{folders.WithLogger(rt.logger)}, opts...)
	return folders.New(rt.guard, rt.store, rt.cfg.Limits.Folders(), opts...)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(os.Stdout, opts)
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.TreeThrottle)
	defer broker.Close()

	engine := rt.engine(folders.WithNotifier(broker))
	apiRouter := api.NewRouter(engine, cfg.App.OperationTimeout, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if info, err := os.Stat(rt.guard.Root()); err != nil || !info.IsDir() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"vault unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// Report folders changed outside the server.
	if cfg.Events.Watch {
		g.Go(func() error {
			if err := watch.Watch(gCtx, rt.guard.Root(), rt.guard.DeniedRel, logger, broker.ExternalChange); err != nil {
				logger.Warn("watcher: disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Event streams never end on their own; close them first.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the folder tools over MCP stdio until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	rt, err := setup(os.Stderr, opts)
	if err != nil {
		return err
	}

	srv := mcpserver.New(rt.engine(), rt.cfg.App.OperationTimeout)
	rt.logger.Info("MCP server starting on stdio", slog.String("vault_root", rt.guard.Root()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
	case <-ctx.Done():
	}
	rt.logger.Info("MCP server stopped")
	return nil
}
