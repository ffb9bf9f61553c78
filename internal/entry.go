// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mdcal/internal/api"
	"github.com/starford/mdcal/internal/docservice"
	"github.com/starford/mdcal/internal/index"
	"github.com/starford/mdcal/internal/mcpserver"
	"github.com/starford/mdcal/internal/sse"
)

const (
	calendarGap  = 2 * time.Second
	sseHeartbeat = 30 * time.Second
)

// Run starts the HTTP server, the catalog watcher and the resync schedule,
// and blocks until ctx ends or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("index_path", cfg.Index.Path),
		slog.String("timezone", cfg.Calendar.Timezone),
		slog.String("log_level", cfg.App.LogLevel.String()))

	core, err := NewCore(cfg, logger)
	if err != nil {
		return err
	}
	docsDir, err := core.Store.Dir()
	if err != nil {
		return fmt.Errorf("resolve documents dir: %w", err)
	}
	logger.Info("Documents folder", slog.String("dir", docsDir))

	// Initialize SQLite catalog.
	if err := os.MkdirAll(filepath.Dir(cfg.Index.Path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// SSE broker fed by every catalog change.
	broker := sse.NewBroker(calendarGap, sse.WithHeartbeat(sseHeartbeat))
	defer broker.Close()

	mirror := index.NewMirror(db, core.Store, logger, broker.PublishDocumentEvent)
	watcher := index.NewWatcher(mirror, logger)

	svc := core.Service(cfg, logger,
		docservice.WithCatalog(mirror),
		docservice.OnFolderChange(func(string) { watcher.Retarget() }),
	)

	// Periodic full resync catches anything the watcher missed.
	sched := cron.New(cron.WithLogger(cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	if cfg.Index.Resync != "" {
		if _, err := sched.AddFunc(cfg.Index.Resync, func() {
			if err := mirror.Sync(); err != nil {
				logger.Warn("resync: sync failed", slog.String("error", err.Error()))
			}
		}); err != nil {
			return fmt.Errorf("schedule resync: %w", err)
		}
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
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

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; it syncs the catalog on start and on retarget.
	g.Go(func() error {
		if err := watcher.Run(gCtx); err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
// Logs go to the configured output, which must not be stdout.
func RunMCP(_ context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	logger := app.logger()

	core, err := NewCore(app.config, logger)
	if err != nil {
		return err
	}
	srv := mcpserver.New(core.Service(app.config, logger), logger)
	logger.Info("mcp: serving on stdio")
	return srv.ServeStdio()
}
