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

	"github.com/starford/refgraph/internal/api"
	"github.com/starford/refgraph/internal/audit"
	"github.com/starford/refgraph/internal/auditservice"
	"github.com/starford/refgraph/internal/corpus"
	"github.com/starford/refgraph/internal/history"
	"github.com/starford/refgraph/internal/sse"
	"github.com/starford/refgraph/internal/telemetry"
	"github.com/starford/refgraph/internal/watch"
)

// components are the pieces every command shares.
type components struct {
	fs  *corpus.FS
	db  *history.DB
	svc *auditservice.Service
}

func (c *components) close() {
	if c.db != nil {
		c.db.Close()
	}
}

func newLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// setup opens the corpus and, when enabled, the run history, and builds the
// audit service around them.
func setup(cfg *Config, logger *slog.Logger, extra ...auditservice.Option) (*components, error) {
	fs, err := corpus.NewFS(cfg.Corpus.Root,
		corpus.WithExtensions(cfg.Corpus.Extensions...),
		corpus.WithCategories(cfg.Corpus.Categories...),
		corpus.WithWorkers(cfg.Corpus.Workers),
		corpus.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("init corpus: %w", err)
	}

	c := &components{fs: fs}
	opts := []auditservice.Option{auditservice.WithLogger(logger)}
	if cfg.History.Enabled {
		c.db, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
		opts = append(opts, auditservice.WithHistory(c.db, cfg.History.Keep))
	}
	opts = append(opts, extra...)

	auditor := &audit.Auditor{Loader: fs, Options: cfg.Corpus.AuditOptions()}
	c.svc = auditservice.New(auditor, cfg.Policy, opts...)
	return c, nil
}

// Run starts the HTTP service with the given options: an initial audit, the
// REST API, SSE events, Prometheus metrics and, when enabled, re-audits on
// corpus changes.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel, true)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("corpus_root", cfg.Corpus.Root),
		slog.Bool("history_enabled", cfg.History.Enabled),
		slog.String("history_path", cfg.History.Path),
		slog.Bool("watch_enabled", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	metrics := telemetry.New()
	broker := sse.NewBroker()
	defer broker.Close()

	c, err := setup(cfg, logger,
		auditservice.WithObserver(metrics),
		auditservice.WithPublisher(broker),
	)
	if err != nil {
		return err
	}
	defer c.close()

	// Run initial audit.
	if _, err := c.svc.RunAudit(ctx); err != nil {
		logger.Warn("initial audit failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health and metrics endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := c.svc.Latest(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"pending"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

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

	// Re-audit on corpus changes.
	if cfg.Watch.Enabled {
		g.Go(func() error {
			err := watch.Watch(gCtx, watch.Options{
				Root:     c.fs.Root(),
				Match:    c.fs.IsContent,
				Debounce: cfg.Watch.Debounce,
				Logger:   logger,
			}, func(changes []watch.Change) {
				for _, ch := range changes {
					broker.PublishDocumentEvent(ch.Kind, ch.Path)
				}
				if _, err := c.svc.RunAudit(gCtx); err != nil {
					logger.Error("re-audit failed", slog.String("error", err.Error()))
				}
			})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
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
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
