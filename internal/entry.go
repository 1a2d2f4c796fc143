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

	"github.com/starford/headstone/internal/api"
	"github.com/starford/headstone/internal/backend"
	"github.com/starford/headstone/internal/dashboard"
	"github.com/starford/headstone/internal/hashrouter"
	"github.com/starford/headstone/internal/kv"
	"github.com/starford/headstone/internal/mcpserver"
	"github.com/starford/headstone/internal/search"
	"github.com/starford/headstone/internal/session"
	"github.com/starford/headstone/internal/sse"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// loadSearchIndex returns an index over the built-in content, or over the
// configured catalog when one is set.
func loadSearchIndex(cfg SearchConfig, logger *slog.Logger) (*search.Index, error) {
	ix := search.New()
	if cfg.ContentPath == "" {
		return ix, nil
	}
	if _, err := ix.Load(cfg.ContentPath); err != nil {
		return nil, fmt.Errorf("load search catalog: %w", err)
	}
	logger.Info("search catalog loaded",
		slog.String("path", cfg.ContentPath),
		slog.String("checksum", ix.Checksum()))
	return ix, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("backend_url", cfg.Backend.BaseURL),
		slog.String("search_content", cfg.Search.ContentPath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	tz, err := cfg.App.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	// Client-local storage.
	db, err := kv.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer db.Close()

	store := session.New(db, session.WithLogger(logger))

	// Hash routing.
	location := hashrouter.NewLocation(app.fragment)
	defer location.Close()
	router := hashrouter.NewRouter(location)
	nav := hashrouter.NewNavigator(router, store, logger)

	ix, err := loadSearchIndex(cfg.Search, logger)
	if err != nil {
		return err
	}

	var client *backend.Client
	if cfg.Backend.Enabled() {
		client = backend.NewClient(cfg.Backend.BaseURL,
			backend.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
			backend.WithLogger(logger))
	} else {
		logger.Warn("backend URL not set, scheduling and email features are disabled")
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.SSE.RefreshThrottle)
	defer broker.Close()

	svc := dashboard.NewService(dashboard.Deps{
		Store:     store,
		Navigator: nav,
		Index:     ix,
		Client:    client,
		Publisher: broker,
		Logger:    logger,
		Location:  tz,
	})

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return router.Run(gCtx) })
	g.Go(func() error { return nav.Run(gCtx) })
	g.Go(func() error { return svc.Run(gCtx) })

	// Reload the search catalog on change.
	if cfg.Search.ContentPath != "" && cfg.Search.Watch {
		g.Go(func() error {
			return search.Watch(gCtx, ix, cfg.Search.ContentPath, logger, func() {
				broker.Publish(sse.Event{
					Type: sse.TypeCatalogReloaded,
					Data: map[string]string{"checksum": ix.Checksum()},
				})
			})
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

		// Event streams never finish on their own.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Unblocks the router, navigator, dashboard and watcher.
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP runs the MCP tool server on stdio until stdin closes. Logs go to
// stderr because stdout carries the protocol.
func ServeMCP(opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)

	ix, err := loadSearchIndex(app.config.Search, logger)
	if err != nil {
		return err
	}
	return mcpserver.New(ix).ServeStdio()
}
