// Package app wires all speaklab subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP API until the context is cancelled, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithArticleStore, WithMetrics). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/speaklab/speaklab/internal/config"
	"github.com/speaklab/speaklab/internal/content"
	"github.com/speaklab/speaklab/internal/health"
	"github.com/speaklab/speaklab/internal/observe"
	"github.com/speaklab/speaklab/pkg/capture"
	"github.com/speaklab/speaklab/pkg/speech"
	"github.com/speaklab/speaklab/pkg/speech/synth"
)

// shutdownGrace is how long Run waits for in-flight HTTP requests to finish
// after the context is cancelled.
const shutdownGrace = 10 * time.Second

// Providers holds one interface value per capability slot. Nil means the
// capability is not configured. Populated by main.go from the config.
type Providers struct {
	Microphone  capture.Microphone
	Recognizer  speech.Recognizer
	Synthesizer synth.Synthesizer
}

// micHandler is implemented by microphones that need an HTTP surface to
// receive audio (the WebSocket microphone does).
type micHandler interface {
	Handler() http.Handler
}

// App owns all subsystem lifetimes and serves the speaklab practice API.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	articles content.Store
	metrics  *observe.Metrics
	manager  *PracticeManager
	health   *health.Handler
	srv      *http.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithArticleStore injects an article store instead of creating one from config.
func WithArticleStore(s content.Store) Option {
	return func(a *App) { a.articles = s }
}

// WithMetrics injects a metrics instance instead of using the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go. Use Option functions to inject test doubles.
//
// New performs all initialisation synchronously: content store connection and
// seeding, practice manager construction, and HTTP route assembly.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initContent(ctx); err != nil {
		return nil, fmt.Errorf("app: init content: %w", err)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	a.manager = NewPracticeManager(PracticeManagerConfig{
		Microphone:      providers.Microphone,
		Recognizer:      providers.Recognizer,
		Synthesizer:     providers.Synthesizer,
		Articles:        a.articles,
		Telemetry:       a.metrics,
		WaveformSamples: cfg.Audio.WaveformSamples,
		SampleInterval:  time.Duration(cfg.Audio.SampleIntervalMs) * time.Millisecond,
	})

	a.health = health.New(a.healthCheckers()...)

	a.srv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// initContent sets up the article store: PostgreSQL when a DSN is configured,
// otherwise an in-memory store seeded with the bundled articles.
func (a *App) initContent(ctx context.Context) error {
	if a.articles != nil {
		return nil // injected
	}

	dsn := a.cfg.Content.PostgresDSN
	if dsn == "" {
		a.articles = content.NewSeededMemStore()
		slog.Info("using in-memory article store with bundled articles")
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}

	store := content.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("migrate content schema: %w", err)
	}
	if err := store.SeedIfEmpty(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("seed articles: %w", err)
	}

	a.articles = store
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	slog.Info("connected to postgres article store")
	return nil
}

// healthCheckers builds the readiness checks for this deployment.
func (a *App) healthCheckers() []health.Checker {
	checkers := []health.Checker{
		{
			Name: "articles",
			Check: func(ctx context.Context) error {
				_, err := a.articles.List(ctx)
				return err
			},
		},
	}
	if a.providers.Microphone != nil {
		checkers = append(checkers, health.Checker{
			Name: "microphone",
			Check: func(context.Context) error {
				if !a.providers.Microphone.Supported() {
					return errors.New("capability unavailable")
				}
				return nil
			},
		})
	}
	if a.providers.Recognizer != nil {
		checkers = append(checkers, health.Checker{
			Name: "recognizer",
			Check: func(context.Context) error {
				if !a.providers.Recognizer.Supported() {
					return errors.New("capability unavailable")
				}
				return nil
			},
		})
	}
	return checkers
}

// Manager returns the practice manager. Exposed for the entry point and tests.
func (a *App) Manager() *PracticeManager {
	return a.manager
}

// Handler returns the assembled HTTP handler. Exposed for tests that serve
// the API without binding a socket.
func (a *App) Handler() http.Handler {
	return a.srv.Handler
}

// Run serves the HTTP API and blocks until ctx is cancelled or the server
// fails. On cancellation the server drains in-flight requests for up to
// [shutdownGrace] before returning.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.srv.Shutdown(drainCtx); err != nil {
			slog.Warn("http server drain error", "err", err)
		}
		return ctx.Err()
	})

	return g.Wait()
}

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		// Release any live practice attempt first so engines stop cleanly.
		if a.manager != nil {
			a.manager.Clear()
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
