// Command speaklab is the main entry point for the speaklab pronunciation
// practice server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/speaklab/speaklab/internal/app"
	"github.com/speaklab/speaklab/internal/config"
	"github.com/speaklab/speaklab/internal/observe"
	"github.com/speaklab/speaklab/pkg/capture/portaudio"
	"github.com/speaklab/speaklab/pkg/capture/wsmic"
	specmock "github.com/speaklab/speaklab/pkg/speech/mock"
	"github.com/speaklab/speaklab/pkg/speech/whisper"
)

// shutdownTimeout bounds the graceful teardown after the stop signal.
const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "speaklab: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "speaklab: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("speaklab starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"microphone", cfg.Audio.Microphone,
		"recognizer", cfg.Recognition.Provider,
		"language", cfg.Recognition.Language,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "speaklab",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Capability providers ──────────────────────────────────────────────────
	providers, cleanup, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	defer cleanup()

	// ── Config watcher ────────────────────────────────────────────────────────
	// Live changes are logged; a restart is still required to re-wire
	// providers.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		slog.Info("configuration file changed on disk; restart to apply",
			"old_log_level", old.Server.LogLevel,
			"new_log_level", new.Server.LogLevel,
		)
	})
	if err != nil {
		slog.Warn("config watcher unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildProviders instantiates the configured microphone and recognizer. The
// returned cleanup releases host resources (audio subsystem, model memory)
// and must run after the application has shut down.
func buildProviders(cfg *config.Config) (*app.Providers, func(), error) {
	ps := &app.Providers{}
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Warn("provider close error", "index", i, "err", err)
			}
		}
	}

	switch cfg.Audio.Microphone {
	case config.MicrophoneWS:
		ps.Microphone = wsmic.New()
		slog.Info("provider created", "kind", "microphone", "name", "wsmic")
	default:
		mic, err := portaudio.New()
		if err != nil {
			return nil, cleanup, fmt.Errorf("create portaudio microphone: %w", err)
		}
		ps.Microphone = mic
		closers = append(closers, mic.Close)
		slog.Info("provider created", "kind", "microphone", "name", "portaudio")
	}

	switch cfg.Recognition.Provider {
	case config.RecognizerMock:
		ps.Recognizer = &specmock.Recognizer{Lang: cfg.Recognition.Language}
		slog.Info("provider created", "kind", "recognizer", "name", "mock")
	default:
		rec, err := whisper.New(cfg.Recognition.ModelPath,
			whisper.WithLanguage(cfg.Recognition.Language),
			whisper.WithInterimInterval(time.Duration(cfg.Recognition.InterimIntervalMs)*time.Millisecond),
		)
		if err != nil {
			return nil, cleanup, fmt.Errorf("create whisper recognizer: %w", err)
		}
		ps.Recognizer = rec
		closers = append(closers, rec.Close)
		slog.Info("provider created", "kind", "recognizer", "name", "whisper",
			"model", cfg.Recognition.ModelPath)
	}

	// Reference playback is host-provided; no synthesizer ships with the
	// server binary.
	return ps, cleanup, nil
}

// newLogger builds the process-wide slog logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
