package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	orchestration "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/audio/miniaudio"
	"github.com/koscakluka/ema-realtime/core/audio/portaudio"
	"github.com/koscakluka/ema-realtime/core/realtime/openai"
	"github.com/koscakluka/ema-realtime/internal/api"
	"github.com/koscakluka/ema-realtime/internal/config"
	"github.com/koscakluka/ema-realtime/internal/tui"
)

const shutdownTimeout = 5 * time.Second

// audioDevice is a capture source and playback sink sharing one device
// context.
type audioDevice interface {
	orchestration.AudioInput
	orchestration.AudioOutput
	Close() error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ema-realtime:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	if cfg.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if cfg.Headless && cfg.HTTPAddr == "" {
		return errors.New("EMA_HTTP_ADDR is required in headless mode")
	}

	logOutput := io.Writer(os.Stdout)
	if !cfg.Headless {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		logOutput = logFile
	}
	logger := setupLogging(cfg.LogLevel, logOutput)

	logger.Info("ema-realtime starting",
		"model", cfg.Model,
		"voice", cfg.Voice,
		"audio_backend", cfg.AudioBackend,
		"http_addr", cfg.HTTPAddr,
		"headless", cfg.Headless,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Step 1: Instruction profiles.
	profiles, err := cfg.Profiles()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}
	logger.Info("profiles loaded", "count", len(profiles))

	// Step 2: Audio device.
	device, err := openAudioDevice(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			logger.Warn("failed to release audio device", "error", err)
		}
	}()

	// Step 3: Realtime transport and the session orchestrator.
	transport := openai.NewClient(
		openai.WithURL(cfg.RealtimeURL),
		openai.WithModel(cfg.Model),
		openai.WithAPIKey(cfg.APIKey),
		openai.WithLogger(logger),
	)

	orchestrator := orchestration.NewOrchestrator(
		orchestration.WithAudioInput(device),
		orchestration.WithAudioOutput(device),
		orchestration.WithTransport(transport),
		orchestration.WithSessionConfig(cfg.SessionConfig()),
		orchestration.WithGreeting(cfg.Greeting),
		orchestration.WithProfiles(profiles...),
		orchestration.WithOrchestrationTools(),
		orchestration.WithLogger(logger),
		orchestration.WithBaseContext(ctx),
	)
	defer orchestrator.Close()

	// Step 4: HTTP API.
	var srv *api.Server
	if cfg.HTTPAddr != "" {
		srv = api.NewServer(orchestrator, cfg.HTTPAddr, api.WithLogger(logger))
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("HTTP server error", "error", err)
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to shut down HTTP server", "error", err)
			}
		}()
	}

	// Step 5: Terminal UI, or wait for a shutdown signal.
	if cfg.Headless {
		logger.Info("ema-realtime ready", "http_addr", cfg.HTTPAddr)
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	}

	err = tui.Run(ctx, orchestrator, tui.ModelInfo{
		Model:              cfg.Model,
		TranscriptionModel: cfg.TranscriptionModel,
		Voice:              cfg.Voice,
	})
	logger.Info("shutting down")
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

func openAudioDevice(cfg config.Config, logger *slog.Logger) (audioDevice, error) {
	switch cfg.AudioBackend {
	case config.AudioBackendMiniaudio:
		client, err := miniaudio.NewClient(miniaudio.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize miniaudio: %w", err)
		}
		return client, nil

	case config.AudioBackendPortaudio:
		client, err := portaudio.NewClient(cfg.PortaudioBufferSize)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
		}
		return client, nil
	}

	return nil, fmt.Errorf("unknown audio backend %q", cfg.AudioBackend)
}

func setupLogging(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
