package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neuroscreen/pd-screening-service/internal/audio"
	"github.com/neuroscreen/pd-screening-service/internal/config"
	"github.com/neuroscreen/pd-screening-service/internal/metrics"
	"github.com/neuroscreen/pd-screening-service/internal/model"
	"github.com/neuroscreen/pd-screening-service/internal/screening"
	"github.com/neuroscreen/pd-screening-service/internal/server"
	"github.com/neuroscreen/pd-screening-service/internal/spectrogram"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "pd-screening-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("bind_address", cfg.HTTP.Address),
		slog.Float64("target_duration", cfg.Audio.TargetDuration),
		slog.Int("transcode_rate", cfg.Audio.TranscodeRate),
		slog.Int("frame_size", cfg.Spectrogram.FrameSize),
		slog.Int("hop_size", cfg.Spectrogram.HopSize),
		slog.String("audio_model_path", cfg.Models.AudioModelPath),
		slog.String("symptom_model_path", cfg.Models.SymptomModelPath),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Load the classifiers. A model that fails to load leaves the service
	// running degraded: its channel scores neutral until restart.
	audioModel := model.LoadAudioModel(model.AudioModelConfig{
		ModelPath:   cfg.Models.AudioModelPath,
		InputName:   cfg.Models.AudioInputName,
		OutputName:  cfg.Models.AudioOutputName,
		ImageSize:   cfg.Models.ImageSize,
		LibraryPath: cfg.Models.ONNXLibraryPath,
	}, logger)
	defer audioModel.Close()

	symptomModel, err := model.LoadSymptomModel(cfg.Models.SymptomModelPath)
	if err != nil {
		logger.Error("Symptom model unavailable, channel will score neutral",
			slog.String("error", err.Error()))
	}
	logger.Info("Models loaded",
		slog.Bool("audio_available", audioModel.Available()),
		slog.Bool("symptom_available", symptomModel.Available()),
	)

	// Build the audio processing chain
	transcoder := audio.NewTranscoder(cfg.Audio.FFmpegPath, cfg.Audio.TranscodeRate,
		cfg.Audio.GetTranscodeTimeout(), appMetrics, logger)

	extractor, err := audio.NewExtractor(transcoder, cfg.Audio.TargetDuration, logger)
	if err != nil {
		logger.Error("Failed to create audio extractor", slog.String("error", err.Error()))
		os.Exit(1)
	}

	generator, err := spectrogram.NewGenerator(cfg.Spectrogram.FrameSize, cfg.Spectrogram.HopSize,
		cfg.Spectrogram.ImageWidth, cfg.Spectrogram.ImageHeight)
	if err != nil {
		logger.Error("Failed to create spectrogram generator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize the screening pipeline
	pipeline, err := screening.NewPipeline(extractor, generator, audioModel, symptomModel,
		cfg.Audio.TempDir, appMetrics, logger)
	if err != nil {
		logger.Error("Failed to create screening pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Screening pipeline initialized")

	// Initialize and start the HTTP API server
	httpServer := server.NewHTTPServer(cfg, logger, pipeline, audioModel, symptomModel, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Get final statistics
	stats := pipeline.GetStats()
	logger.Info("Final screening statistics",
		slog.Uint64("screenings", stats.Screenings),
		slog.Uint64("positives", stats.Positives),
		slog.Uint64("negatives", stats.Negatives),
		slog.Uint64("age_overrides", stats.AgeOverrides),
		slog.Uint64("audio_fallbacks", stats.AudioFallbacks),
		slog.Uint64("symptom_fallbacks", stats.SymptomFallbacks),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
