package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neuroscreen/pd-screening-service/internal/config"
	"github.com/neuroscreen/pd-screening-service/internal/metrics"
	"github.com/neuroscreen/pd-screening-service/internal/model"
	"github.com/neuroscreen/pd-screening-service/internal/screening"
)

// ModelStatus reports whether a classifier loaded and can score.
type ModelStatus interface {
	Available() bool
}

// HTTPServer exposes the screening API plus monitoring and management
// endpoints.
type HTTPServer struct {
	server    *http.Server
	logger    *slog.Logger
	config    *config.Config
	pipeline  *screening.Pipeline
	audioML   ModelStatus
	symptomML ModelStatus
	metrics   *metrics.Metrics
	maxUpload int64

	startTime time.Time
}

// NewHTTPServer creates the API server and wires its routes.
func NewHTTPServer(cfg *config.Config, logger *slog.Logger,
	pipeline *screening.Pipeline, audioML, symptomML ModelStatus, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		pipeline:  pipeline,
		audioML:   audioML,
		symptomML: symptomML,
		metrics:   m,
		maxUpload: int64(cfg.HTTP.MaxUploadMB) << 20,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.GetReadTimeout(),
		WriteTimeout: cfg.HTTP.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Screening endpoint
	mux.HandleFunc("/api/v1/screen", h.withMetrics("/api/v1/screen", h.handleScreen))

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleScreen implements the POST /api/v1/screen endpoint. It accepts a
// multipart form with an "audio" file part and tremor, stiffness,
// walking_issue and age fields.
func (h *HTTPServer) handleScreen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	features, err := parseFeatures(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	age, err := parseIntField(r, "age", 0, 150)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "audio file part is required")
		return
	}
	defer file.Close()

	h.logger.Debug("Screening request received",
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
		slog.Int("age", age),
	)

	result, err := h.pipeline.Screen(r.Context(), screening.Request{
		Features: features,
		Age:      age,
		Audio:    file,
	})
	if err != nil {
		if errors.Is(err, screening.ErrInvalidRequest) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Screening failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "screening failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	stats := h.pipeline.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "pd-screening-service",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"audio_model": map[string]interface{}{
				"name":      model.AudioModelName,
				"available": h.audioML.Available(),
			},
			"symptom_model": map[string]interface{}{
				"name":      model.SymptomModelName,
				"available": h.symptomML.Available(),
			},
			"pipeline": map[string]interface{}{
				"status":     "running",
				"screenings": stats.Screenings,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (paths to local artifacts are fine,
	// there are no credentials in this service)
	sanitizedConfig := map[string]interface{}{
		"http": map[string]interface{}{
			"port":          h.config.HTTP.Port,
			"address":       h.config.HTTP.Address,
			"max_upload_mb": h.config.HTTP.MaxUploadMB,
		},
		"audio": map[string]interface{}{
			"target_duration":   h.config.Audio.TargetDuration,
			"transcode_rate":    h.config.Audio.TranscodeRate,
			"transcode_timeout": h.config.Audio.TranscodeTimeout,
		},
		"spectrogram": map[string]interface{}{
			"frame_size":   h.config.Spectrogram.FrameSize,
			"hop_size":     h.config.Spectrogram.HopSize,
			"image_width":  h.config.Spectrogram.ImageWidth,
			"image_height": h.config.Spectrogram.ImageHeight,
		},
		"models": map[string]interface{}{
			"audio_model_path":   h.config.Models.AudioModelPath,
			"symptom_model_path": h.config.Models.SymptomModelPath,
			"image_size":         h.config.Models.ImageSize,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"screening": h.pipeline.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Parkinson's Screening Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"POST /api/v1/screen": "Run a screening (multipart: audio file, tremor, stiffness, walking_issue, age)",
			"GET /":               "API documentation",
			"GET /health":         "Service health check",
			"GET /config":         "Get service configuration",
			"GET /stats":          "Get service statistics",
			"GET /metrics":        "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func parseFeatures(r *http.Request) (model.Features, error) {
	tremor, err := parseIntField(r, "tremor", 0, 1)
	if err != nil {
		return model.Features{}, err
	}
	stiffness, err := parseIntField(r, "stiffness", 0, 1)
	if err != nil {
		return model.Features{}, err
	}
	walking, err := parseIntField(r, "walking_issue", 0, 1)
	if err != nil {
		return model.Features{}, err
	}
	return model.Features{Tremor: tremor, Stiffness: stiffness, WalkingIssue: walking}, nil
}

func parseIntField(r *http.Request, name string, min, max int) (int, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return 0, fmt.Errorf("form field %q is required", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("form field %q must be an integer, got %q", name, raw)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("form field %q must be between %d and %d, got %d", name, min, max, v)
	}
	return v, nil
}
