package server

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neuroscreen/pd-screening-service/internal/audio"
	"github.com/neuroscreen/pd-screening-service/internal/config"
	"github.com/neuroscreen/pd-screening-service/internal/fusion"
	"github.com/neuroscreen/pd-screening-service/internal/model"
	"github.com/neuroscreen/pd-screening-service/internal/screening"
	"github.com/neuroscreen/pd-screening-service/internal/spectrogram"
)

type fakeAudioScorer struct {
	score model.Score
	err   error
}

func (f *fakeAudioScorer) Predict(img image.Image) (model.Score, error) {
	return f.score, f.err
}

type fakeSymptomScorer struct {
	score model.Score
	err   error
}

func (f *fakeSymptomScorer) Predict(ft model.Features) (model.Score, error) {
	return f.score, f.err
}

type fakeStatus struct{ available bool }

func (f fakeStatus) Available() bool { return f.available }

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Port:         8080,
			Address:      "127.0.0.1",
			MaxUploadMB:  4,
			ReadTimeout:  10,
			WriteTimeout: 10,
		},
		Audio: config.AudioConfig{
			TargetDuration:   1.0,
			TranscodeRate:    44100,
			TranscodeTimeout: 30,
			FFmpegPath:       "ffmpeg",
		},
		Spectrogram: config.SpectrogramConfig{
			FrameSize:   1024,
			HopSize:     256,
			ImageWidth:  64,
			ImageHeight: 64,
		},
		Models: config.ModelsConfig{
			AudioModelPath:   "./models/audio.onnx",
			SymptomModelPath: "./models/symptom.json",
			AudioInputName:   "input",
			AudioOutputName:  "output",
			ImageSize:        224,
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func testServer(t *testing.T, audioScore, symptomScore float64) *HTTPServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	transcoder := audio.NewTranscoder("ffmpeg", 44100, 30*time.Second, nil, logger)
	extractor, err := audio.NewExtractor(transcoder, 1.0, logger)
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	generator, err := spectrogram.NewGenerator(1024, 256, 64, 64)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}

	pipeline, err := screening.NewPipeline(extractor, generator,
		&fakeAudioScorer{score: model.Score{Value: audioScore}},
		&fakeSymptomScorer{score: model.Score{Value: symptomScore}},
		t.TempDir(), nil, logger)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	return NewHTTPServer(testConfig(), logger, pipeline,
		fakeStatus{available: true}, fakeStatus{available: true}, nil)
}

func screenRequest(t *testing.T, fields map[string]string, withAudio bool) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}

	if withAudio {
		sampleRate := 8000
		samples := make([]int16, sampleRate)
		for i := range samples {
			samples[i] = int16(3000 * (i % 80) / 80)
		}
		wavData, err := audio.EncodeWAV(samples, sampleRate)
		if err != nil {
			t.Fatalf("EncodeWAV failed: %v", err)
		}

		part, err := writer.CreateFormFile("audio", "voice.wav")
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		if _, err := part.Write(wavData); err != nil {
			t.Fatalf("Writing audio part failed: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Closing multipart writer failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/screen", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleScreen(t *testing.T) {
	srv := testServer(t, 0.9, 0.9)

	req := screenRequest(t, map[string]string{
		"tremor":        "1",
		"stiffness":     "1",
		"walking_issue": "1",
		"age":           "55",
	}, true)
	rec := httptest.NewRecorder()

	srv.handleScreen(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result screening.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
	if result.FinalLabel != fusion.LabelPositive {
		t.Errorf("Expected %q, got %q", fusion.LabelPositive, result.FinalLabel)
	}
	if result.CombinedScore < 0.89 || result.CombinedScore > 0.91 {
		t.Errorf("Expected combined score near 0.9, got %f", result.CombinedScore)
	}
}

func TestHandleScreenAgeOverride(t *testing.T) {
	srv := testServer(t, 0.9, 0.9)

	req := screenRequest(t, map[string]string{
		"tremor":        "1",
		"stiffness":     "1",
		"walking_issue": "1",
		"age":           "25",
	}, true)
	rec := httptest.NewRecorder()

	srv.handleScreen(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result screening.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
	if result.FinalLabel != fusion.LabelAgeOverride {
		t.Errorf("Expected %q, got %q", fusion.LabelAgeOverride, result.FinalLabel)
	}
}

func TestHandleScreenBadRequests(t *testing.T) {
	srv := testServer(t, 0.5, 0.5)

	tests := []struct {
		name      string
		fields    map[string]string
		withAudio bool
	}{
		{
			name:      "missing age",
			fields:    map[string]string{"tremor": "1", "stiffness": "0", "walking_issue": "0"},
			withAudio: true,
		},
		{
			name:      "non-numeric field",
			fields:    map[string]string{"tremor": "yes", "stiffness": "0", "walking_issue": "0", "age": "50"},
			withAudio: true,
		},
		{
			name:      "feature out of range",
			fields:    map[string]string{"tremor": "2", "stiffness": "0", "walking_issue": "0", "age": "50"},
			withAudio: true,
		},
		{
			name:      "missing audio part",
			fields:    map[string]string{"tremor": "1", "stiffness": "0", "walking_issue": "0", "age": "50"},
			withAudio: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := screenRequest(t, tt.fields, tt.withAudio)
			rec := httptest.NewRecorder()

			srv.handleScreen(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleScreenMethodNotAllowed(t *testing.T) {
	srv := testServer(t, 0.5, 0.5)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/screen", nil)
	rec := httptest.NewRecorder()

	srv.handleScreen(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(t, 0.5, 0.5)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var health map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", health["status"])
	}
	if _, ok := health["components"]; !ok {
		t.Error("Expected components section in health response")
	}
}

func TestHandleConfig(t *testing.T) {
	srv := testServer(t, 0.5, 0.5)

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()

	srv.handleConfig(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var cfg map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&cfg); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
	for _, section := range []string{"http", "audio", "spectrogram", "models", "logging"} {
		if _, ok := cfg[section]; !ok {
			t.Errorf("Expected %q section in config response", section)
		}
	}
}

func TestHandleStats(t *testing.T) {
	srv := testServer(t, 0.9, 0.9)

	// Run one screening so the counters move.
	req := screenRequest(t, map[string]string{
		"tremor":        "1",
		"stiffness":     "1",
		"walking_issue": "1",
		"age":           "55",
	}, true)
	srv.handleScreen(httptest.NewRecorder(), req)

	statsReq := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()

	srv.handleStats(rec, statsReq)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var stats struct {
		Screening screening.Stats `json:"screening"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
	if stats.Screening.Screenings != 1 {
		t.Errorf("Expected 1 screening recorded, got %d", stats.Screening.Screenings)
	}
}

func TestHandleRootNotFound(t *testing.T) {
	srv := testServer(t, 0.5, 0.5)

	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	rec := httptest.NewRecorder()

	srv.handleRoot(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
