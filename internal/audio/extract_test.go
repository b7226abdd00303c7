package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testExtractor(t *testing.T, targetDuration float64) *Extractor {
	t.Helper()
	transcoder := NewTranscoder("ffmpeg", 44100, 30*time.Second, nil, discardLogger())
	extractor, err := NewExtractor(transcoder, targetDuration, discardLogger())
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	return extractor
}

func writeWAVFile(t *testing.T, dir string, samples []int16, sampleRate int) string {
	t.Helper()
	data, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	path := filepath.Join(dir, "input.wav")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write WAV file: %v", err)
	}
	return path
}

func TestExtractExactDuration(t *testing.T) {
	sampleRate := 8000
	extractor := testExtractor(t, 1.0)
	dir := t.TempDir()

	path := writeWAVFile(t, dir, sineWave(sampleRate, 1.0, 440.0), sampleRate)

	segment, err := extractor.Extract(context.Background(), path, dir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(segment.Samples) != sampleRate {
		t.Errorf("Expected %d samples, got %d", sampleRate, len(segment.Samples))
	}
	if segment.SampleRate != sampleRate {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, segment.SampleRate)
	}
	if math.Abs(segment.Duration()-1.0) > 1e-9 {
		t.Errorf("Expected duration 1.0s, got %f", segment.Duration())
	}
}

func TestExtractCropsCenter(t *testing.T) {
	sampleRate := 8000
	extractor := testExtractor(t, 1.0)
	dir := t.TempDir()

	// 3 seconds of audio where only the middle second is non-zero; a
	// center crop must capture it.
	samples := make([]int16, 3*sampleRate)
	for i := sampleRate; i < 2*sampleRate; i++ {
		samples[i] = 1000
	}
	path := writeWAVFile(t, dir, samples, sampleRate)

	segment, err := extractor.Extract(context.Background(), path, dir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(segment.Samples) != sampleRate {
		t.Fatalf("Expected %d samples, got %d", sampleRate, len(segment.Samples))
	}
	for i, s := range segment.Samples {
		if s == 0 {
			t.Fatalf("Sample %d is zero; crop window missed the center", i)
		}
	}
}

func TestExtractPadsCenter(t *testing.T) {
	sampleRate := 8000
	extractor := testExtractor(t, 2.0)
	dir := t.TempDir()

	// Half a second of constant signal inside a 2 second target: expect
	// zeros on both sides and the signal centered.
	samples := make([]int16, sampleRate/2)
	for i := range samples {
		samples[i] = 1000
	}
	path := writeWAVFile(t, dir, samples, sampleRate)

	segment, err := extractor.Extract(context.Background(), path, dir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	target := 2 * sampleRate
	if len(segment.Samples) != target {
		t.Fatalf("Expected %d samples, got %d", target, len(segment.Samples))
	}

	leftPad := (target - len(samples)) / 2
	if segment.Samples[leftPad-1] != 0 {
		t.Error("Expected zero padding before the signal")
	}
	if segment.Samples[leftPad] == 0 {
		t.Error("Expected signal to start right after the left padding")
	}
	if segment.Samples[leftPad+len(samples)-1] == 0 {
		t.Error("Expected signal to extend through its original length")
	}
	if segment.Samples[leftPad+len(samples)] != 0 {
		t.Error("Expected zero padding after the signal")
	}
}

func TestExtractOddPaddingGoesRight(t *testing.T) {
	sampleRate := 8000
	extractor := testExtractor(t, 1.0)
	dir := t.TempDir()

	// Odd total padding: the extra zero lands on the right side.
	samples := make([]int16, sampleRate-1)
	for i := range samples {
		samples[i] = 1000
	}
	path := writeWAVFile(t, dir, samples, sampleRate)

	segment, err := extractor.Extract(context.Background(), path, dir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(segment.Samples) != sampleRate {
		t.Fatalf("Expected %d samples, got %d", sampleRate, len(segment.Samples))
	}
	if segment.Samples[0] == 0 {
		t.Error("Expected no left padding for a single missing sample")
	}
	if segment.Samples[sampleRate-1] != 0 {
		t.Error("Expected the single padding sample on the right")
	}
}

func TestExtractNonIntegralDuration(t *testing.T) {
	// 0.7 * 44100 is 30869.999... in float64; the target length must round
	// to the exact product, not truncate below it.
	sampleRate := 44100
	extractor := testExtractor(t, 0.7)
	dir := t.TempDir()

	path := writeWAVFile(t, dir, sineWave(sampleRate, 1.0, 440.0), sampleRate)

	segment, err := extractor.Extract(context.Background(), path, dir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(segment.Samples) != 30870 {
		t.Errorf("Expected 30870 samples, got %d", len(segment.Samples))
	}
}

func TestExtractMissingFile(t *testing.T) {
	extractor := testExtractor(t, 1.0)

	_, err := extractor.Extract(context.Background(), "/nonexistent/audio.wav", t.TempDir())
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestExtractEmptyFile(t *testing.T) {
	extractor := testExtractor(t, 1.0)
	dir := t.TempDir()

	path := filepath.Join(dir, "empty.wav")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to write empty file: %v", err)
	}

	_, err := extractor.Extract(context.Background(), path, dir)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode for empty file, got %v", err)
	}
}

func TestNewExtractorInvalidDuration(t *testing.T) {
	transcoder := NewTranscoder("ffmpeg", 44100, 30*time.Second, nil, discardLogger())
	if _, err := NewExtractor(transcoder, 0, discardLogger()); err == nil {
		t.Error("Expected error for zero target duration, got nil")
	}
}
