package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
)

// Segment is a fixed-duration mono waveform at a known sample rate.
// Its length is always exactly round(targetDuration * SampleRate) samples,
// produced by center-cropping or center-padding the decoded waveform.
type Segment struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the segment length in seconds.
func (s *Segment) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Extractor loads raw audio and normalizes it to a fixed-duration segment.
// Inputs that are not native WAV are transcoded first; the transcoded
// artifact is written into the caller's request workspace so that removing
// the workspace cleans up every intermediate on all exit paths.
type Extractor struct {
	transcoder     *Transcoder
	targetDuration float64
	logger         *slog.Logger
}

// NewExtractor creates an extractor producing segments of targetDuration seconds.
func NewExtractor(transcoder *Transcoder, targetDuration float64, logger *slog.Logger) (*Extractor, error) {
	if targetDuration <= 0 {
		return nil, fmt.Errorf("target duration must be positive, got %f", targetDuration)
	}

	return &Extractor{
		transcoder:     transcoder,
		targetDuration: targetDuration,
		logger:         logger,
	}, nil
}

// Extract decodes the audio file at path into a fixed-duration mono segment.
// workspace must be a per-request directory; any transcoded intermediate is
// placed there. The original sample rate is preserved (no resampling).
func (e *Extractor) Extract(ctx context.Context, path, workspace string) (*Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrDecode, path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrDecode, path)
	}

	if NeedsTranscode(data) {
		format := DetectFormat(data)
		converted := filepath.Join(workspace, "converted_audio.wav")

		e.logger.Debug("Transcoding non-native container",
			slog.String("format", format),
			slog.String("source", path),
		)

		if err := e.transcoder.Transcode(ctx, path, converted); err != nil {
			return nil, err
		}

		if data, err = os.ReadFile(converted); err != nil {
			return nil, fmt.Errorf("%w: reading transcoded output: %v", ErrTranscode, err)
		}
	}

	samples, sampleRate, err := DecodeWAV(data)
	if err != nil {
		return nil, err
	}

	waveform := SamplesToFloat64(samples)
	target := int(math.Round(e.targetDuration * float64(sampleRate)))

	return &Segment{
		Samples:    fitToLength(waveform, target),
		SampleRate: sampleRate,
	}, nil
}

// fitToLength crops a centered window when the waveform is longer than
// target, or center-pads with zeros when shorter. Cropping starts at
// (len-target)/2; padding places any odd sample on the right, matching the
// behavior of the training-time preprocessing.
func fitToLength(samples []float64, target int) []float64 {
	n := len(samples)

	switch {
	case n == target:
		out := make([]float64, target)
		copy(out, samples)
		return out

	case n > target:
		start := (n - target) / 2
		out := make([]float64, target)
		copy(out, samples[start:start+target])
		return out

	default:
		left := (target - n) / 2
		out := make([]float64, target)
		copy(out[left:], samples)
		return out
	}
}
