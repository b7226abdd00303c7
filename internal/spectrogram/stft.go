package spectrogram

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
)

// ErrRender indicates spectrogram generation failed after a successful decode.
var ErrRender = errors.New("spectrogram render failed")

const dbFloor = -80.0 // top_db: dynamic range below peak kept in the render

// STFT computes centered short-time Fourier transforms with a periodic Hann
// window. The signal is reflect-padded by frameSize/2 on both ends, so a
// signal of n samples yields 1 + n/hopSize frames of frameSize/2 + 1 bins.
//
// Safe for concurrent use; the FFT plan is shared under a mutex.
type STFT struct {
	frameSize int
	hopSize   int
	coeffs    []float64

	mu   sync.Mutex
	plan *algofft.Plan[complex128]
}

// NewSTFT creates an STFT analyzer. frameSize must be a power of two.
func NewSTFT(frameSize, hopSize int) (*STFT, error) {
	if frameSize < 64 || frameSize&(frameSize-1) != 0 {
		return nil, fmt.Errorf("frame size must be a power of two >= 64, got %d", frameSize)
	}

	if hopSize < 1 || hopSize >= frameSize {
		return nil, fmt.Errorf("hop size must be in [1, %d), got %d", frameSize, hopSize)
	}

	plan, err := algofft.NewPlan64(frameSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create FFT plan: %w", err)
	}

	coeffs := window.Generate(window.TypeHann, frameSize, window.WithPeriodic())
	if len(coeffs) != frameSize {
		return nil, fmt.Errorf("window generation failed for size %d", frameSize)
	}

	return &STFT{
		frameSize: frameSize,
		hopSize:   hopSize,
		coeffs:    coeffs,
		plan:      plan,
	}, nil
}

// FrameSize returns the analysis window length in samples.
func (s *STFT) FrameSize() int { return s.frameSize }

// HopSize returns the analysis hop in samples.
func (s *STFT) HopSize() int { return s.hopSize }

// Bins returns the number of non-redundant frequency bins per frame.
func (s *STFT) Bins() int { return s.frameSize/2 + 1 }

// NumFrames returns the number of frames produced for n input samples.
func (s *STFT) NumFrames(n int) int { return 1 + n/s.hopSize }

// Magnitudes computes the STFT magnitude matrix [frame][bin].
func (s *STFT) Magnitudes(samples []float64) ([][]float64, error) {
	frames, err := s.Frames(samples)
	if err != nil {
		return nil, err
	}

	mags := make([][]float64, len(frames))
	for i, frame := range frames {
		mags[i] = spectrum.Magnitude(frame[:s.Bins()])
	}

	return mags, nil
}

// Frames computes the full complex spectrum of every centered frame.
// Each returned slice has frameSize entries; callers interested only in the
// non-redundant half should slice to Bins().
func (s *STFT) Frames(samples []float64) ([][]complex128, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrRender)
	}

	padded := reflectPad(samples, s.frameSize/2)
	numFrames := s.NumFrames(len(samples))

	s.mu.Lock()
	defer s.mu.Unlock()

	frames := make([][]complex128, numFrames)
	buf := make([]complex128, s.frameSize)

	for f := 0; f < numFrames; f++ {
		start := f * s.hopSize
		for i := 0; i < s.frameSize; i++ {
			v := 0.0
			if start+i < len(padded) {
				v = padded[start+i]
			}
			buf[i] = complex(v*s.coeffs[i], 0)
		}

		out := make([]complex128, s.frameSize)
		if err := s.plan.Forward(out, buf); err != nil {
			return nil, fmt.Errorf("%w: fft: %v", ErrRender, err)
		}
		frames[f] = out
	}

	return frames, nil
}

// OverlapAdd resynthesizes a waveform of n samples from modified complex
// frames produced by Frames. The analysis window is applied again as the
// synthesis window and the squared-window overlap sum is normalized out.
func (s *STFT) OverlapAdd(frames [][]complex128, n int) ([]float64, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames to synthesize", ErrRender)
	}

	pad := s.frameSize / 2
	total := (len(frames)-1)*s.hopSize + s.frameSize

	acc := make([]float64, total)
	norm := make([]float64, total)

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]complex128, s.frameSize)

	for f, frame := range frames {
		if len(frame) != s.frameSize {
			return nil, fmt.Errorf("%w: frame %d has %d bins, want %d", ErrRender, f, len(frame), s.frameSize)
		}

		if err := s.plan.Inverse(buf, frame); err != nil {
			return nil, fmt.Errorf("%w: inverse fft: %v", ErrRender, err)
		}

		start := f * s.hopSize
		for i := 0; i < s.frameSize; i++ {
			acc[start+i] += real(buf[i]) * s.coeffs[i]
			norm[start+i] += s.coeffs[i] * s.coeffs[i]
		}
	}

	out := make([]float64, n)
	for i := 0; i < n && pad+i < total; i++ {
		if norm[pad+i] > 1e-12 {
			out[i] = acc[pad+i] / norm[pad+i]
		}
	}

	return out, nil
}

// AmplitudeToDB converts a magnitude matrix to decibels referenced to its own
// peak, so 0 dB is the loudest bin of this segment. Values are floored at
// -80 dB relative to the peak.
func AmplitudeToDB(mags [][]float64) [][]float64 {
	peak := 0.0
	for _, row := range mags {
		for _, m := range row {
			if m > peak {
				peak = m
			}
		}
	}

	const amin = 1e-10
	ref := math.Max(peak, amin)

	out := make([][]float64, len(mags))
	for i, row := range mags {
		out[i] = make([]float64, len(row))
		for j, m := range row {
			db := 20 * math.Log10(math.Max(m, amin)/ref)
			if db < dbFloor {
				db = dbFloor
			}
			out[i][j] = db
		}
	}

	return out
}

// reflectPad pads the signal with pad mirrored samples on each side
// (x[pad], ..., x[1], x[0], x[1], ..., boundary sample excluded).
func reflectPad(samples []float64, pad int) []float64 {
	n := len(samples)
	out := make([]float64, n+2*pad)
	copy(out[pad:], samples)

	for i := 0; i < pad; i++ {
		out[i] = samples[reflectIndex(pad-i, n)]
		out[pad+n+i] = samples[reflectIndex(n-2-i, n)]
	}

	return out
}

// reflectIndex folds an out-of-range index back into [0, n) by mirroring
// around the signal boundaries without repeating the edge sample.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}
