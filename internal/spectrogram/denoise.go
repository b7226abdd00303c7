package spectrogram

import (
	"fmt"
	"math"
)

// Denoiser applies stationary spectral gating: the noise profile is estimated
// from the segment itself as per-bin magnitude statistics, bins below the
// profile threshold are attenuated, and the signal is resynthesized by
// overlap-add. Output length always equals input length.
type Denoiser struct {
	stft *STFT

	// thresholdStd is the number of standard deviations above the per-bin
	// mean dB magnitude at which a bin counts as signal.
	thresholdStd float64

	// smoothFreq / smoothTime are half-widths of the mask smoothing kernel,
	// in bins and frames.
	smoothFreq int
	smoothTime int
}

// NewDenoiser creates a spectral-gating denoiser sharing the render STFT
// geometry.
func NewDenoiser(stft *STFT) *Denoiser {
	return &Denoiser{
		stft:         stft,
		thresholdStd: 1.5,
		smoothFreq:   4,
		smoothTime:   4,
	}
}

// Reduce returns a denoised copy of samples with identical length.
func (d *Denoiser) Reduce(samples []float64) ([]float64, error) {
	frames, err := d.stft.Frames(samples)
	if err != nil {
		return nil, err
	}

	bins := d.stft.Bins()
	numFrames := len(frames)

	// Per-bin dB magnitudes over the half spectrum.
	db := make([][]float64, numFrames)
	for f, frame := range frames {
		db[f] = make([]float64, bins)
		for b := 0; b < bins; b++ {
			mag := math.Hypot(real(frame[b]), imag(frame[b]))
			db[f][b] = 20 * math.Log10(math.Max(mag, 1e-10))
		}
	}

	// Noise profile: mean + k*std of each bin across time.
	threshold := make([]float64, bins)
	for b := 0; b < bins; b++ {
		var sum, sumSq float64
		for f := 0; f < numFrames; f++ {
			sum += db[f][b]
			sumSq += db[f][b] * db[f][b]
		}
		mean := sum / float64(numFrames)
		variance := sumSq/float64(numFrames) - mean*mean
		if variance < 0 {
			variance = 0
		}
		threshold[b] = mean + d.thresholdStd*math.Sqrt(variance)
	}

	// Binary gate, then smoothing across frequency and time so gated
	// regions fade instead of gating bin-by-bin.
	mask := make([][]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		mask[f] = make([]float64, bins)
		for b := 0; b < bins; b++ {
			if db[f][b] > threshold[b] {
				mask[f][b] = 1
			}
		}
	}
	mask = smoothMask(mask, d.smoothTime, d.smoothFreq)

	// Apply the gain to the full spectrum, keeping conjugate symmetry so
	// the inverse transform stays real.
	n := d.stft.FrameSize()
	for f, frame := range frames {
		for b := 0; b < bins; b++ {
			g := complex(mask[f][b], 0)
			frame[b] *= g
			if b > 0 && b < n-b {
				frame[n-b] *= g
			}
		}
	}

	out, err := d.stft.OverlapAdd(frames, len(samples))
	if err != nil {
		return nil, err
	}

	if len(out) != len(samples) {
		return nil, fmt.Errorf("%w: denoised length %d does not match input %d", ErrRender, len(out), len(samples))
	}

	return out, nil
}

// smoothMask averages the gate over a (2*ht+1) x (2*hf+1) neighborhood.
func smoothMask(mask [][]float64, ht, hf int) [][]float64 {
	numFrames := len(mask)
	if numFrames == 0 {
		return mask
	}
	bins := len(mask[0])

	out := make([][]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		out[f] = make([]float64, bins)
		for b := 0; b < bins; b++ {
			var sum float64
			var count int
			for df := -ht; df <= ht; df++ {
				ff := f + df
				if ff < 0 || ff >= numFrames {
					continue
				}
				for dbn := -hf; dbn <= hf; dbn++ {
					bb := b + dbn
					if bb < 0 || bb >= bins {
						continue
					}
					sum += mask[ff][bb]
					count++
				}
			}
			out[f][b] = sum / float64(count)
		}
	}

	return out
}
