// Package spectrogram converts waveform segments into grayscale time-frequency
// images. It implements spectral-gating noise reduction, short-time Fourier
// analysis, peak-referenced decibel scaling, and log-frequency raster rendering
// with all axes and padding stripped.
package spectrogram
