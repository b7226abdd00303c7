// Package audio handles audio decoding, transcoding, and segment extraction.
// It implements WAV parsing, container format detection, ffmpeg-based transcoding
// of compressed recordings, and normalization to a fixed-duration waveform segment.
package audio
