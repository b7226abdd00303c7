package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/neuroscreen/pd-screening-service/internal/metrics"
)

// Transcoder converts compressed audio containers (webm, ogg, mp3, ...) into
// canonical uncompressed mono PCM WAV using an external ffmpeg process.
// Every invocation is bounded by a timeout; a stalled or missing binary
// surfaces as ErrTranscode rather than blocking the request.
type Transcoder struct {
	ffmpegPath string
	sampleRate int
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewTranscoder creates a transcoder that writes mono 16-bit PCM WAV at the
// given sample rate. m may be nil to disable metrics.
func NewTranscoder(ffmpegPath string, sampleRate int, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Transcoder {
	return &Transcoder{
		ffmpegPath: ffmpegPath,
		sampleRate: sampleRate,
		timeout:    timeout,
		logger:     logger,
		metrics:    m,
	}
}

// NeedsTranscode reports whether the data is in a container the WAV decoder
// cannot read natively. Detection is by content sniffing, not file extension,
// because browser recordings arrive with unreliable names.
func NeedsTranscode(data []byte) bool {
	mt := mimetype.Detect(data)
	return !mt.Is("audio/wav") && !mt.Is("audio/x-wav")
}

// DetectFormat returns the sniffed MIME type of the audio data.
func DetectFormat(data []byte) string {
	return mimetype.Detect(data).String()
}

// Transcode converts src into a mono PCM-16 WAV file at dst. The external
// process is killed when the configured timeout expires or ctx is cancelled.
func (t *Transcoder) Transcode(ctx context.Context, src, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", t.sampleRate),
		"-y",
		dst,
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: ffmpeg timed out after %s", ErrTranscode, t.timeout)
		}
		return fmt.Errorf("%w: ffmpeg: %v: %s", ErrTranscode, err, strings.TrimSpace(string(output)))
	}

	elapsed := time.Since(start)
	t.metrics.RecordTranscode(elapsed.Seconds())
	t.logger.Debug("Audio transcoded",
		slog.String("source", src),
		slog.Duration("elapsed", elapsed),
	)

	return nil
}
