package screening

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neuroscreen/pd-screening-service/internal/audio"
	"github.com/neuroscreen/pd-screening-service/internal/fusion"
	"github.com/neuroscreen/pd-screening-service/internal/metrics"
	"github.com/neuroscreen/pd-screening-service/internal/model"
	"github.com/neuroscreen/pd-screening-service/internal/spectrogram"
)

// ErrInvalidRequest marks a request rejected before the pipeline ran.
var ErrInvalidRequest = errors.New("invalid screening request")

// AudioScorer scores a spectrogram image. *model.AudioModel implements it.
type AudioScorer interface {
	Predict(img image.Image) (model.Score, error)
}

// SymptomScorer scores a symptom questionnaire. *model.SymptomModel implements it.
type SymptomScorer interface {
	Predict(f model.Features) (model.Score, error)
}

// Request carries one screening submission. Audio arrives either as a stream
// (multipart upload) or as a path to an existing file; Audio wins when both
// are set.
type Request struct {
	Features  model.Features
	Age       int
	Audio     io.Reader
	AudioPath string
}

// Result is the outcome of one screening.
type Result struct {
	fusion.Result

	SymptomScore float64 `json:"symptom_score"`
	AudioScore   float64 `json:"audio_score"`

	// Degraded flags report that the corresponding channel fell back to the
	// neutral score because a pipeline stage failed.
	SymptomDegraded bool `json:"symptom_degraded"`
	AudioDegraded   bool `json:"audio_degraded"`
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	Screenings       uint64 `json:"screenings"`
	Positives        uint64 `json:"positives"`
	Negatives        uint64 `json:"negatives"`
	AgeOverrides     uint64 `json:"age_overrides"`
	AudioFallbacks   uint64 `json:"audio_fallbacks"`
	SymptomFallbacks uint64 `json:"symptom_fallbacks"`
}

// Pipeline runs screenings end to end. It is safe for concurrent use.
type Pipeline struct {
	extractor *audio.Extractor
	generator *spectrogram.Generator
	audioML   AudioScorer
	symptomML SymptomScorer
	tempDir   string
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu    sync.Mutex
	stats Stats
}

// NewPipeline wires the pipeline stages together. tempDir is the parent for
// per-request workspaces; empty means the system temp directory.
func NewPipeline(extractor *audio.Extractor, generator *spectrogram.Generator, audioML AudioScorer, symptomML SymptomScorer, tempDir string, m *metrics.Metrics, logger *slog.Logger) (*Pipeline, error) {
	if extractor == nil || generator == nil || audioML == nil || symptomML == nil {
		return nil, fmt.Errorf("pipeline: all stages are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		generator: generator,
		audioML:   audioML,
		symptomML: symptomML,
		tempDir:   tempDir,
		logger:    logger,
		metrics:   m,
	}, nil
}

// Screen executes one screening: symptom inference, the audio stage chain,
// and fusion with the age override. A failed classifier channel degrades to
// the neutral score instead of failing the request; only invalid input or a
// workspace error returns an error.
func (p *Pipeline) Screen(ctx context.Context, req Request) (*Result, error) {
	if err := req.Features.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Age < 0 {
		return nil, fmt.Errorf("%w: age must be non-negative, got %d", ErrInvalidRequest, req.Age)
	}
	if req.Audio == nil && req.AudioPath == "" {
		return nil, fmt.Errorf("%w: audio input is required", ErrInvalidRequest)
	}

	start := time.Now()
	requestID := uuid.NewString()
	log := p.logger.With("request_id", requestID)

	workspace, err := os.MkdirTemp(p.tempDir, "screening-"+requestID+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			log.Warn("failed to remove workspace", "path", workspace, "error", err)
		}
	}()

	audioPath := req.AudioPath
	if req.Audio != nil {
		audioPath = filepath.Join(workspace, "upload")
		if err := writeUpload(audioPath, req.Audio); err != nil {
			return nil, fmt.Errorf("failed to store upload: %w", err)
		}
	}

	res := &Result{SymptomScore: model.Neutral, AudioScore: model.Neutral}

	if score, err := p.scoreSymptoms(req.Features); err != nil {
		res.SymptomDegraded = true
		p.metrics.RecordSymptomFallback()
		log.Warn("symptom channel degraded to neutral score", "error", err)
	} else {
		res.SymptomScore = score.Value
	}

	if score, stage, err := p.scoreAudio(ctx, audioPath, workspace); err != nil {
		res.AudioDegraded = true
		p.metrics.RecordAudioFallback(stage)
		log.Warn("audio channel degraded to neutral score", "stage", stage, "error", err)
	} else {
		res.AudioScore = score.Value
	}

	res.Result = fusion.Fuse(res.SymptomScore, res.AudioScore, req.Age)

	elapsed := time.Since(start)
	p.metrics.RecordScreening(res.FinalLabel, res.CombinedScore, elapsed.Seconds(), res.Overridden())
	p.recordStats(res)

	log.Info("screening complete",
		"final_label", res.FinalLabel,
		"combined_score", res.CombinedScore,
		"symptom_degraded", res.SymptomDegraded,
		"audio_degraded", res.AudioDegraded,
		"duration_ms", elapsed.Milliseconds())
	return res, nil
}

// GetStats returns a snapshot of the pipeline counters.
func (p *Pipeline) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Pipeline) scoreSymptoms(f model.Features) (model.Score, error) {
	start := time.Now()
	score, err := p.symptomML.Predict(f)
	if err != nil {
		return model.Score{}, err
	}
	p.metrics.RecordInference(score.Source, time.Since(start).Seconds())
	return score, nil
}

// scoreAudio runs the extract, render, infer chain. On failure it names the
// stage that failed so fallbacks can be attributed.
func (p *Pipeline) scoreAudio(ctx context.Context, path, workspace string) (model.Score, string, error) {
	segment, err := p.extractor.Extract(ctx, path, workspace)
	if err != nil {
		return model.Score{}, audioStage(err), err
	}

	renderStart := time.Now()
	img, err := p.generator.Generate(segment.Samples, segment.SampleRate)
	if err != nil {
		return model.Score{}, "render", err
	}
	p.metrics.RecordRender(time.Since(renderStart).Seconds())

	inferStart := time.Now()
	score, err := p.audioML.Predict(img)
	if err != nil {
		return model.Score{}, "inference", err
	}
	p.metrics.RecordInference(score.Source, time.Since(inferStart).Seconds())
	return score, "", nil
}

func (p *Pipeline) recordStats(res *Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Screenings++
	switch {
	case res.Overridden():
		p.stats.AgeOverrides++
	case res.FinalLabel == fusion.LabelPositive:
		p.stats.Positives++
	default:
		p.stats.Negatives++
	}
	if res.AudioDegraded {
		p.stats.AudioFallbacks++
	}
	if res.SymptomDegraded {
		p.stats.SymptomFallbacks++
	}
}

func audioStage(err error) string {
	switch {
	case errors.Is(err, audio.ErrTranscode):
		return "transcode"
	case errors.Is(err, audio.ErrDecode):
		return "decode"
	default:
		return "extract"
	}
}

func writeUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
