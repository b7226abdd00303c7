package model

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// AudioModelName identifies the spectrogram classifier in scores and logs.
const AudioModelName = "audio-cnn"

// AudioModelConfig describes the ONNX artifact and its tensor bindings.
type AudioModelConfig struct {
	ModelPath   string
	InputName   string // input tensor name of the exported network
	OutputName  string // output tensor name of the exported network
	ImageSize   int    // square input resolution, e.g. 224
	LibraryPath string // optional onnxruntime shared library location
}

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// ensureRuntime initializes the process-wide ONNX runtime environment once.
func ensureRuntime(libraryPath string) error {
	runtimeOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		runtimeErr = ort.InitializeEnvironment()
	})
	return runtimeErr
}

// AudioModel scores rendered spectrogram images with a pretrained
// convolutional network. Inference is serialized by the runtime; the session
// and weights are immutable after load and safe for concurrent Predict.
type AudioModel struct {
	cfg     AudioModelConfig
	session *ort.DynamicAdvancedSession
	loadErr error

	mu sync.Mutex
}

// LoadAudioModel loads the ONNX artifact. On any failure a non-nil model is
// returned whose Predict reports ErrModelUnavailable; the failure is logged
// once here for operational visibility and the process keeps starting.
func LoadAudioModel(cfg AudioModelConfig, logger *slog.Logger) *AudioModel {
	m := &AudioModel{cfg: cfg}

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		m.loadErr = fmt.Errorf("%w: model artifact %s: %v", ErrModelUnavailable, cfg.ModelPath, err)
	} else if err := ensureRuntime(cfg.LibraryPath); err != nil {
		m.loadErr = fmt.Errorf("%w: onnx runtime init: %v", ErrModelUnavailable, err)
	} else {
		session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
			[]string{cfg.InputName}, []string{cfg.OutputName}, nil)
		if err != nil {
			m.loadErr = fmt.Errorf("%w: loading %s: %v", ErrModelUnavailable, cfg.ModelPath, err)
		} else {
			m.session = session
		}
	}

	if m.loadErr != nil {
		logger.Error("Audio model failed to load, audio channel will use the neutral fallback",
			slog.String("model_path", cfg.ModelPath),
			slog.String("error", m.loadErr.Error()),
		)
	} else {
		logger.Info("Audio model loaded",
			slog.String("model_path", cfg.ModelPath),
			slog.Int("image_size", cfg.ImageSize),
		)
	}

	return m
}

// Available reports whether the network loaded successfully.
func (m *AudioModel) Available() bool {
	return m.loadErr == nil
}

// Predict scores a rendered spectrogram. The image is resized to the model
// resolution, converted to a single channel, rescaled to [0, 1], and run
// through the network; the output is the positive-class probability.
func (m *AudioModel) Predict(img image.Image) (Score, error) {
	if m.loadErr != nil {
		return Score{}, m.loadErr
	}

	data := imageToTensor(img, m.cfg.ImageSize)

	size := int64(m.cfg.ImageSize)
	input, err := ort.NewTensor(ort.NewShape(1, size, size, 1), data)
	if err != nil {
		return Score{}, fmt.Errorf("%w: input tensor: %v", ErrModelUnavailable, err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return Score{}, fmt.Errorf("%w: output tensor: %v", ErrModelUnavailable, err)
	}
	defer output.Destroy()

	m.mu.Lock()
	err = m.session.Run([]ort.Value{input}, []ort.Value{output})
	m.mu.Unlock()
	if err != nil {
		return Score{}, fmt.Errorf("%w: inference: %v", ErrModelUnavailable, err)
	}

	probs := output.GetData()
	if len(probs) == 0 {
		return Score{}, fmt.Errorf("%w: empty model output", ErrModelUnavailable)
	}

	p := float64(probs[0])
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	return Score{Value: p, Source: AudioModelName}, nil
}

// Close releases the ONNX session.
func (m *AudioModel) Close() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}
