package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Audio       AudioConfig       `yaml:"audio"`
	Spectrogram SpectrogramConfig `yaml:"spectrogram"`
	Models      ModelsConfig      `yaml:"models"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port         int    `yaml:"port"`
	Address      string `yaml:"address"`
	MaxUploadMB  int    `yaml:"max_upload_mb"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
}

// AudioConfig contains audio decoding and extraction parameters
type AudioConfig struct {
	TargetDuration   float64 `yaml:"target_duration"`   // seconds of audio fed to the spectrogram
	TranscodeRate    int     `yaml:"transcode_rate"`    // sample rate for ffmpeg output (Hz)
	TranscodeTimeout int     `yaml:"transcode_timeout"` // seconds
	FFmpegPath       string  `yaml:"ffmpeg_path"`
	TempDir          string  `yaml:"temp_dir"` // root for per-request workspaces; "" = os.TempDir
}

// SpectrogramConfig contains STFT and rendering parameters.
// The frame/hop geometry must match the geometry the audio model was
// trained with; changing it silently degrades predictions.
type SpectrogramConfig struct {
	FrameSize   int `yaml:"frame_size"`   // STFT window, samples (power of two)
	HopSize     int `yaml:"hop_size"`     // STFT hop, samples
	ImageWidth  int `yaml:"image_width"`  // rendered spectrogram width, pixels
	ImageHeight int `yaml:"image_height"` // rendered spectrogram height, pixels
}

// ModelsConfig contains model artifact locations and tensor bindings
type ModelsConfig struct {
	AudioModelPath   string `yaml:"audio_model_path"`   // ONNX image classifier
	SymptomModelPath string `yaml:"symptom_model_path"` // JSON logistic estimator
	AudioInputName   string `yaml:"audio_input_name"`   // ONNX input tensor name
	AudioOutputName  string `yaml:"audio_output_name"`  // ONNX output tensor name
	ImageSize        int    `yaml:"image_size"`         // model input resolution (square)
	ONNXLibraryPath  string `yaml:"onnx_library_path"`  // optional onnxruntime shared library
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. A .env file in the working
// directory is loaded first (if present), then environment variables override
// the model and ffmpeg paths so deployments can relocate artifacts without
// editing the YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PD_FFMPEG_PATH"); v != "" {
		c.Audio.FFmpegPath = v
	}
	if v := os.Getenv("PD_AUDIO_MODEL_PATH"); v != "" {
		c.Models.AudioModelPath = v
	}
	if v := os.Getenv("PD_SYMPTOM_MODEL_PATH"); v != "" {
		c.Models.SymptomModelPath = v
	}
	if v := os.Getenv("PD_ONNX_LIBRARY_PATH"); v != "" {
		c.Models.ONNXLibraryPath = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Spectrogram.Validate(); err != nil {
		return fmt.Errorf("spectrogram config: %w", err)
	}

	if err := c.Models.Validate(); err != nil {
		return fmt.Errorf("models config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if h.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be at least 1, got %d", h.MaxUploadMB)
	}

	if h.ReadTimeout < 1 {
		return fmt.Errorf("read_timeout must be at least 1 second, got %d", h.ReadTimeout)
	}

	if h.WriteTimeout < 1 {
		return fmt.Errorf("write_timeout must be at least 1 second, got %d", h.WriteTimeout)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.TargetDuration <= 0 {
		return fmt.Errorf("target_duration must be positive, got %f", a.TargetDuration)
	}

	if a.TranscodeRate < 8000 {
		return fmt.Errorf("transcode_rate must be at least 8000 Hz, got %d", a.TranscodeRate)
	}

	if a.TranscodeTimeout < 1 {
		return fmt.Errorf("transcode_timeout must be at least 1 second, got %d", a.TranscodeTimeout)
	}

	if a.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty")
	}

	return nil
}

// Validate validates spectrogram configuration
func (s *SpectrogramConfig) Validate() error {
	if s.FrameSize < 64 || s.FrameSize&(s.FrameSize-1) != 0 {
		return fmt.Errorf("frame_size must be a power of two >= 64, got %d", s.FrameSize)
	}

	if s.HopSize < 1 || s.HopSize >= s.FrameSize {
		return fmt.Errorf("hop_size must be in [1, frame_size), got %d", s.HopSize)
	}

	if s.ImageWidth < 16 {
		return fmt.Errorf("image_width must be at least 16 pixels, got %d", s.ImageWidth)
	}

	if s.ImageHeight < 16 {
		return fmt.Errorf("image_height must be at least 16 pixels, got %d", s.ImageHeight)
	}

	return nil
}

// Validate validates model configuration
func (m *ModelsConfig) Validate() error {
	if m.AudioModelPath == "" {
		return fmt.Errorf("audio_model_path cannot be empty")
	}

	if m.SymptomModelPath == "" {
		return fmt.Errorf("symptom_model_path cannot be empty")
	}

	if m.AudioInputName == "" {
		return fmt.Errorf("audio_input_name cannot be empty")
	}

	if m.AudioOutputName == "" {
		return fmt.Errorf("audio_output_name cannot be empty")
	}

	if m.ImageSize < 32 {
		return fmt.Errorf("image_size must be at least 32, got %d", m.ImageSize)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTranscodeTimeout returns the transcode timeout as a time.Duration
func (a *AudioConfig) GetTranscodeTimeout() time.Duration {
	return time.Duration(a.TranscodeTimeout) * time.Second
}

// GetReadTimeout returns the HTTP read timeout as a time.Duration
func (h *HTTPConfig) GetReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a time.Duration
func (h *HTTPConfig) GetWriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeout) * time.Second
}
