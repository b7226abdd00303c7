package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the screening service
type Metrics struct {
	// Screening pipeline metrics
	ScreeningsTotal    *prometheus.CounterVec
	ScreeningDuration  prometheus.Histogram
	CombinedScore      prometheus.Histogram
	AgeOverridesTotal  prometheus.Counter
	AudioFallbacks     *prometheus.CounterVec
	SymptomFallbacks   prometheus.Counter

	// Pipeline stage metrics
	TranscodeDuration prometheus.Histogram
	RenderDuration    prometheus.Histogram
	InferenceDuration *prometheus.HistogramVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ScreeningsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pd_screenings_total",
			Help: "Total number of screenings by final verdict",
		}, []string{"final_label"}),
		ScreeningDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pd_screening_duration_seconds",
			Help:    "End-to-end screening pipeline duration",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		CombinedScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pd_combined_score",
			Help:    "Distribution of combined screening scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),
		AgeOverridesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pd_age_overrides_total",
			Help: "Total number of positive verdicts suppressed by the age override",
		}),
		AudioFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pd_audio_fallbacks_total",
			Help: "Total number of audio channels scored with the neutral fallback, by failing stage",
		}, []string{"stage"}),
		SymptomFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pd_symptom_fallbacks_total",
			Help: "Total number of symptom channels scored with the neutral fallback",
		}),

		TranscodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pd_transcode_duration_seconds",
			Help:    "Duration of external audio transcoding",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		RenderDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pd_render_duration_seconds",
			Help:    "Duration of spectrogram generation",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		InferenceDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pd_inference_duration_seconds",
			Help:    "Duration of model inference by model",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"model"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pd_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pd_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pd_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordScreening records a completed screening
func (m *Metrics) RecordScreening(finalLabel string, combinedScore, durationSeconds float64, overridden bool) {
	if m == nil {
		return
	}
	m.ScreeningsTotal.WithLabelValues(finalLabel).Inc()
	m.ScreeningDuration.Observe(durationSeconds)
	m.CombinedScore.Observe(combinedScore)
	if overridden {
		m.AgeOverridesTotal.Inc()
	}
}

// RecordAudioFallback records an audio channel falling back to the neutral score
func (m *Metrics) RecordAudioFallback(stage string) {
	if m == nil {
		return
	}
	m.AudioFallbacks.WithLabelValues(stage).Inc()
}

// RecordSymptomFallback records a symptom channel falling back to the neutral score
func (m *Metrics) RecordSymptomFallback() {
	if m == nil {
		return
	}
	m.SymptomFallbacks.Inc()
}

// RecordTranscode records the duration of an external transcode
func (m *Metrics) RecordTranscode(durationSeconds float64) {
	if m == nil {
		return
	}
	m.TranscodeDuration.Observe(durationSeconds)
}

// RecordRender records the duration of a spectrogram render
func (m *Metrics) RecordRender(durationSeconds float64) {
	if m == nil {
		return
	}
	m.RenderDuration.Observe(durationSeconds)
}

// RecordInference records the duration of a model inference call
func (m *Metrics) RecordInference(modelName string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.InferenceDuration.WithLabelValues(modelName).Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
