package metrics

import "testing"

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	// Every recording method must be a no-op on a nil receiver so
	// components can run without a registry.
	m.RecordScreening("Positive", 0.9, 0.1, false)
	m.RecordAudioFallback("transcode")
	m.RecordSymptomFallback()
	m.RecordTranscode(0.5)
	m.RecordRender(0.1)
	m.RecordInference("audio-cnn", 0.02)
	m.RecordHTTPRequest("POST", "/api/v1/screen", "200", 0.3)
	m.RecordHTTPError("POST", "/api/v1/screen", "client_error")
}

func TestRecordScreening(t *testing.T) {
	m := NewMetrics()

	m.RecordScreening("Positive", 0.9, 0.1, false)
	m.RecordScreening("Negative (Age Override)", 0.8, 0.2, true)
	m.RecordAudioFallback("decode")
	m.RecordSymptomFallback()
	m.RecordInference("symptom-logistic", 0.001)
}
