package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// SymptomModelName identifies the questionnaire classifier in scores and logs.
const SymptomModelName = "symptom-logistic"

// Canonical feature names. The serialized estimator must declare exactly this
// feature set; prediction maps struct fields to the artifact's declared column
// order by name, so a reordered artifact cannot silently corrupt predictions.
const (
	featureTremor       = "tremor"
	featureStiffness    = "stiffness"
	featureWalkingIssue = "walking_issue"
)

// Features is the symptom questionnaire input: three binary indicators.
type Features struct {
	Tremor       int `json:"tremor"`
	Stiffness    int `json:"stiffness"`
	WalkingIssue int `json:"walking_issue"`
}

// Validate checks that every indicator is 0 or 1.
func (f Features) Validate() error {
	for _, v := range []struct {
		name  string
		value int
	}{
		{featureTremor, f.Tremor},
		{featureStiffness, f.Stiffness},
		{featureWalkingIssue, f.WalkingIssue},
	} {
		if v.value != 0 && v.value != 1 {
			return fmt.Errorf("feature %s must be 0 or 1, got %d", v.name, v.value)
		}
	}
	return nil
}

func (f Features) value(name string) (float64, bool) {
	switch name {
	case featureTremor:
		return float64(f.Tremor), true
	case featureStiffness:
		return float64(f.Stiffness), true
	case featureWalkingIssue:
		return float64(f.WalkingIssue), true
	default:
		return 0, false
	}
}

// symptomArtifact is the serialized estimator layout.
type symptomArtifact struct {
	Model        string    `json:"model"`
	FeatureOrder []string  `json:"feature_order"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// SymptomModel scores symptom questionnaires with a pretrained logistic
// estimator. The zero value is unusable; construct with LoadSymptomModel.
type SymptomModel struct {
	order     []string
	coeffs    []float64
	intercept float64
	loadErr   error
}

// LoadSymptomModel reads the serialized estimator from path. On failure a
// non-nil model is still returned whose Predict reports ErrModelUnavailable,
// so the service can start degraded.
func LoadSymptomModel(path string) (*SymptomModel, error) {
	m := &SymptomModel{}

	data, err := os.ReadFile(path)
	if err != nil {
		m.loadErr = fmt.Errorf("%w: reading %s: %v", ErrModelUnavailable, path, err)
		return m, m.loadErr
	}

	var artifact symptomArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		m.loadErr = fmt.Errorf("%w: parsing %s: %v", ErrModelUnavailable, path, err)
		return m, m.loadErr
	}

	if err := validateArtifact(&artifact); err != nil {
		m.loadErr = fmt.Errorf("%w: %s: %v", ErrModelUnavailable, path, err)
		return m, m.loadErr
	}

	m.order = artifact.FeatureOrder
	m.coeffs = artifact.Coefficients
	m.intercept = artifact.Intercept
	return m, nil
}

func validateArtifact(a *symptomArtifact) error {
	if len(a.FeatureOrder) != 3 || len(a.Coefficients) != 3 {
		return fmt.Errorf("expected 3 features and 3 coefficients, got %d and %d",
			len(a.FeatureOrder), len(a.Coefficients))
	}

	seen := map[string]bool{}
	for _, name := range a.FeatureOrder {
		switch name {
		case featureTremor, featureStiffness, featureWalkingIssue:
			if seen[name] {
				return fmt.Errorf("duplicate feature %q in feature_order", name)
			}
			seen[name] = true
		default:
			return fmt.Errorf("unknown feature %q in feature_order", name)
		}
	}

	for i, c := range a.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient %d is not finite", i)
		}
	}

	return nil
}

// Available reports whether the estimator loaded successfully.
func (m *SymptomModel) Available() bool {
	return m.loadErr == nil
}

// Predict returns the positive-class probability for the given features.
// Fields are mapped to the estimator's trained column order by name.
func (m *SymptomModel) Predict(f Features) (Score, error) {
	if m.loadErr != nil {
		return Score{}, m.loadErr
	}

	if err := f.Validate(); err != nil {
		return Score{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	z := m.intercept
	for i, name := range m.order {
		v, ok := f.value(name)
		if !ok {
			return Score{}, fmt.Errorf("%w: estimator references unknown feature %q", ErrModelUnavailable, name)
		}
		z += m.coeffs[i] * v
	}

	return Score{
		Value:  1 / (1 + math.Exp(-z)),
		Source: SymptomModelName,
	}, nil
}
