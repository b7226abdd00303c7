package fusion

// Fixed combination weights. The symptom channel is weighted more heavily:
// structured clinical input is trusted over the audio model.
const (
	WeightSymptoms = 0.7
	WeightAudio    = 0.3
)

// AgeOverrideThreshold is the age below which a positive verdict is
// suppressed.
const AgeOverrideThreshold = 40

// Verdict labels.
const (
	LabelPositive    = "Positive"
	LabelNegative    = "Negative"
	LabelAgeOverride = "Negative (Age Override)"
)

// Result is the fused screening decision.
type Result struct {
	// FinalLabel is the verdict after the age override.
	FinalLabel string `json:"final_label"`

	// RawLabel is the verdict from the combined score alone.
	RawLabel string `json:"raw_label"`

	// CombinedScore is the weighted probability in [0, 1].
	CombinedScore float64 `json:"combined_score"`
}

// Overridden reports whether the age override changed the verdict.
func (r Result) Overridden() bool {
	return r.FinalLabel != r.RawLabel
}

// Fuse combines the two classifier probabilities and applies the age
// override. A combined score of exactly 0.5 is Negative; only a strictly
// greater score is Positive. Pure function, no failure modes.
func Fuse(symptomScore, audioScore float64, age int) Result {
	combined := WeightSymptoms*symptomScore + WeightAudio*audioScore

	raw := LabelNegative
	if combined > 0.5 {
		raw = LabelPositive
	}

	final := raw
	if raw == LabelPositive && age < AgeOverrideThreshold {
		final = LabelAgeOverride
	}

	return Result{
		FinalLabel:    final,
		RawLabel:      raw,
		CombinedScore: combined,
	}
}
