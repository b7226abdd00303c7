package model

import "errors"

// ErrModelUnavailable indicates a classifier failed to load at startup or its
// runtime rejected the inference call. Callers recover per-request with the
// neutral score rather than failing the screening.
var ErrModelUnavailable = errors.New("model unavailable")

// Score is a classifier output: a positive-class probability together with
// the model that produced it.
type Score struct {
	Value  float64 `json:"value"`  // probability in [0, 1]
	Source string  `json:"source"` // producing model name
}

// Neutral is the probability substituted when a classifier cannot score.
const Neutral = 0.5
