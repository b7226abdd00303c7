// Package fusion combines the symptom and audio classifier probabilities into
// the final screening verdict using fixed weights and an age-based override.
package fusion
