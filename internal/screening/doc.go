// Package screening orchestrates the inference fusion pipeline: audio segment
// extraction, spectrogram rendering, the two model inferences, and the fused
// verdict. Each request runs in its own temporary workspace that is removed on
// every exit path. Classifier failures never fail a screening; they are mapped
// visibly to the neutral score and reported via degraded flags.
package screening
