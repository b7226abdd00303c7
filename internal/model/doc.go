// Package model wraps the two pretrained classifiers behind one scoring
// contract: an ONNX convolutional network scoring spectrogram images and a
// logistic estimator scoring symptom questionnaires. Both artifacts are loaded
// once at startup, are immutable afterwards, and are safe for concurrent
// prediction. A failed load does not prevent startup; prediction then reports
// ErrModelUnavailable and callers substitute the neutral score.
package model
