package audio

import "errors"

var (
	// ErrDecode indicates the input could not be decoded into a waveform.
	ErrDecode = errors.New("audio decode failed")

	// ErrTranscode indicates the external transcoder failed, timed out,
	// or is unavailable.
	ErrTranscode = errors.New("audio transcode failed")
)
