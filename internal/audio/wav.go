package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WAVHeader represents the canonical 44-byte header of a PCM WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// EncodeWAV encodes mono PCM-16 samples into WAV format
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	numChannels := uint16(1)
	bitsPerSample := uint16(16)
	dataSize := uint32(len(samples) * 2)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))

	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeWAV decodes PCM WAV data into mono 16-bit samples and the sample
// rate. Chunks between "fmt " and "data" are skipped: ffmpeg's WAV muxer
// emits a LIST/INFO metadata chunk there, so the transcoder's own output is
// not canonical 44-byte WAV. Only PCM, 16-bit, mono audio is accepted;
// anything else is an ErrDecode.
func DecodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < 12 {
		return nil, 0, fmt.Errorf("%w: need at least 12 bytes, got %d", ErrDecode, len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return nil, 0, fmt.Errorf("%w: missing RIFF header", ErrDecode)
	}

	if string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: missing WAVE format", ErrDecode)
	}

	var (
		haveFmt       bool
		audioFormat   uint16
		numChannels   uint16
		sampleRate    uint32
		bitsPerSample uint16
	)

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if size < 0 || body+size > len(data) {
			if id == "data" {
				return nil, 0, fmt.Errorf("%w: data chunk truncated (declared %d bytes, have %d)",
					ErrDecode, size, len(data)-body)
			}
			return nil, 0, fmt.Errorf("%w: chunk %q truncated", ErrDecode, id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("%w: fmt chunk too short (%d bytes)", ErrDecode, size)
			}
			audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			numChannels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, 0, fmt.Errorf("%w: data chunk before fmt chunk", ErrDecode)
			}

			if audioFormat != 1 {
				return nil, 0, fmt.Errorf("%w: unsupported audio format %d (only PCM is supported)", ErrDecode, audioFormat)
			}

			if bitsPerSample != 16 {
				return nil, 0, fmt.Errorf("%w: unsupported bit depth %d (only 16-bit is supported)", ErrDecode, bitsPerSample)
			}

			if numChannels != 1 {
				return nil, 0, fmt.Errorf("%w: unsupported channel count %d (only mono is supported)", ErrDecode, numChannels)
			}

			numSamples := size / 2
			if numSamples <= 0 {
				return nil, 0, fmt.Errorf("%w: no audio data found", ErrDecode)
			}

			samples := make([]int16, numSamples)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(data[body+2*i:]))
			}

			return samples, int(sampleRate), nil
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		offset = body + size
		if size%2 == 1 {
			offset++
		}
	}

	if !haveFmt {
		return nil, 0, fmt.Errorf("%w: missing fmt chunk", ErrDecode)
	}
	return nil, 0, fmt.Errorf("%w: missing data chunk", ErrDecode)
}

// SamplesToFloat64 converts PCM-16 samples to float64 in [-1, 1).
// This matches the scaling the audio model's training pipeline applied
// when loading waveforms.
func SamplesToFloat64(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768.0
	}
	return out
}
