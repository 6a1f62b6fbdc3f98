package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const wavHeaderSize = 44

var (
	ErrEmptyAudio          = errors.New("no audio samples to encode")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)

// EncodeWAV wraps mono linear16 samples in a RIFF/WAVE container.
func EncodeWAV(samples []int16, encoding EncodingInfo) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}
	if encoding.IsZero() {
		encoding = GetDefaultEncodingInfo()
	}
	if encoding.Format != EncodingLinear16 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, encoding.Format)
	}

	bytesPerSample := encoding.Format.BytesPerSample()
	dataSize := uint64(len(samples)) * uint64(bytesPerSample)
	if dataSize+wavHeaderSize-8 > math.MaxUint32 {
		return nil, fmt.Errorf("audio too long for wav container: %d samples", len(samples))
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+int(dataSize)))
	header := struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(dataSize + wavHeaderSize - 8),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   DefaultChannels,
		SampleRate:    uint32(encoding.SampleRate),
		ByteRate:      uint32(encoding.SampleRate * DefaultChannels * bytesPerSample),
		BlockAlign:    uint16(DefaultChannels * bytesPerSample),
		BitsPerSample: uint16(bytesPerSample * 8),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataSize),
	}
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write wav header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write wav samples: %w", err)
	}

	return buf.Bytes(), nil
}
