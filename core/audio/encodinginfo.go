package audio

const (
	// DefaultSampleRate is the rate the realtime endpoint expects for both
	// input and output audio.
	DefaultSampleRate = 24000
	DefaultChannels   = 1
)

type Encoding string

const (
	EncodingLinear16 Encoding = "linear16"
	EncodingMulaw    Encoding = "mulaw"
)

// BytesPerSample is the size of one mono sample, or 0 for unknown encodings.
func (e Encoding) BytesPerSample() int {
	switch e {
	case EncodingLinear16:
		return 2
	case EncodingMulaw:
		return 1
	}
	return 0
}

// EncodingInfo describes mono PCM audio exchanged with devices and the
// realtime endpoint.
type EncodingInfo struct {
	SampleRate int
	Format     Encoding
}

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: EncodingLinear16}
}

func (e EncodingInfo) IsZero() bool { return e.SampleRate == 0 || e.Format == "" }

// SamplesToMilliseconds converts a sample count into playback time,
// truncating partial milliseconds. The realtime endpoint addresses audio
// positions in milliseconds.
func (e EncodingInfo) SamplesToMilliseconds(samples int) int {
	if e.SampleRate <= 0 || samples <= 0 {
		return 0
	}
	return int(int64(samples) * 1000 / int64(e.SampleRate))
}
