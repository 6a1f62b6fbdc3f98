package config

import (
	"os"
	"strconv"
	"strings"

	orchestration "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/core/realtime/openai"
)

const (
	AudioBackendMiniaudio = "miniaudio"
	AudioBackendPortaudio = "portaudio"
)

type Config struct {
	APIKey             string
	RealtimeURL        string
	Model              string
	Voice              string
	TranscriptionModel string
	Temperature        float64
	Greeting           string

	AudioBackend string
	// PortaudioBufferSize is in frames; 0 picks the backend default.
	PortaudioBufferSize int

	HTTPAddr     string
	Headless     bool
	LogLevel     string
	// LogFile receives the logs while the terminal UI owns the screen.
	LogFile      string
	ProfilesFile string
}

func Load() Config {
	return Config{
		APIKey:              envStr("OPENAI_API_KEY", ""),
		RealtimeURL:         envStr("EMA_REALTIME_URL", openai.DefaultURL),
		Model:               envStr("EMA_MODEL", realtime.DefaultModel),
		Voice:               envStr("EMA_VOICE", realtime.DefaultVoice),
		TranscriptionModel:  envStr("EMA_TRANSCRIPTION_MODEL", realtime.DefaultTranscriptionModel),
		Temperature:         envFloat("EMA_TEMPERATURE", realtime.DefaultTemperature),
		Greeting:            envStrOrEmpty("EMA_GREETING", orchestration.DefaultGreeting),
		AudioBackend:        strings.ToLower(envStr("EMA_AUDIO_BACKEND", AudioBackendMiniaudio)),
		PortaudioBufferSize: envInt("EMA_PORTAUDIO_BUFFER_SIZE", 0),
		HTTPAddr:            envStr("EMA_HTTP_ADDR", ""),
		Headless:            envBool("EMA_HEADLESS", false),
		LogLevel:            envStr("LOG_LEVEL", "info"),
		LogFile:             envStr("EMA_LOG_FILE", "ema-realtime.log"),
		ProfilesFile:        envStr("EMA_PROFILES_FILE", ""),
	}
}

// SessionConfig returns the realtime session settings described by c.
func (c Config) SessionConfig() realtime.SessionConfig {
	return realtime.SessionConfig{
		Model:              c.Model,
		Voice:              c.Voice,
		TranscriptionModel: c.TranscriptionModel,
		Temperature:        c.Temperature,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envStrOrEmpty is like envStr but keeps a value that is set and empty.
func envStrOrEmpty(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
