package config

import (
	"os"
	"path/filepath"
	"testing"

	orchestration "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/realtime"
)

var configKeys = []string{"OPENAI_API_KEY", "EMA_REALTIME_URL", "EMA_MODEL", "EMA_VOICE",
	"EMA_TRANSCRIPTION_MODEL", "EMA_TEMPERATURE", "EMA_GREETING", "EMA_AUDIO_BACKEND",
	"EMA_PORTAUDIO_BUFFER_SIZE", "EMA_HTTP_ADDR", "EMA_HEADLESS", "LOG_LEVEL", "EMA_LOG_FILE", "EMA_PROFILES_FILE"}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range configKeys {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Model != realtime.DefaultModel {
		t.Errorf("expected default model, got %s", cfg.Model)
	}
	if cfg.Voice != "coral" {
		t.Errorf("expected voice coral, got %s", cfg.Voice)
	}
	if cfg.TranscriptionModel != "whisper-1" {
		t.Errorf("expected whisper-1 transcription, got %s", cfg.TranscriptionModel)
	}
	if cfg.Temperature != 0.6 {
		t.Errorf("expected temperature 0.6, got %v", cfg.Temperature)
	}
	if cfg.AudioBackend != AudioBackendMiniaudio {
		t.Errorf("expected miniaudio backend, got %s", cfg.AudioBackend)
	}
	if cfg.HTTPAddr != "" || cfg.Headless {
		t.Errorf("expected no http server and interactive mode, got %q %v", cfg.HTTPAddr, cfg.Headless)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log level info, got %s", cfg.LogLevel)
	}
	if cfg.Greeting != orchestration.DefaultGreeting {
		t.Errorf("expected default greeting, got %q", cfg.Greeting)
	}
}

func TestLoad_EmptyGreetingDisablesGreeting(t *testing.T) {
	os.Setenv("EMA_GREETING", "")
	defer os.Unsetenv("EMA_GREETING")

	cfg := Load()
	if cfg.Greeting != "" {
		t.Errorf("expected no greeting, got %q", cfg.Greeting)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "sk-test")
	os.Setenv("EMA_TEMPERATURE", "0.9")
	os.Setenv("EMA_AUDIO_BACKEND", "PortAudio")
	os.Setenv("EMA_PORTAUDIO_BUFFER_SIZE", "960")
	os.Setenv("EMA_HEADLESS", "true")
	os.Setenv("EMA_HTTP_ADDR", ":8080")
	defer func() {
		for _, k := range configKeys {
			os.Unsetenv(k)
		}
	}()

	cfg := Load()

	if cfg.APIKey != "sk-test" {
		t.Errorf("expected api key, got %q", cfg.APIKey)
	}
	if cfg.Temperature != 0.9 {
		t.Errorf("expected temperature 0.9, got %v", cfg.Temperature)
	}
	if cfg.AudioBackend != AudioBackendPortaudio {
		t.Errorf("expected portaudio backend, got %s", cfg.AudioBackend)
	}
	if cfg.PortaudioBufferSize != 960 {
		t.Errorf("expected buffer size 960, got %d", cfg.PortaudioBufferSize)
	}
	if !cfg.Headless || cfg.HTTPAddr != ":8080" {
		t.Errorf("expected headless http mode, got %q %v", cfg.HTTPAddr, cfg.Headless)
	}

	session := cfg.SessionConfig()
	if session.Temperature != 0.9 || session.Voice != "coral" {
		t.Errorf("unexpected session config %+v", session)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	os.Setenv("EMA_TEMPERATURE", "warm")
	os.Setenv("EMA_HEADLESS", "maybe")
	defer func() {
		os.Unsetenv("EMA_TEMPERATURE")
		os.Unsetenv("EMA_HEADLESS")
	}()

	cfg := Load()
	if cfg.Temperature != realtime.DefaultTemperature || cfg.Headless {
		t.Errorf("expected fallbacks, got temperature %v headless %v", cfg.Temperature, cfg.Headless)
	}
}

func TestParseProfiles(t *testing.T) {
	testCases := []struct {
		name    string
		data    string
		wantErr bool
		wantLen int
	}{
		{
			name: "valid",
			data: `profiles:
  - id: tutor
    short_name: Tutor
    content: Be patient.
  - id: pirate
    content: Talk like a pirate.
`,
			wantLen: 2,
		},
		{name: "empty", data: "profiles: []\n", wantErr: true},
		{name: "missing id", data: "profiles:\n  - content: x\n", wantErr: true},
		{name: "duplicate id", data: "profiles:\n  - id: a\n  - id: a\n", wantErr: true},
		{name: "invalid yaml", data: "profiles: [", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			profiles, err := ParseProfiles([]byte(tc.data))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(profiles) != tc.wantLen {
				t.Fatalf("expected %d profiles, got %d", tc.wantLen, len(profiles))
			}
		})
	}
}

func TestParseProfilesDefaultsShortName(t *testing.T) {
	profiles, err := ParseProfiles([]byte("profiles:\n  - id: pirate\n    content: Arr.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profiles[0].ShortName != "pirate" || profiles[0].Content != "Arr." {
		t.Fatalf("unexpected profile %+v", profiles[0])
	}
}

func TestProfilesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte("profiles:\n  - id: calm\n    content: Speak calmly.\n"), 0o600); err != nil {
		t.Fatalf("failed to write profiles: %v", err)
	}

	profiles, err := Config{ProfilesFile: path}.Profiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != "calm" {
		t.Fatalf("unexpected profiles %+v", profiles)
	}

	defaults, err := Config{}.Profiles()
	if err != nil || len(defaults) == 0 {
		t.Fatalf("expected built-in profiles, got %d (%v)", len(defaults), err)
	}
}
