package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/koscakluka/ema-realtime/core/realtime"
	"gopkg.in/yaml.v3"
)

var ErrNoProfiles = errors.New("profiles file defines no profiles")

type profilesFile struct {
	Profiles []realtime.Profile `yaml:"profiles"`
}

// LoadProfiles reads instruction profiles from a YAML file of the form
//
//	profiles:
//	  - id: tutor
//	    short_name: Tutor
//	    content: You are a patient English tutor.
func LoadProfiles(path string) ([]realtime.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return ParseProfiles(data)
}

func ParseProfiles(data []byte) ([]realtime.Profile, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	if len(file.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	seen := map[string]struct{}{}
	for i, profile := range file.Profiles {
		if profile.ID == "" {
			return nil, fmt.Errorf("profile %d has no id", i)
		}
		if _, ok := seen[profile.ID]; ok {
			return nil, fmt.Errorf("duplicate profile id %q", profile.ID)
		}
		seen[profile.ID] = struct{}{}
		if profile.ShortName == "" {
			file.Profiles[i].ShortName = profile.ID
		}
	}
	return file.Profiles, nil
}

// Profiles returns the profiles from ProfilesFile, or the built-in ones when
// no file is configured.
func (c Config) Profiles() ([]realtime.Profile, error) {
	if c.ProfilesFile == "" {
		return DefaultProfiles(), nil
	}
	return LoadProfiles(c.ProfilesFile)
}

func DefaultProfiles() []realtime.Profile {
	return []realtime.Profile{
		{
			ID:        "assistant",
			ShortName: "Assistant",
			Content:   "You are a helpful, friendly voice assistant. Keep your answers short and conversational.",
		},
		{
			ID:        "tutor",
			ShortName: "Tutor",
			Content:   "You are a patient language tutor. Correct mistakes gently and ask a follow-up question after each answer.",
		},
		{
			ID:        "interviewer",
			ShortName: "Interviewer",
			Content:   "You are a job interviewer. Ask one question at a time and give brief feedback on each answer.",
		},
	}
}
