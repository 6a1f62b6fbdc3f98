// Package realtime holds the transport independent session settings for a
// speech-to-speech model endpoint.
package realtime

const (
	DefaultModel              = "gpt-4o-realtime-preview"
	DefaultVoice              = "coral"
	DefaultTranscriptionModel = "whisper-1"
	DefaultTemperature        = 0.6
)

// SessionConfig is pushed to the endpoint whenever a session starts or the
// instructions change. Turn detection is always left to the user.
type SessionConfig struct {
	Model              string
	Instructions       string
	Voice              string
	TranscriptionModel string
	Temperature        float64
	Tools              []Tool
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:              DefaultModel,
		Voice:              DefaultVoice,
		TranscriptionModel: DefaultTranscriptionModel,
		Temperature:        DefaultTemperature,
	}
}

// WithInstructions returns a copy of the config with the given instructions.
func (c SessionConfig) WithInstructions(instructions string) SessionConfig {
	c.Instructions = instructions
	return c
}

// FindTool returns the tool registered under name.
func (c SessionConfig) FindTool(name string) (Tool, bool) {
	for _, tool := range c.Tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return Tool{}, false
}

// Profile is a named instruction set the user can switch to.
type Profile struct {
	ID        string `yaml:"id" json:"id"`
	ShortName string `yaml:"short_name" json:"short_name"`
	Content   string `yaml:"content" json:"content"`
}
