package orchestration

import (
	"context"
	"log/slog"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/events"
	"github.com/koscakluka/ema-realtime/core/realtime"
)

type OrchestratorOption func(*Orchestrator)

// AudioInput is the capture source. Frames are mono linear16 at the default
// sample rate.
type AudioInput interface {
	Begin(ctx context.Context) error
	Record(ctx context.Context, onFrame func(frame []int16)) error
	Pause() error
	End() error
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInput.Set(client) }
}

// AudioOutput is the playback sink. Frames are queued per item and
// Interrupt reports how far the playing item got.
type AudioOutput interface {
	Connect(ctx context.Context) error
	AddFrame(samples []int16, itemID string) error
	Interrupt() *audio.TrackOffset
}

// AudioOutputDisconnecter is implemented by outputs that release their device
// when a session ends.
type AudioOutputDisconnecter interface {
	Disconnect() error
}

func WithAudioOutput(client AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioOutput.Set(client) }
}

// Transport is the realtime endpoint client. Events returns the stream for
// the current connection and is closed when that connection ends.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Events() <-chan events.Event

	SendAudio(samples []int16) error
	SendUserMessage(text string) error
	CreateResponse() error
	CancelResponse(itemID string, sampleOffset int) error
	UpdateSession(config realtime.SessionConfig) error
	SendFunctionOutput(callID, output string) error
}

func WithTransport(client Transport) OrchestratorOption {
	return func(o *Orchestrator) { o.transport = client }
}

// WithSessionConfig replaces the session configuration pushed on connect.
// Tools registered with WithTools are kept.
func WithSessionConfig(config realtime.SessionConfig) OrchestratorOption {
	return func(o *Orchestrator) {
		tools := o.sessionConfig.Tools
		o.sessionConfig = config
		o.sessionConfig.Tools = append(tools, config.Tools...)
	}
}

// WithGreeting sets the user message sent right after connecting so the
// assistant speaks first. An empty greeting disables it.
func WithGreeting(greeting string) OrchestratorOption {
	return func(o *Orchestrator) { o.greeting = greeting }
}

// WithProfiles sets the instruction profiles the user can switch between. The
// first one becomes active unless WithActiveProfile says otherwise.
func WithProfiles(profiles ...realtime.Profile) OrchestratorOption {
	return func(o *Orchestrator) {
		o.profiles = append(o.profiles, profiles...)
		if o.activeProfile == nil && len(profiles) > 0 {
			o.useProfile(profiles[0])
		}
	}
}

func WithActiveProfile(profile realtime.Profile) OrchestratorOption {
	return func(o *Orchestrator) { o.useProfile(profile) }
}

func WithTools(tools ...realtime.Tool) OrchestratorOption {
	return func(o *Orchestrator) { o.sessionConfig.Tools = append(o.sessionConfig.Tools, tools...) }
}

// WithOrchestrationTools lets the assistant mute the microphone and switch
// instruction profiles on request.
func WithOrchestrationTools() OrchestratorOption {
	return func(o *Orchestrator) { o.sessionConfig.Tools = append(o.sessionConfig.Tools, orchestrationTools(o)...) }
}

func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBaseContext sets the context used for work that outlives a single call,
// such as consuming transport events.
func WithBaseContext(ctx context.Context) OrchestratorOption {
	return func(o *Orchestrator) {
		if ctx != nil {
			o.baseContext = ctx
		}
	}
}
