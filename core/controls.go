package orchestration

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-realtime/core/realtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ToggleMute pauses capture, or resumes capture and streaming of frames to
// the transport. Recording is left as it is.
func (o *Orchestrator) ToggleMute(ctx context.Context) error {
	o.controlMu.Lock()
	defer o.controlMu.Unlock()

	ctx, span := tracer.Start(ctx, "toggle mute")
	defer span.End()

	o.mu.Lock()
	if !o.connected {
		o.mu.Unlock()
		return spanError(span, fmt.Errorf("%w: mute requires a connected session", ErrInvalidState))
	}
	muted := o.muted
	generation := o.generation.Load()
	o.mu.Unlock()
	span.SetAttributes(attribute.Bool("session.muted", !muted))

	if !muted {
		if err := o.audioInput.Pause(); err != nil {
			return spanError(span, fmt.Errorf("%w: failed to pause capture: %w", ErrDeviceUnavailable, err))
		}
	} else {
		if err := o.audioInput.Record(ctx, o.forwardFrames(generation)); err != nil {
			return spanError(span, fmt.Errorf("%w: failed to resume capture: %w", ErrDeviceUnavailable, err))
		}
	}

	o.mu.Lock()
	if o.isCurrent(generation) {
		o.muted = !muted
	}
	o.mu.Unlock()
	return nil
}

// ToggleRecording starts or stops streaming the microphone to the transport.
// Starting interrupts any assistant audio still playing; stopping requests a
// response to what was recorded.
func (o *Orchestrator) ToggleRecording(ctx context.Context) error {
	o.controlMu.Lock()
	defer o.controlMu.Unlock()

	ctx, span := tracer.Start(ctx, "toggle recording")
	defer span.End()

	o.mu.Lock()
	if !o.connected {
		o.mu.Unlock()
		return spanError(span, fmt.Errorf("%w: recording requires a connected session", ErrInvalidState))
	}
	if o.muted {
		o.mu.Unlock()
		return spanError(span, fmt.Errorf("%w: cannot toggle recording while muted", ErrInvalidState))
	}
	recording := o.recording
	generation := o.generation.Load()
	o.mu.Unlock()
	span.SetAttributes(attribute.Bool("session.recording", !recording))

	if !recording {
		o.bargeIn.Interrupt(ctx)

		if err := o.audioInput.Record(ctx, o.forwardFrames(generation)); err != nil {
			return spanError(span, fmt.Errorf("%w: failed to start capture: %w", ErrDeviceUnavailable, err))
		}

		o.mu.Lock()
		if o.isCurrent(generation) {
			o.recording = true
		}
		o.mu.Unlock()
		return nil
	}

	if err := o.audioInput.Pause(); err != nil {
		return spanError(span, fmt.Errorf("%w: failed to stop capture: %w", ErrDeviceUnavailable, err))
	}

	o.mu.Lock()
	if o.isCurrent(generation) {
		o.recording = false
	}
	o.mu.Unlock()

	if err := o.transport.CreateResponse(); err != nil {
		return spanError(span, fmt.Errorf("%w: failed to request response: %w", ErrTransport, err))
	}
	return nil
}

// SetInstructions makes profile the active instruction set. While connected
// the new instructions are pushed to the transport and apply from the next
// response on.
func (o *Orchestrator) SetInstructions(ctx context.Context, profile realtime.Profile) error {
	o.controlMu.Lock()
	defer o.controlMu.Unlock()

	ctx, span := tracer.Start(ctx, "set instructions")
	defer span.End()
	span.SetAttributes(attribute.String("profile.id", profile.ID))

	o.mu.Lock()
	o.useProfile(profile)
	config := o.sessionConfig
	connected := o.connected
	o.mu.Unlock()

	if !connected {
		return nil
	}

	if err := o.transport.UpdateSession(config); err != nil {
		return spanError(span, fmt.Errorf("%w: failed to update instructions: %w", ErrTransport, err))
	}
	o.logger.InfoContext(ctx, "instructions updated", "profile", profile.ID)
	return nil
}

// SetProfile activates the configured profile with the given ID.
func (o *Orchestrator) SetProfile(ctx context.Context, id string) error {
	for _, profile := range o.Profiles() {
		if profile.ID == id {
			return o.SetInstructions(ctx, profile)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownProfile, id)
}

// SetMuted mutes or unmutes unless the session is already in that state.
func (o *Orchestrator) SetMuted(ctx context.Context, muted bool) error {
	if o.Session().Muted == muted {
		return nil
	}
	return o.ToggleMute(ctx)
}

// useProfile must be called with mu held or before the orchestrator is
// shared.
func (o *Orchestrator) useProfile(profile realtime.Profile) {
	o.activeProfile = &profile
	o.sessionConfig.Instructions = profile.Content
	o.configVersion++
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
