package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-realtime/core/conversation"
	"github.com/koscakluka/ema-realtime/core/interruptions"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultGreeting = "Hello!"

var errNoTransport = errors.New("no transport configured")

// Orchestrator is the session controller. It exclusively owns the capture
// source, the playback sink, the transport and the transcript store.
type Orchestrator struct {
	mu        sync.Mutex
	state     State
	connected bool
	recording bool
	muted     bool
	startedAt time.Time

	sessionConfig realtime.SessionConfig
	profiles      []realtime.Profile
	activeProfile *realtime.Profile
	greeting      string
	// configVersion increases whenever sessionConfig changes.
	configVersion uint64

	// generation identifies the current session. Frames and transport events
	// tagged with an older generation are dropped.
	generation atomic.Uint64
	// controlMu serializes the user toggles.
	controlMu sync.Mutex

	audioInput  audioInput
	audioOutput audioOutput
	transport   Transport

	store      *conversation.Store
	reconciler *conversation.Reconciler
	bargeIn    *interruptions.Coordinator

	baseContext context.Context
	logger      *slog.Logger
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		state:         StateDisconnected,
		sessionConfig: realtime.DefaultSessionConfig(),
		greeting:      DefaultGreeting,
		baseContext:   context.Background(),
		logger:        logger,
	}

	for _, opt := range opts {
		opt(o)
	}
	if o.activeProfile != nil {
		o.sessionConfig.Instructions = o.activeProfile.Content
	}

	o.store = conversation.NewStore(conversation.WithStoreLogger(o.logger))
	o.bargeIn = interruptions.NewCoordinator(&o.audioOutput, o.transport, interruptions.WithLogger(o.logger))
	o.reconciler = conversation.NewReconciler(o.store,
		conversation.WithPlayback(&o.audioOutput),
		conversation.WithPlaybackFilter(o.bargeIn.ShouldPlay),
		conversation.WithReconcilerLogger(o.logger),
	)

	return o
}

// Connect acquires the capture and playback devices, connects the transport
// and starts a new session. It is rejected with ErrInvalidState unless the
// session is disconnected.
func (o *Orchestrator) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "connect")
	defer span.End()

	o.mu.Lock()
	if o.state != StateDisconnected {
		state := o.state
		o.mu.Unlock()
		err := fmt.Errorf("%w: cannot connect while %s", ErrInvalidState, state)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	o.state = StateConnecting
	generation := o.generation.Add(1)
	config := o.sessionConfig
	configVersion := o.configVersion
	o.mu.Unlock()

	span.SetAttributes(attribute.Int64("session.generation", int64(generation)))

	if err := o.connectCollaborators(ctx, config); err != nil {
		o.finishConnect(generation, false)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if !o.finishConnect(generation, true) {
		o.teardown(ctx)
		o.mu.Lock()
		o.state = StateDisconnected
		o.mu.Unlock()

		err := fmt.Errorf("%w: disconnected while connecting", ErrInvalidState)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := o.pushChangedConfig(configVersion); err != nil {
		span.RecordError(err)
		o.logger.WarnContext(ctx, "instructions changed while connecting were not applied", "error", err)
	}

	o.store.Reset()
	o.bargeIn.Reset()
	go o.consumeEvents(o.baseContext, generation, o.transport.Events())

	if o.greeting != "" {
		if err := o.transport.SendUserMessage(o.greeting); err != nil {
			err = fmt.Errorf("%w: failed to send greeting: %w", ErrTransport, err)
			span.RecordError(err)
			o.logger.WarnContext(ctx, "greeting not sent", "error", err)
		}
	}

	o.logger.InfoContext(ctx, "session connected", "generation", generation)
	return nil
}

// connectCollaborators acquires the collaborators in order, releasing the ones
// already acquired when a later step fails.
func (o *Orchestrator) connectCollaborators(ctx context.Context, config realtime.SessionConfig) error {
	if o.transport == nil {
		return fmt.Errorf("%w: %w", ErrTransport, errNoTransport)
	}

	if err := o.audioInput.Begin(ctx); err != nil {
		return fmt.Errorf("%w: capture: %w", ErrDeviceUnavailable, err)
	}

	if err := o.audioOutput.Connect(ctx); err != nil {
		o.releaseInput(ctx)
		return fmt.Errorf("%w: playback: %w", ErrDeviceUnavailable, err)
	}

	if err := o.transport.Connect(ctx); err != nil {
		o.releaseInput(ctx)
		o.releaseOutput(ctx)
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if err := o.transport.UpdateSession(config); err != nil {
		o.releaseInput(ctx)
		o.releaseOutput(ctx)
		o.releaseTransport(ctx)
		return fmt.Errorf("%w: failed to configure session: %w", ErrTransport, err)
	}

	return nil
}

// finishConnect moves a connecting session to its outcome. A failed attempt
// always ends disconnected. A successful one reports false when it was
// superseded by a Disconnect and still has to release what it acquired.
func (o *Orchestrator) finishConnect(generation uint64, succeeded bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !succeeded {
		o.state = StateDisconnected
		return true
	}

	if o.generation.Load() != generation {
		return false
	}

	o.state = StateConnected
	o.connected = true
	o.recording = false
	o.muted = false
	o.startedAt = time.Now()
	return true
}

// pushChangedConfig sends the session config again when it changed after
// version was read, e.g. by SetInstructions while connecting.
func (o *Orchestrator) pushChangedConfig(version uint64) error {
	o.controlMu.Lock()
	defer o.controlMu.Unlock()

	o.mu.Lock()
	config := o.sessionConfig
	changed := o.configVersion != version
	o.mu.Unlock()

	if !changed {
		return nil
	}
	if err := o.transport.UpdateSession(config); err != nil {
		return fmt.Errorf("%w: failed to update session: %w", ErrTransport, err)
	}
	return nil
}

// Disconnect ends the session from any state. It never waits for an
// in-flight response and leaves the transcript in place.
func (o *Orchestrator) Disconnect(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "disconnect")
	defer span.End()

	o.mu.Lock()
	previous := o.state
	if previous == StateDisconnected {
		o.mu.Unlock()
		return
	}
	o.state = StateDisconnecting
	o.generation.Add(1)
	o.connected = false
	o.recording = false
	o.muted = false
	o.mu.Unlock()

	span.SetAttributes(attribute.String("session.previous_state", previous.String()))
	o.teardown(ctx)

	// A connect in flight finishes the transition itself once it notices it
	// was superseded.
	if previous == StateConnecting {
		return
	}

	o.mu.Lock()
	if o.state == StateDisconnecting {
		o.state = StateDisconnected
	}
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "session disconnected")
}

func (o *Orchestrator) teardown(ctx context.Context) {
	o.releaseInput(ctx)
	o.releaseOutput(ctx)
	o.releaseTransport(ctx)
}

func (o *Orchestrator) releaseInput(ctx context.Context) {
	if err := o.audioInput.End(); err != nil {
		recordError(ctx, o.logger, "failed to release audio input", err)
	}
}

func (o *Orchestrator) releaseOutput(ctx context.Context) {
	if err := o.audioOutput.Disconnect(); err != nil {
		recordError(ctx, o.logger, "failed to release audio output", err)
	}
}

func (o *Orchestrator) releaseTransport(ctx context.Context) {
	if o.transport == nil {
		return
	}
	if err := o.transport.Disconnect(); err != nil {
		recordError(ctx, o.logger, "failed to disconnect transport", err)
	}
}

// Close ends the session, if any.
func (o *Orchestrator) Close() {
	o.Disconnect(o.baseContext)
}

// forwardFrames returns the capture callback for a session. Frames are sent
// in the order the capture source produces them.
func (o *Orchestrator) forwardFrames(generation uint64) func(frame []int16) {
	return func(frame []int16) {
		if o.generation.Load() != generation {
			return
		}
		if err := o.transport.SendAudio(frame); err != nil {
			o.logger.Debug("failed to send captured audio", "error", err)
		}
	}
}

func (o *Orchestrator) isCurrent(generation uint64) bool {
	return o.generation.Load() == generation
}

func recordError(ctx context.Context, logger *slog.Logger, message string, err error) {
	span := trace.SpanFromContext(ctx)
	recordedErr := fmt.Errorf("%s: %w", message, err)
	span.RecordError(recordedErr)
	span.SetStatus(codes.Error, recordedErr.Error())
	logger.WarnContext(ctx, message, "error", err)
}
