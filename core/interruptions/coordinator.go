// Package interruptions handles barge-in: stopping local playback of the
// assistant and telling the remote side how much of it was actually heard.
package interruptions

import (
	"context"
	"log/slog"
	"sync"

	"github.com/koscakluka/ema-realtime/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Playback is the part of the playback sink needed to stop it.
type Playback interface {
	// Interrupt stops playback and returns the track that was playing, or nil
	// if nothing was.
	Interrupt() *audio.TrackOffset
}

// Canceller cancels the in-flight response and truncates the item to the
// audio the user heard.
type Canceller interface {
	CancelResponse(itemID string, sampleOffset int) error
}

// Coordinator interrupts the assistant at most once per playing track and
// remembers which items were cut off so their late audio is not played.
type Coordinator struct {
	mu          sync.Mutex
	interrupted map[string]struct{}

	playback  Playback
	canceller Canceller

	counter metric.Int64Counter
	logger  *slog.Logger
}

type CoordinatorOption func(*Coordinator)

func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCoordinator(playback Playback, canceller Canceller, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		interrupted: map[string]struct{}{},
		playback:    playback,
		canceller:   canceller,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	counter, err := meter.Int64Counter("ema.interruptions",
		metric.WithDescription("Assistant responses cut off by the user"),
	)
	if err != nil {
		c.logger.Warn("failed to create interruption counter", "error", err)
	}
	c.counter = counter

	return c
}

// Interrupt stops playback. If a track was playing, its item is marked as
// interrupted and the remote response is cancelled at the played offset.
// It returns the offset, or nil when there was nothing to interrupt.
func (c *Coordinator) Interrupt(ctx context.Context) *audio.TrackOffset {
	if c.playback == nil {
		return nil
	}

	offset := c.playback.Interrupt()
	if offset == nil {
		return nil
	}

	ctx, span := tracer.Start(ctx, "interrupt assistant")
	defer span.End()
	span.SetAttributes(
		attribute.String("item.id", offset.TrackID),
		attribute.Int("item.sample_offset", offset.Offset),
	)

	c.mu.Lock()
	c.interrupted[offset.TrackID] = struct{}{}
	c.mu.Unlock()

	if c.counter != nil {
		c.counter.Add(ctx, 1)
	}

	if c.canceller != nil {
		if err := c.canceller.CancelResponse(offset.TrackID, offset.Offset); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.ErrorContext(ctx, "failed to cancel interrupted response",
				"item_id", offset.TrackID,
				"sample_offset", offset.Offset,
				"error", err,
			)
		}
	}

	c.logger.DebugContext(ctx, "assistant interrupted", "item_id", offset.TrackID, "sample_offset", offset.Offset)
	return offset
}

func (c *Coordinator) IsInterrupted(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.interrupted[itemID]
	return ok
}

// ShouldPlay reports whether audio for itemID may still be played.
func (c *Coordinator) ShouldPlay(itemID string) bool {
	return !c.IsInterrupted(itemID)
}

func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.interrupted = map[string]struct{}{}
	c.mu.Unlock()
}
