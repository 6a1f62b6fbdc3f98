package conversation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/koscakluka/ema-realtime/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PlaybackSink receives assistant audio as soon as it arrives.
type PlaybackSink interface {
	AddFrame(samples []int16, itemID string) error
}

// Reconciler is the single writer of a Store. It applies transport events one
// at a time, in the order they are passed in, and publishes a snapshot after
// each applied event.
type Reconciler struct {
	store    *Store
	playback PlaybackSink
	// shouldPlay reports whether audio for an item may still be played.
	shouldPlay func(itemID string) bool

	logger *slog.Logger
}

type ReconcilerOption func(*Reconciler)

// WithPlayback forwards audio deltas to sink, keyed by item ID.
func WithPlayback(sink PlaybackSink) ReconcilerOption {
	return func(r *Reconciler) { r.playback = sink }
}

// WithPlaybackFilter suppresses forwarding for items where shouldPlay returns
// false, e.g. items interrupted by the user.
func WithPlaybackFilter(shouldPlay func(itemID string) bool) ReconcilerOption {
	return func(r *Reconciler) {
		if shouldPlay != nil {
			r.shouldPlay = shouldPlay
		}
	}
}

func WithReconcilerLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewReconciler(store *Store, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:      store,
		shouldPlay: func(string) bool { return true },
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply applies a single event. Errors are logged and returned for
// inspection; none of them stop the event stream.
func (r *Reconciler) Apply(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ItemCreated:
		r.store.create(e.Item)

	case events.ItemDelta:
		if err := r.store.appendDelta(e.ItemID, e.Delta); err != nil {
			r.logger.WarnContext(ctx, "dropping item delta", "item_id", e.ItemID, "error", err)
			return err
		}
		if len(e.Delta.Audio) > 0 {
			r.forwardAudio(ctx, e.ItemID, e.Delta.Audio)
		}

	case events.ItemCompleted:
		if err := r.complete(ctx, e.ItemID); err != nil {
			if errors.Is(err, ErrUnknownItem) {
				r.logger.WarnContext(ctx, "dropping item completion", "item_id", e.ItemID, "error", err)
				return err
			}

			r.logger.ErrorContext(ctx, "item completed without decoded audio", "item_id", e.ItemID, "error", err)
			r.store.publish()
			return err
		}

	default:
		return nil
	}

	r.store.publish()
	return nil
}

func (r *Reconciler) complete(ctx context.Context, itemID string) error {
	_, span := tracer.Start(ctx, "complete item")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", itemID))

	if err := r.store.complete(itemID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (r *Reconciler) forwardAudio(ctx context.Context, itemID string, samples []int16) {
	if r.playback == nil || !r.shouldPlay(itemID) {
		return
	}

	if err := r.playback.AddFrame(samples, itemID); err != nil {
		r.logger.WarnContext(ctx, "failed to queue item audio for playback", "item_id", itemID, "error", err)
	}
}
