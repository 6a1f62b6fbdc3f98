package orchestration

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-realtime/core/events"
	"github.com/koscakluka/ema-realtime/core/items"
	"go.opentelemetry.io/otel/codes"
)

// consumeEvents applies transport events of one session in arrival order.
// Events that arrive after the session ended are dropped.
func (o *Orchestrator) consumeEvents(ctx context.Context, generation uint64, stream <-chan events.Event) {
	for event := range stream {
		if !o.isCurrent(generation) {
			continue
		}
		o.handleEvent(ctx, event)
	}

	if o.isCurrent(generation) && o.State() == StateConnected {
		o.logger.WarnContext(ctx, "transport event stream ended, disconnecting")
		o.Disconnect(ctx)
	}
}

func (o *Orchestrator) handleEvent(ctx context.Context, event events.Event) {
	if itemID, ok := events.ItemID(event); ok {
		o.logger.DebugContext(ctx, "applying item event", "kind", event.Kind(), "item_id", itemID)
	}

	switch e := event.(type) {
	case events.ConversationInterrupted:
		o.bargeIn.Interrupt(ctx)

	case events.Error:
		_, span := tracer.Start(ctx, "transport error")
		span.RecordError(e)
		span.SetStatus(codes.Error, e.Error())
		span.End()
		o.logger.ErrorContext(ctx, "transport reported an error", "code", e.Code, "error", e.Err)

	case events.ItemCompleted:
		if previous, ok := o.store.Snapshot().Find(e.ItemID); ok && previous.IsCompleted() {
			return
		}
		if err := o.reconciler.Apply(ctx, e); err != nil && !errors.Is(err, ErrDecodeFailure) {
			return
		}
		if item, ok := o.store.Snapshot().Find(e.ItemID); ok && item.Type == items.TypeFunctionCall {
			o.answerToolCall(ctx, item)
		}

	default:
		_ = o.reconciler.Apply(ctx, event)
	}
}
