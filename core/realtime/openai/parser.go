package openai

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/events"
	"github.com/koscakluka/ema-realtime/core/items"
)

// parser translates server events into conversation events. It remembers the
// committed input audio until the server creates the user item for it, and
// which user items are still waiting for their transcription.
type parser struct {
	mu sync.Mutex

	queuedInputAudio []int16
	// transcribing maps user audio items to whether a transcription delta
	// has been seen for them yet.
	transcribing map[string]bool
}

func newParser() *parser {
	return &parser{transcribing: map[string]bool{}}
}

func (p *parser) queueInputAudio(samples []int16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queuedInputAudio = append(p.queuedInputAudio, samples...)
}

func (p *parser) dropQueuedInputAudio() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queuedInputAudio = nil
}

func (p *parser) parse(event serverEvent) []events.Event {
	switch event.Type {
	case "conversation.item.created":
		return p.itemCreated(event)

	case "response.output_item.done":
		if event.Item == nil {
			return []events.Event{events.NewUnknown(event.Type)}
		}
		return []events.Event{events.NewItemCompleted(event.Item.ID)}

	case "response.audio.delta", "response.output_audio.delta":
		raw, err := base64.StdEncoding.DecodeString(event.Delta)
		if err != nil {
			return []events.Event{events.NewError("invalid_audio", fmt.Errorf("item %s: %w", event.ItemID, err))}
		}
		return []events.Event{events.NewAudioDelta(event.ItemID, audio.BytesToInt16(raw))}

	case "response.audio_transcript.delta", "response.output_audio_transcript.delta":
		return []events.Event{events.NewTranscriptDelta(event.ItemID, event.Delta)}

	case "response.text.delta", "response.output_text.delta":
		return []events.Event{events.NewTextDelta(event.ItemID, event.Delta)}

	case "response.function_call_arguments.delta":
		return []events.Event{events.NewArgumentsDelta(event.ItemID, event.Delta)}

	case "conversation.item.input_audio_transcription.delta":
		p.mu.Lock()
		p.transcribing[event.ItemID] = true
		p.mu.Unlock()
		return []events.Event{events.NewTranscriptDelta(event.ItemID, event.Delta)}

	case "conversation.item.input_audio_transcription.completed":
		p.mu.Lock()
		sawDeltas := p.transcribing[event.ItemID]
		delete(p.transcribing, event.ItemID)
		p.mu.Unlock()

		if sawDeltas || event.Transcript == "" {
			return []events.Event{events.NewItemCompleted(event.ItemID)}
		}
		return []events.Event{
			events.NewTranscriptDelta(event.ItemID, event.Transcript),
			events.NewItemCompleted(event.ItemID),
		}

	case "conversation.item.input_audio_transcription.failed":
		p.mu.Lock()
		delete(p.transcribing, event.ItemID)
		p.mu.Unlock()
		return []events.Event{events.NewItemCompleted(event.ItemID)}

	case "input_audio_buffer.speech_started":
		return []events.Event{events.NewConversationInterrupted()}

	case "error":
		if event.Error == nil {
			return []events.Event{events.NewError("", errors.New("unspecified realtime error"))}
		}
		code := event.Error.Code
		if code == "" {
			code = event.Error.Type
		}
		return []events.Event{events.NewError(code, errors.New(event.Error.Message))}
	}

	return []events.Event{events.NewUnknown(event.Type)}
}

func (p *parser) itemCreated(event serverEvent) []events.Event {
	if event.Item == nil {
		return []events.Event{events.NewUnknown(event.Type)}
	}

	item := toItem(*event.Item)
	awaitingTranscription := false
	if item.Role == items.RoleUser && hasContent(*event.Item, "input_audio") {
		p.mu.Lock()
		item.Formatted.Audio = p.queuedInputAudio
		p.queuedInputAudio = nil
		if event.Item.Status != "completed" || item.Formatted.Transcript == "" {
			p.transcribing[item.ID] = false
			awaitingTranscription = true
		}
		p.mu.Unlock()
	}

	out := []events.Event{events.NewItemCreated(item)}
	if event.Item.Status == "completed" && !awaitingTranscription {
		out = append(out, events.NewItemCompleted(item.ID))
	}
	return out
}

func toItem(remote conversationItem) items.Item {
	item := items.Item{
		ID:     remote.ID,
		Role:   items.Role(remote.Role),
		Type:   items.Type(remote.Type),
		Status: items.Status(remote.Status),
	}

	for _, part := range remote.Content {
		switch part.Type {
		case "input_text", "text":
			item.Formatted.Text += part.Text
		}
		if part.Transcript != nil {
			item.Formatted.Transcript += *part.Transcript
		}
	}

	switch item.Type {
	case items.TypeFunctionCall:
		item.Formatted.Tool = &items.ToolCall{
			CallID:    remote.CallID,
			Name:      remote.Name,
			Arguments: remote.Arguments,
		}
	case items.TypeFunctionCallOutput:
		item.Formatted.Output = remote.Output
		item.Formatted.Tool = &items.ToolCall{CallID: remote.CallID}
	}

	return item
}

func hasContent(item conversationItem, contentType string) bool {
	for _, part := range item.Content {
		if part.Type == contentType {
			return true
		}
	}
	return false
}
