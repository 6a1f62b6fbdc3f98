package openai

import (
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
)

const (
	typeSessionUpdate          = "session.update"
	typeInputAudioBufferAppend = "input_audio_buffer.append"
	typeInputAudioBufferCommit = "input_audio_buffer.commit"
	typeConversationItemCreate = "conversation.item.create"
	typeConversationItemTrunc  = "conversation.item.truncate"
	typeResponseCreate         = "response.create"
	typeResponseCancel         = "response.cancel"
)

type clientEvent struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`
}

func newClientEvent(eventType string) clientEvent {
	return clientEvent{EventID: "evt_" + uuid.NewString(), Type: eventType}
}

type sessionUpdateEvent struct {
	clientEvent
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	Modalities              []string             `json:"modalities"`
	Instructions            string               `json:"instructions"`
	Voice                   string               `json:"voice,omitempty"`
	InputAudioFormat        string               `json:"input_audio_format"`
	OutputAudioFormat       string               `json:"output_audio_format"`
	InputAudioTranscription *transcriptionParams `json:"input_audio_transcription,omitempty"`
	// TurnDetection is always sent as null so turns are only taken manually.
	TurnDetection *struct{}    `json:"turn_detection"`
	Tools         []toolParams `json:"tools"`
	ToolChoice    string       `json:"tool_choice,omitempty"`
	Temperature   float64      `json:"temperature,omitempty"`
}

type transcriptionParams struct {
	Model string `json:"model"`
}

type toolParams struct {
	Type        string             `json:"type"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

type inputAudioBufferAppendEvent struct {
	clientEvent
	Audio string `json:"audio"`
}

type conversationItemCreateEvent struct {
	clientEvent
	Item conversationItem `json:"item"`
}

type conversationItemTruncateEvent struct {
	clientEvent
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int    `json:"audio_end_ms"`
}

// conversationItem is shared between item.create requests and the items the
// server reports back.
type conversationItem struct {
	ID        string        `json:"id,omitempty"`
	Type      string        `json:"type"`
	Status    string        `json:"status,omitempty"`
	Role      string        `json:"role,omitempty"`
	Content   []contentPart `json:"content,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Name      string        `json:"name,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	Output    string        `json:"output,omitempty"`
}

type contentPart struct {
	Type       string  `json:"type"`
	Text       string  `json:"text,omitempty"`
	Audio      string  `json:"audio,omitempty"`
	Transcript *string `json:"transcript,omitempty"`
}

// serverEvent is the union of all server event payloads the client reads.
type serverEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`

	Item         *conversationItem `json:"item,omitempty"`
	ItemID       string            `json:"item_id,omitempty"`
	ContentIndex int               `json:"content_index,omitempty"`
	Delta        string            `json:"delta,omitempty"`
	Transcript   string            `json:"transcript,omitempty"`
	Error        *serverError      `json:"error,omitempty"`
}

type serverError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	EventID string `json:"event_id,omitempty"`
}
