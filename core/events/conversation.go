package events

const (
	// KindConversationInterrupted identifies a server detected barge-in.
	KindConversationInterrupted Kind = "conversation.interrupted"
	// KindError identifies transport or remote endpoint errors.
	KindError Kind = "error"
	// KindUnknown identifies remote events without a translation.
	KindUnknown Kind = "unknown"
)

// ConversationInterrupted signals that the user started talking over
// assistant audio.
type ConversationInterrupted struct{ Base }

// NewConversationInterrupted creates a conversation interrupted event.
func NewConversationInterrupted() ConversationInterrupted {
	return ConversationInterrupted{Base: NewBase(KindConversationInterrupted)}
}

// Error carries an error reported by the transport or the remote endpoint.
type Error struct {
	Base
	Code string
	Err  error
}

// NewError creates an error event.
func NewError(code string, err error) Error {
	return Error{Base: NewBase(KindError), Code: code, Err: err}
}

func (e Error) Error() string {
	if e.Err == nil {
		return e.Code
	}
	if e.Code == "" {
		return e.Err.Error()
	}
	return e.Code + ": " + e.Err.Error()
}

func (e Error) Unwrap() error { return e.Err }

// Unknown wraps a remote event type that has no translation.
type Unknown struct {
	Base
	Type string
}

// NewUnknown creates an unknown event for the remote event type.
func NewUnknown(eventType string) Unknown {
	return Unknown{Base: NewBase(KindUnknown), Type: eventType}
}
