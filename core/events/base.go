package events

import "time"

// Kind names an event type. Values are stable and safe to log.
type Kind string

type Event interface {
	Kind() Kind
	// Timestamp is the time the transport translated the event.
	Timestamp() time.Time
}

// Base is embedded by every event to implement Event.
type Base struct {
	kind Kind
	at   time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, at: time.Now()}
}

func (b Base) Kind() Kind           { return b.kind }
func (b Base) Timestamp() time.Time { return b.at }

// ItemID returns the conversation item an event refers to. Events that are
// not about a single item return false.
func ItemID(event Event) (string, bool) {
	switch e := event.(type) {
	case ItemCreated:
		return e.Item.ID, true
	case ItemDelta:
		return e.ItemID, true
	case ItemCompleted:
		return e.ItemID, true
	}
	return "", false
}
