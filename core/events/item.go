package events

import "github.com/koscakluka/ema-realtime/core/items"

const (
	// KindItemCreated identifies creation of a conversation item.
	KindItemCreated Kind = "item.created"
	// KindItemDelta identifies an append-only item content fragment.
	KindItemDelta Kind = "item.delta"
	// KindItemCompleted identifies the terminal state of an item.
	KindItemCompleted Kind = "item.completed"
)

// ItemCreated carries a newly created item with its initial content.
type ItemCreated struct {
	Base
	Item items.Item
}

// NewItemCreated creates an item created event.
func NewItemCreated(item items.Item) ItemCreated {
	return ItemCreated{Base: NewBase(KindItemCreated), Item: item}
}

// ItemDelta carries a content fragment for the item with ItemID.
type ItemDelta struct {
	Base
	ItemID string
	Delta  items.Delta
}

// NewItemDelta creates an item delta event.
func NewItemDelta(itemID string, delta items.Delta) ItemDelta {
	return ItemDelta{Base: NewBase(KindItemDelta), ItemID: itemID, Delta: delta}
}

// NewAudioDelta creates an item delta event carrying audio samples.
func NewAudioDelta(itemID string, audio []int16) ItemDelta {
	return NewItemDelta(itemID, items.Delta{Audio: audio})
}

// NewTranscriptDelta creates an item delta event carrying transcript text.
func NewTranscriptDelta(itemID, transcript string) ItemDelta {
	return NewItemDelta(itemID, items.Delta{Transcript: transcript})
}

// NewTextDelta creates an item delta event carrying text.
func NewTextDelta(itemID, text string) ItemDelta {
	return NewItemDelta(itemID, items.Delta{Text: text})
}

// NewArgumentsDelta creates an item delta event carrying tool call arguments.
func NewArgumentsDelta(itemID, arguments string) ItemDelta {
	return NewItemDelta(itemID, items.Delta{Arguments: arguments})
}

// ItemCompleted marks the item with ItemID as completed.
type ItemCompleted struct {
	Base
	ItemID string
}

// NewItemCompleted creates an item completed event.
func NewItemCompleted(itemID string) ItemCompleted {
	return ItemCompleted{Base: NewBase(KindItemCompleted), ItemID: itemID}
}
