// Package conversation owns the ordered conversation transcript: the item
// store, its immutable snapshots and the reconciler that applies transport
// events to it.
package conversation

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/items"
)

// Decoder renders the audio of a completed item into a playable file.
type Decoder func(samples []int16) ([]byte, error)

func decodeWAV(samples []int16) ([]byte, error) {
	return audio.EncodeWAV(samples, audio.GetDefaultEncodingInfo())
}

// Snapshot is a point-in-time copy of the transcript. Snapshots are shared
// between readers and must be treated as read-only.
type Snapshot struct {
	Items []items.Item
	// Version increases with every published snapshot, including resets.
	Version uint64
}

// Find returns the item with id, if present.
func (s Snapshot) Find(id string) (items.Item, bool) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, true
		}
	}
	return items.Item{}, false
}

// Store keeps conversation items in arrival order, keyed by item ID.
//
// Only the Reconciler mutates a store; everyone else reads published
// snapshots.
type Store struct {
	mu sync.Mutex

	items []*items.Item
	index map[string]int
	// frozen caches copies of completed items, which never change again.
	frozen map[string]items.Item

	version uint64
	latest  Snapshot

	subscribersMu    sync.Mutex
	subscribers      map[int]func(Snapshot)
	nextSubscriberID int

	decode Decoder
	logger *slog.Logger
}

type StoreOption func(*Store)

// WithDecoder replaces the WAV renderer used for completed items.
func WithDecoder(decoder Decoder) StoreOption {
	return func(s *Store) {
		if decoder != nil {
			s.decode = decoder
		}
	}
}

func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		index:       map[string]int{},
		frozen:      map[string]items.Item{},
		subscribers: map[int]func(Snapshot){},
		decode:      decodeWAV,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the latest published snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.latest
}

// Subscribe registers fn to receive every published snapshot. fn is called
// synchronously from the publishing goroutine and should not block.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subscribersMu.Lock()
	id := s.nextSubscriberID
	s.nextSubscriberID++
	s.subscribers[id] = fn
	s.subscribersMu.Unlock()

	return func() {
		s.subscribersMu.Lock()
		delete(s.subscribers, id)
		s.subscribersMu.Unlock()
	}
}

// Reset drops all items and publishes the empty transcript. Used when a new
// session starts.
func (s *Store) Reset() {
	s.mu.Lock()
	s.items = nil
	s.index = map[string]int{}
	s.frozen = map[string]items.Item{}
	s.mu.Unlock()

	s.publish()
}

// create appends item as in progress, or replaces the in-progress item with
// the same ID. Replays for completed items are ignored.
func (s *Store) create(item items.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := s.clone(&item)
	owned.Status = items.StatusInProgress
	owned.Formatted.File = nil

	if i, ok := s.index[item.ID]; ok {
		if s.items[i].IsCompleted() {
			s.logger.Debug("ignoring replayed creation of completed item", "item_id", item.ID)
			return
		}
		s.items[i] = &owned
		return
	}

	s.index[item.ID] = len(s.items)
	s.items = append(s.items, &owned)
}

func (s *Store) appendDelta(id string, delta items.Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}

	item := s.items[i]
	if item.IsCompleted() {
		return fmt.Errorf("%w: %s", ErrItemCompleted, id)
	}

	item.Formatted.Audio = append(item.Formatted.Audio, delta.Audio...)
	item.Formatted.Text += delta.Text
	item.Formatted.Transcript += delta.Transcript
	if delta.Arguments != "" {
		if item.Formatted.Tool == nil {
			item.Formatted.Tool = &items.ToolCall{}
		}
		item.Formatted.Tool.Arguments += delta.Arguments
	}

	return nil
}

// complete marks the item completed and renders its audio once. A decoding
// failure is returned but the item stays completed.
func (s *Store) complete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}

	item := s.items[i]
	if item.IsCompleted() {
		return nil
	}

	item.Status = items.StatusCompleted
	if len(item.Formatted.Audio) == 0 {
		return nil
	}

	file, err := s.decode(item.Formatted.Audio)
	if err != nil {
		return fmt.Errorf("%w: item %s: %w", ErrDecodeFailure, id, err)
	}
	item.Formatted.File = file
	return nil
}

// publish copies the current items into a new snapshot and hands it to the
// subscribers.
func (s *Store) publish() {
	s.mu.Lock()
	snapshotItems := make([]items.Item, 0, len(s.items))
	for _, item := range s.items {
		if frozen, ok := s.frozen[item.ID]; ok {
			snapshotItems = append(snapshotItems, frozen)
			continue
		}

		clone := s.clone(item)
		if clone.IsCompleted() {
			s.frozen[item.ID] = clone
		}
		snapshotItems = append(snapshotItems, clone)
	}
	s.version++
	snapshot := Snapshot{Items: snapshotItems, Version: s.version}
	s.latest = snapshot
	s.mu.Unlock()

	s.subscribersMu.Lock()
	subscribers := make([]func(Snapshot), 0, len(s.subscribers))
	for _, subscriber := range s.subscribers {
		subscribers = append(subscribers, subscriber)
	}
	s.subscribersMu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(snapshot)
	}
}

func (s *Store) clone(item *items.Item) items.Item {
	var clone items.Item
	if err := copier.CopyWithOption(&clone, item, copier.Option{DeepCopy: true}); err != nil {
		s.logger.Error("failed to copy conversation item", "item_id", item.ID, "error", err)
		return *item
	}
	return clone
}
