package conversation

import (
	"errors"
	"testing"

	"github.com/koscakluka/ema-realtime/core/items"
)

func TestCreateForcesInProgressAndKeepsArrivalOrder(t *testing.T) {
	store := NewStore()

	store.create(items.Item{ID: "u1", Role: items.RoleUser, Status: items.StatusCompleted})
	store.create(items.Item{ID: "a1", Role: items.RoleAssistant})
	store.publish()

	snapshot := store.Snapshot()
	if len(snapshot.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(snapshot.Items))
	}
	if snapshot.Items[0].ID != "u1" || snapshot.Items[1].ID != "a1" {
		t.Fatalf("expected arrival order u1, a1, got %s, %s", snapshot.Items[0].ID, snapshot.Items[1].ID)
	}
	if snapshot.Items[0].Status != items.StatusInProgress {
		t.Fatalf("expected created item to be in progress, got %q", snapshot.Items[0].Status)
	}
}

func TestCreateReplacesInProgressItemWithSameID(t *testing.T) {
	store := NewStore()

	store.create(items.Item{ID: "a1", Role: items.RoleAssistant, Formatted: items.Formatted{Text: "first"}})
	store.create(items.Item{ID: "a1", Role: items.RoleAssistant, Formatted: items.Formatted{Text: "second"}})
	store.publish()

	snapshot := store.Snapshot()
	if len(snapshot.Items) != 1 {
		t.Fatalf("expected replayed creation to keep a single item, got %d", len(snapshot.Items))
	}
	if got := snapshot.Items[0].Formatted.Text; got != "second" {
		t.Fatalf("expected replayed creation to replace content, got %q", got)
	}
}

func TestCreateIgnoresReplayOfCompletedItem(t *testing.T) {
	store := NewStore()

	store.create(items.Item{ID: "a1", Formatted: items.Formatted{Text: "done"}})
	if err := store.complete("a1"); err != nil {
		t.Fatalf("unexpected completion error: %v", err)
	}
	store.create(items.Item{ID: "a1", Formatted: items.Formatted{Text: "replay"}})
	store.publish()

	item, ok := store.Snapshot().Find("a1")
	if !ok {
		t.Fatalf("expected item a1 in snapshot")
	}
	if !item.IsCompleted() || item.Formatted.Text != "done" {
		t.Fatalf("expected completed item to stay untouched, got %+v", item)
	}
}

func TestAppendDeltaRejectsUnknownAndCompletedItems(t *testing.T) {
	store := NewStore()

	if err := store.appendDelta("missing", items.Delta{Text: "x"}); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}

	store.create(items.Item{ID: "a1"})
	if err := store.complete("a1"); err != nil {
		t.Fatalf("unexpected completion error: %v", err)
	}
	if err := store.appendDelta("a1", items.Delta{Text: "late"}); !errors.Is(err, ErrItemCompleted) {
		t.Fatalf("expected ErrItemCompleted, got %v", err)
	}
}

func TestAppendDeltaAccumulatesEveryContentKind(t *testing.T) {
	store := NewStore()
	store.create(items.Item{ID: "f1", Type: items.TypeFunctionCall})

	deltas := []items.Delta{
		{Audio: []int16{1, 2}},
		{Audio: []int16{3}},
		{Text: "ab"},
		{Transcript: "cd"},
		{Arguments: `{"mute":`},
		{Arguments: `true}`},
	}
	for _, delta := range deltas {
		if err := store.appendDelta("f1", delta); err != nil {
			t.Fatalf("unexpected delta error: %v", err)
		}
	}
	store.publish()

	item, _ := store.Snapshot().Find("f1")
	if len(item.Formatted.Audio) != 3 || item.Formatted.Audio[2] != 3 {
		t.Fatalf("expected audio to be appended in order, got %v", item.Formatted.Audio)
	}
	if item.Formatted.Text != "ab" || item.Formatted.Transcript != "cd" {
		t.Fatalf("unexpected text %q or transcript %q", item.Formatted.Text, item.Formatted.Transcript)
	}
	if item.Formatted.Tool == nil || item.Formatted.Tool.Arguments != `{"mute":true}` {
		t.Fatalf("expected tool arguments to accumulate, got %+v", item.Formatted.Tool)
	}
}

func TestCompleteRendersAudioOnce(t *testing.T) {
	calls := 0
	store := NewStore(WithDecoder(func(samples []int16) ([]byte, error) {
		calls++
		return []byte{byte(len(samples))}, nil
	}))

	store.create(items.Item{ID: "a1"})
	_ = store.appendDelta("a1", items.Delta{Audio: []int16{1, 2, 3}})

	if err := store.complete("a1"); err != nil {
		t.Fatalf("unexpected completion error: %v", err)
	}
	if err := store.complete("a1"); err != nil {
		t.Fatalf("expected repeated completion to be a no-op, got %v", err)
	}
	store.publish()

	if calls != 1 {
		t.Fatalf("expected decoder to run once, got %d", calls)
	}
	item, _ := store.Snapshot().Find("a1")
	if len(item.Formatted.File) != 1 || item.Formatted.File[0] != 3 {
		t.Fatalf("expected rendered file on completed item, got %v", item.Formatted.File)
	}
}

func TestCompleteWithoutAudioSkipsDecoder(t *testing.T) {
	store := NewStore(WithDecoder(func([]int16) ([]byte, error) {
		t.Fatalf("decoder must not run for items without audio")
		return nil, nil
	}))

	store.create(items.Item{ID: "a1", Formatted: items.Formatted{Text: "hi"}})
	if err := store.complete("a1"); err != nil {
		t.Fatalf("unexpected completion error: %v", err)
	}
}

func TestCompleteKeepsStatusWhenDecodingFails(t *testing.T) {
	decodeErr := errors.New("bad audio")
	store := NewStore(WithDecoder(func([]int16) ([]byte, error) { return nil, decodeErr }))

	store.create(items.Item{ID: "a1"})
	_ = store.appendDelta("a1", items.Delta{Audio: []int16{1}})

	err := store.complete("a1")
	if !errors.Is(err, ErrDecodeFailure) || !errors.Is(err, decodeErr) {
		t.Fatalf("expected wrapped decode failure, got %v", err)
	}
	store.publish()

	item, _ := store.Snapshot().Find("a1")
	if !item.IsCompleted() {
		t.Fatalf("expected item to stay completed after decode failure")
	}
	if item.Formatted.File != nil {
		t.Fatalf("expected no file after decode failure")
	}
}

func TestSnapshotsAreIsolatedFromLaterMutation(t *testing.T) {
	store := NewStore()
	store.create(items.Item{ID: "a1"})
	_ = store.appendDelta("a1", items.Delta{Transcript: "Hel", Audio: []int16{1}})
	store.publish()
	before := store.Snapshot()

	_ = store.appendDelta("a1", items.Delta{Transcript: "lo", Audio: []int16{2}})
	store.publish()
	after := store.Snapshot()

	if got := before.Items[0].Formatted.Transcript; got != "Hel" {
		t.Fatalf("expected earlier snapshot to keep its transcript, got %q", got)
	}
	if got := len(before.Items[0].Formatted.Audio); got != 1 {
		t.Fatalf("expected earlier snapshot to keep its audio, got %d samples", got)
	}
	if got := after.Items[0].Formatted.Transcript; got != "Hello" {
		t.Fatalf("expected later snapshot to see appended transcript, got %q", got)
	}
	if after.Version <= before.Version {
		t.Fatalf("expected version to increase, got %d then %d", before.Version, after.Version)
	}
}

func TestSubscribeReceivesPublishedSnapshotsUntilUnsubscribed(t *testing.T) {
	store := NewStore()

	var received []Snapshot
	unsubscribe := store.Subscribe(func(snapshot Snapshot) {
		received = append(received, snapshot)
	})

	store.create(items.Item{ID: "a1"})
	store.publish()
	store.Reset()
	unsubscribe()
	store.publish()

	if len(received) != 2 {
		t.Fatalf("expected 2 snapshots before unsubscribing, got %d", len(received))
	}
	if len(received[0].Items) != 1 {
		t.Fatalf("expected first snapshot to hold one item, got %d", len(received[0].Items))
	}
	if len(received[1].Items) != 0 {
		t.Fatalf("expected reset to publish an empty transcript, got %d items", len(received[1].Items))
	}
}
