package audio

import "sync"

// TrackOffset identifies the track that was playing when playback was
// interrupted and how many of its samples had actually been played.
type TrackOffset struct {
	TrackID string
	Offset  int
}

type trackChunk struct {
	trackID string
	samples []int16
}

// Tracks is the playback queue shared by the device backends. Audio is queued
// per track (one track per conversation item) and consumed by the device
// callback; the number of samples handed to the device is tracked per track so
// an interruption can report the real point where playback stopped rather than
// how much audio had been received.
type Tracks struct {
	mu sync.Mutex

	queue  []trackChunk
	played map[string]int

	// interrupted holds tracks whose remaining audio is ignored.
	interrupted map[string]struct{}
}

func NewTracks() *Tracks {
	return &Tracks{
		played:      map[string]int{},
		interrupted: map[string]struct{}{},
	}
}

// Add queues samples for trackID. Audio for previously interrupted tracks is
// dropped.
func (t *Tracks) Add(trackID string, samples []int16) {
	if len(samples) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.interrupted[trackID]; ok {
		return
	}

	chunk := make([]int16, len(samples))
	copy(chunk, samples)
	t.queue = append(t.queue, trackChunk{trackID: trackID, samples: chunk})
}

// Read fills dst with queued samples in arrival order, padding the remainder
// with silence. It returns the number of queued samples written.
func (t *Tracks) Read(dst []int16) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	written := 0
	for written < len(dst) && len(t.queue) > 0 {
		head := &t.queue[0]
		n := copy(dst[written:], head.samples)
		written += n
		t.played[head.trackID] += n
		head.samples = head.samples[n:]
		if len(head.samples) == 0 {
			t.queue = t.queue[1:]
		}
	}

	clear(dst[written:])
	return written
}

// IsPlaying reports whether any audio is still queued.
func (t *Tracks) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.queue) > 0
}

// Interrupt drops all queued audio and returns the track that was playing
// together with its played sample count, or nil when nothing was queued.
func (t *Tracks) Interrupt() *TrackOffset {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.queue) == 0 {
		return nil
	}

	trackID := t.queue[0].trackID
	for _, chunk := range t.queue {
		t.interrupted[chunk.trackID] = struct{}{}
	}
	t.queue = nil

	return &TrackOffset{TrackID: trackID, Offset: t.played[trackID]}
}

// Reset forgets all queued audio, played offsets and interrupted tracks.
func (t *Tracks) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.queue = nil
	t.played = map[string]int{}
	t.interrupted = map[string]struct{}{}
}
