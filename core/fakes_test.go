package orchestration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/events"
	"github.com/koscakluka/ema-realtime/core/realtime"
)

type fakeAudioInput struct {
	mu sync.Mutex

	beginErr  error
	recordErr error

	begins  int
	records int
	pauses  int
	ends    int
	onFrame func(frame []int16)
}

func (f *fakeAudioInput) Begin(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begins++
	return f.beginErr
}

func (f *fakeAudioInput) Record(_ context.Context, onFrame func(frame []int16)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.records++
	f.onFrame = onFrame
	return nil
}

func (f *fakeAudioInput) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	f.onFrame = nil
	return nil
}

func (f *fakeAudioInput) End() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends++
	f.onFrame = nil
	return nil
}

// emit delivers a frame the way a capture callback would.
func (f *fakeAudioInput) emit(frame []int16) {
	f.mu.Lock()
	onFrame := f.onFrame
	f.mu.Unlock()
	if onFrame != nil {
		onFrame(frame)
	}
}

func (f *fakeAudioInput) counts() (begins, records, pauses, ends int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begins, f.records, f.pauses, f.ends
}

type playedFrame struct {
	itemID  string
	samples []int16
}

type fakeAudioOutput struct {
	mu sync.Mutex

	connectErr error

	connects    int
	disconnects int
	frames      []playedFrame
	// playing is returned, then cleared, by the next Interrupt.
	playing *audio.TrackOffset
}

func (f *fakeAudioOutput) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeAudioOutput) AddFrame(samples []int16, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, playedFrame{itemID: itemID, samples: append([]int16(nil), samples...)})
	return nil
}

func (f *fakeAudioOutput) Interrupt() *audio.TrackOffset {
	f.mu.Lock()
	defer f.mu.Unlock()
	playing := f.playing
	f.playing = nil
	return playing
}

func (f *fakeAudioOutput) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeAudioOutput) setPlaying(itemID string, offset int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = &audio.TrackOffset{TrackID: itemID, Offset: offset}
}

func (f *fakeAudioOutput) framesFor(itemID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, frame := range f.frames {
		if frame.itemID == itemID {
			count++
		}
	}
	return count
}

type cancelCall struct {
	itemID string
	offset int
}

type fakeTransport struct {
	mu sync.Mutex

	connectErr error
	updateErr  error
	// connectGate blocks Connect until it is closed, when set.
	connectGate chan struct{}
	// keepStreamOpen leaves the event stream open on Disconnect so late
	// events can still be delivered.
	keepStreamOpen bool

	connects        int
	disconnects     int
	stream          chan events.Event
	streamClosed    bool
	audio           [][]int16
	userMessages    []string
	createResponses int
	cancels         []cancelCall
	sessionUpdates  []realtime.SessionConfig
	functionOutputs map[string]string
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	gate := f.connectGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.stream = make(chan events.Event, 64)
	f.streamClosed = false
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	if !f.keepStreamOpen {
		f.closeStreamLocked()
	}
	return nil
}

func (f *fakeTransport) closeStreamLocked() {
	if f.stream != nil && !f.streamClosed {
		close(f.stream)
		f.streamClosed = true
	}
}

func (f *fakeTransport) closeStream() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeStreamLocked()
}

func (f *fakeTransport) Events() <-chan events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stream
}

func (f *fakeTransport) emit(event events.Event) {
	f.mu.Lock()
	stream := f.stream
	f.mu.Unlock()
	stream <- event
}

func (f *fakeTransport) SendAudio(samples []int16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, append([]int16(nil), samples...))
	return nil
}

func (f *fakeTransport) SendUserMessage(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userMessages = append(f.userMessages, text)
	return nil
}

func (f *fakeTransport) CreateResponse() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createResponses++
	return nil
}

func (f *fakeTransport) CancelResponse(itemID string, sampleOffset int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, cancelCall{itemID: itemID, offset: sampleOffset})
	return nil
}

func (f *fakeTransport) UpdateSession(config realtime.SessionConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.sessionUpdates = append(f.sessionUpdates, config)
	return nil
}

func (f *fakeTransport) SendFunctionOutput(callID, output string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.functionOutputs == nil {
		f.functionOutputs = map[string]string{}
	}
	f.functionOutputs[callID] = output
	return nil
}

// transportCalls is a copy of what a fakeTransport has been asked to do.
type transportCalls struct {
	connects        int
	disconnects     int
	audio           [][]int16
	userMessages    []string
	createResponses int
	cancels         []cancelCall
	sessionUpdates  []realtime.SessionConfig
	functionOutputs map[string]string
}

func (f *fakeTransport) calls() transportCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return transportCalls{
		connects:        f.connects,
		disconnects:     f.disconnects,
		audio:           append([][]int16(nil), f.audio...),
		userMessages:    append([]string(nil), f.userMessages...),
		createResponses: f.createResponses,
		cancels:         append([]cancelCall(nil), f.cancels...),
		sessionUpdates:  append([]realtime.SessionConfig(nil), f.sessionUpdates...),
		functionOutputs: copyOutputs(f.functionOutputs),
	}
}

func copyOutputs(outputs map[string]string) map[string]string {
	copied := make(map[string]string, len(outputs))
	for callID, output := range outputs {
		copied[callID] = output
	}
	return copied
}

type harness struct {
	orchestrator *Orchestrator
	input        *fakeAudioInput
	output       *fakeAudioOutput
	transport    *fakeTransport
}

func newHarness(opts ...OrchestratorOption) *harness {
	h := &harness{
		input:     &fakeAudioInput{},
		output:    &fakeAudioOutput{},
		transport: &fakeTransport{},
	}
	base := []OrchestratorOption{
		WithAudioInput(h.input),
		WithAudioOutput(h.output),
		WithTransport(h.transport),
	}
	h.orchestrator = NewOrchestrator(append(base, opts...)...)
	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	if err := h.orchestrator.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
}

func waitFor(t *testing.T, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", message)
}

var errDeviceBusy = errors.New("device busy")
