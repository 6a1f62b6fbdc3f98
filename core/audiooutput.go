package orchestration

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-realtime/core/audio"
)

var errNoAudioOutput = errors.New("no audio output configured")

// audioOutput wraps the configured playback sink and the optional
// capability to release its device between sessions.
//
// Without a configured client frames are dropped and Interrupt reports that
// nothing was playing.
type audioOutput struct {
	// base stores the configured playback sink.
	base AudioOutput
	// disconnecter is set when the sink can release its device.
	disconnecter AudioOutputDisconnecter
}

// Set replaces the configured output client and recomputes its optional
// capabilities. Nil and typed-nil clients are treated as unconfigured.
func (a *audioOutput) Set(client AudioOutput) {
	if a == nil {
		return
	}

	a.base = nil
	a.disconnecter = nil

	if isNilClient(client) {
		return
	}
	a.base = client

	if disconnecter, ok := client.(AudioOutputDisconnecter); ok {
		a.disconnecter = disconnecter
	}
}

func (a *audioOutput) isConfigured() bool { return a != nil && a.base != nil }

func (a *audioOutput) Connect(ctx context.Context) error {
	if !a.isConfigured() {
		return errNoAudioOutput
	}
	return a.base.Connect(ctx)
}

func (a *audioOutput) AddFrame(samples []int16, itemID string) error {
	if !a.isConfigured() {
		return nil
	}
	return a.base.AddFrame(samples, itemID)
}

func (a *audioOutput) Interrupt() *audio.TrackOffset {
	if !a.isConfigured() {
		return nil
	}
	return a.base.Interrupt()
}

// Disconnect stops whatever is playing and releases the device when the sink
// supports it.
func (a *audioOutput) Disconnect() error {
	if !a.isConfigured() {
		return nil
	}

	a.base.Interrupt()
	if a.disconnecter != nil {
		return a.disconnecter.Disconnect()
	}
	return nil
}
