package orchestration

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
)

var errNoAudioInput = errors.New("no audio input configured")

// audioInput guards the configured capture source and tracks whether it is
// currently delivering frames.
type audioInput struct {
	// base stores the configured capture source.
	base AudioInput

	// connected reports whether a concrete input client is currently configured.
	connected atomic.Bool
	// isCapturing reports whether the input client is currently recording.
	isCapturing atomic.Bool
}

func (a *audioInput) Set(client AudioInput) {
	if a == nil {
		return
	}

	a.base = nil
	a.connected.Store(false)
	a.isCapturing.Store(false)

	if isNilClient(client) {
		return
	}

	a.base = client
	a.connected.Store(true)
}

func (a *audioInput) IsConfigured() bool { return a != nil && a.connected.Load() }
func (a *audioInput) IsCapturing() bool  { return a != nil && a.isCapturing.Load() }

func (a *audioInput) Begin(ctx context.Context) error {
	if !a.IsConfigured() {
		return errNoAudioInput
	}
	return a.base.Begin(ctx)
}

func (a *audioInput) Record(ctx context.Context, onFrame func(frame []int16)) error {
	if !a.IsConfigured() {
		return errNoAudioInput
	}

	if err := a.base.Record(ctx, onFrame); err != nil {
		return err
	}
	a.isCapturing.Store(true)
	return nil
}

func (a *audioInput) Pause() error {
	if !a.IsConfigured() || !a.isCapturing.CompareAndSwap(true, false) {
		return nil
	}

	if err := a.base.Pause(); err != nil {
		a.isCapturing.Store(true)
		return err
	}
	return nil
}

// End pauses any capture in progress and releases the device.
func (a *audioInput) End() error {
	if !a.IsConfigured() {
		return nil
	}

	errs := a.Pause()
	if err := a.base.End(); err != nil {
		errs = errors.Join(errs, err)
	}
	return errs
}

// isNilClient detects nil and typed-nil interface values so facades do not
// store unusable clients as configured.
func isNilClient(client any) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
