// Package miniaudio implements the capture source and playback sink on top of
// miniaudio (malgo). One device context backs both directions.
package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-realtime/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-realtime/core/audio/miniaudio"

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient

	logger *slog.Logger
}

type ClientOption func(*Client)

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	client := Client{logger: otelslog.NewLogger(scopeName)}
	for _, opt := range opts {
		opt(&client)
	}

	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { client.logger.Debug("malgo", "message", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("malgo context initialization failed: %w", err)
	}
	client.audioContext = audioCtx

	return &client, nil
}

// Begin acquires the capture device without starting to record.
func (c *Client) Begin(_ context.Context) error {
	return c.captureClient.Init(c.audioContext)
}

// Record starts (or resumes) capture and delivers frames to onFrame in the
// order the device produces them.
func (c *Client) Record(_ context.Context, onFrame func(frame []int16)) error {
	return c.captureClient.Start(onFrame)
}

func (c *Client) Pause() error {
	return c.captureClient.Stop()
}

// End releases the capture device.
func (c *Client) End() error {
	return c.captureClient.Uninit()
}

// Connect acquires and starts the playback device.
func (c *Client) Connect(_ context.Context) error {
	if err := c.playbackClient.Init(c.audioContext); err != nil {
		return err
	}

	if err := c.playbackClient.Start(); err != nil {
		_ = c.playbackClient.Uninit()
		return err
	}

	return nil
}

func (c *Client) AddFrame(samples []int16, itemID string) error {
	return c.playbackClient.AddFrame(samples, itemID)
}

func (c *Client) Interrupt() *audio.TrackOffset {
	return c.playbackClient.Interrupt()
}

// Disconnect releases the playback device; Connect may acquire it again.
func (c *Client) Disconnect() error {
	return c.playbackClient.Uninit()
}

func (c *Client) Close() error {
	errs := errors.Join(c.captureClient.Uninit(), c.playbackClient.Uninit())
	if err := c.audioContext.Uninit(); err != nil {
		errs = errors.Join(errs, err)
	}
	c.audioContext.Free()
	return errs
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

// deviceConfig returns a mono linear16 configuration at the session sample
// rate for either side of the device.
func deviceConfig(deviceType malgo.DeviceType) malgo.DeviceConfig {
	config := malgo.DefaultDeviceConfig(deviceType)
	config.SampleRate = audio.DefaultSampleRate
	config.Alsa.NoMMap = 1

	sub := malgo.SubConfig{Format: malgo.FormatS16, Channels: audio.DefaultChannels}
	switch deviceType {
	case malgo.Capture:
		config.Capture = sub
	case malgo.Playback:
		config.Playback = sub
	}
	return config
}

func bytesPerFrame(sub malgo.SubConfig) int {
	return malgo.SampleSizeInBytes(sub.Format) * int(sub.Channels)
}
