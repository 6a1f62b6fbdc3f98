// Package portaudio implements the capture source and playback sink with a
// single full-duplex PortAudio stream.
package portaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-realtime/core/audio"
)

const DefaultBufferSize = 480

type Client struct {
	bufferSize int

	mu          sync.Mutex
	initialized bool
	stream      *portaudio.Stream
	capturing   bool
	playing     bool

	// frameMu guards onFrame separately so the stream callback never waits
	// on mu while Stop is draining it.
	frameMu sync.Mutex
	onFrame func(frame []int16)
	tracks  *audio.Tracks
}

func NewClient(bufferSize int) (*Client, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &Client{
		bufferSize:  bufferSize,
		initialized: true,
		tracks:      audio.NewTracks(),
	}, nil
}

func (c *Client) ensureStream() error {
	if c.stream != nil {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(
		audio.DefaultChannels,
		audio.DefaultChannels,
		float64(audio.DefaultSampleRate),
		c.bufferSize,
		c.process,
	)
	if err != nil {
		return fmt.Errorf("failed to open PortAudio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	c.stream = stream
	return nil
}

func (c *Client) process(in, out []int16) {
	c.frameMu.Lock()
	onFrame := c.onFrame
	c.frameMu.Unlock()

	if onFrame != nil {
		// in is reused by PortAudio for the next buffer
		frame := make([]int16, len(in))
		copy(frame, in)
		onFrame(frame)
	}

	c.tracks.Read(out)
}

func (c *Client) Begin(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStream(); err != nil {
		return err
	}
	c.capturing = true
	return nil
}

func (c *Client) Record(_ context.Context, onFrame func(frame []int16)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.capturing {
		return fmt.Errorf("capture not started")
	}
	c.setOnFrame(onFrame)
	return nil
}

func (c *Client) Pause() error {
	c.setOnFrame(nil)
	return nil
}

func (c *Client) setOnFrame(onFrame func(frame []int16)) {
	c.frameMu.Lock()
	c.onFrame = onFrame
	c.frameMu.Unlock()
}

func (c *Client) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setOnFrame(nil)
	c.capturing = false
	return c.closeIdleStream()
}

func (c *Client) Connect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStream(); err != nil {
		return err
	}
	c.playing = true
	return nil
}

func (c *Client) AddFrame(samples []int16, itemID string) error {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()

	if !playing {
		return fmt.Errorf("playback not connected")
	}

	c.tracks.Add(itemID, samples)
	return nil
}

// Interrupt drops queued audio and reports where the playing track stopped.
func (c *Client) Interrupt() *audio.TrackOffset {
	return c.tracks.Interrupt()
}

// Disconnect releases the playback side of the stream.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.playing = false
	c.tracks.Reset()
	return c.closeIdleStream()
}

func (c *Client) closeIdleStream() error {
	if c.stream == nil || c.capturing || c.playing {
		return nil
	}

	stream := c.stream
	c.stream = nil
	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to stop PortAudio stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close PortAudio stream: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capturing = false
	c.playing = false
	c.setOnFrame(nil)
	err := c.closeIdleStream()

	if c.initialized {
		c.initialized = false
		if terminateErr := portaudio.Terminate(); terminateErr != nil && err == nil {
			err = terminateErr
		}
	}
	return err
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
