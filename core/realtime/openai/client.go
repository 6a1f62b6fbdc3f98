// Package openai is a realtime transport for the OpenAI realtime websocket
// API. It sends client events for the session and translates server events
// into conversation events.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/events"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultURL = "wss://api.openai.com/v1/realtime"

	eventBufferSize = 256
	closeTimeout    = time.Second
)

var (
	ErrNotConnected     = errors.New("realtime client is not connected")
	ErrAlreadyConnected = errors.New("realtime client is already connected")
)

type Client struct {
	url    string
	model  string
	apiKey string
	dialer *websocket.Dialer

	connMu sync.Mutex
	conn   *websocket.Conn
	events chan events.Event
	done   chan struct{}
	parser *parser

	// uncommitted is the input audio appended since the last commit.
	audioMu     sync.Mutex
	uncommitted []int16

	logger *slog.Logger
}

type ClientOption func(*Client)

func WithURL(rawURL string) ClientOption {
	return func(c *Client) {
		if rawURL != "" {
			c.url = rawURL
		}
	}
}

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		url:    DefaultURL,
		model:  realtime.DefaultModel,
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the endpoint and starts reading server events. Events for
// this connection are delivered on the channel returned by Events until the
// connection ends.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "connect realtime")
	defer span.End()

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return ErrAlreadyConnected
	}

	endpoint, err := c.endpoint()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.String("realtime.model", c.model))

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		err = fmt.Errorf("failed to open realtime connection: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.conn = conn
	c.events = make(chan events.Event, eventBufferSize)
	c.done = make(chan struct{})
	c.parser = newParser()
	c.audioMu.Lock()
	c.uncommitted = nil
	c.audioMu.Unlock()

	go c.readLoop(conn, c.parser, c.events, c.done)

	c.logger.InfoContext(ctx, "realtime connected", "model", c.model)
	return nil
}

func (c *Client) endpoint() (string, error) {
	endpoint, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	query := endpoint.Query()
	if query.Get("model") == "" && c.model != "" {
		query.Set("model", c.model)
	}
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}

// Events returns the event stream of the current connection. The channel is
// closed when the connection ends.
func (c *Client) Events() <-chan events.Event {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.events == nil {
		ch := make(chan events.Event)
		close(ch)
		return ch
	}
	return c.events
}

// Disconnect closes the connection. It is safe to call when not connected.
func (c *Client) Disconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return nil
	}

	close(c.done)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeTimeout))
	err := c.conn.Close()
	c.conn = nil
	c.logger.Info("realtime disconnected")

	if err != nil {
		return fmt.Errorf("failed to close realtime connection: %w", err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, parser *parser, out chan<- events.Event, done <-chan struct{}) {
	defer close(out)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				c.logger.Warn("realtime connection lost", "error", err)
				select {
				case out <- events.NewError("connection_closed", err):
				case <-done:
				}
			}
			return
		}

		var event serverEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.logger.Warn("failed to decode realtime event", "error", err)
			continue
		}
		c.logger.Debug("realtime event", "type", event.Type, "event_id", event.EventID, "item_id", event.ItemID)

		for _, translated := range parser.parse(event) {
			select {
			case out <- translated:
			case <-done:
				return
			}
		}
	}
}

func (c *Client) write(event any) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteJSON(event); err != nil {
		return fmt.Errorf("failed to write realtime event: %w", err)
	}
	return nil
}

// SendAudio appends captured samples to the remote input buffer.
func (c *Client) SendAudio(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}

	if err := c.write(inputAudioBufferAppendEvent{
		clientEvent: newClientEvent(typeInputAudioBufferAppend),
		Audio:       base64.StdEncoding.EncodeToString(audio.Int16ToBytes(samples)),
	}); err != nil {
		return err
	}

	c.audioMu.Lock()
	c.uncommitted = append(c.uncommitted, samples...)
	c.audioMu.Unlock()
	return nil
}

// SendUserMessage adds a user text message and asks for a response to it.
func (c *Client) SendUserMessage(text string) error {
	if err := c.write(conversationItemCreateEvent{
		clientEvent: newClientEvent(typeConversationItemCreate),
		Item: conversationItem{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_text", Text: text}},
		},
	}); err != nil {
		return err
	}
	return c.CreateResponse()
}

// CreateResponse commits any pending input audio and requests a response.
func (c *Client) CreateResponse() error {
	c.audioMu.Lock()
	pending := c.uncommitted
	c.uncommitted = nil
	c.audioMu.Unlock()

	if len(pending) > 0 {
		// The user item for this commit may arrive before write returns.
		c.connMu.Lock()
		parser := c.parser
		c.connMu.Unlock()
		if parser != nil {
			parser.queueInputAudio(pending)
		}
		if err := c.write(newClientEvent(typeInputAudioBufferCommit)); err != nil {
			if parser != nil {
				parser.dropQueuedInputAudio()
			}
			return err
		}
	}

	return c.write(newClientEvent(typeResponseCreate))
}

// CancelResponse cancels the in-flight response and, when itemID is set,
// truncates that item to the first sampleOffset samples the user heard.
func (c *Client) CancelResponse(itemID string, sampleOffset int) error {
	if err := c.write(newClientEvent(typeResponseCancel)); err != nil {
		return err
	}
	if itemID == "" {
		return nil
	}

	return c.write(conversationItemTruncateEvent{
		clientEvent:  newClientEvent(typeConversationItemTrunc),
		ItemID:       itemID,
		ContentIndex: 0,
		AudioEndMs:   audio.GetDefaultEncodingInfo().SamplesToMilliseconds(sampleOffset),
	})
}

// UpdateSession pushes the session configuration. Turn detection is always
// disabled.
func (c *Client) UpdateSession(config realtime.SessionConfig) error {
	tools := make([]toolParams, 0, len(config.Tools))
	for _, tool := range config.Tools {
		tools = append(tools, toolParams{
			Type:        "function",
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}

	params := sessionParams{
		Modalities:        []string{"text", "audio"},
		Instructions:      config.Instructions,
		Voice:             config.Voice,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		Tools:             tools,
		Temperature:       config.Temperature,
	}
	if config.TranscriptionModel != "" {
		params.InputAudioTranscription = &transcriptionParams{Model: config.TranscriptionModel}
	}
	if len(tools) > 0 {
		params.ToolChoice = "auto"
	}

	return c.write(sessionUpdateEvent{
		clientEvent: newClientEvent(typeSessionUpdate),
		Session:     params,
	})
}

// SendFunctionOutput answers a function call. The caller decides when to ask
// for the follow-up response.
func (c *Client) SendFunctionOutput(callID, output string) error {
	return c.write(conversationItemCreateEvent{
		clientEvent: newClientEvent(typeConversationItemCreate),
		Item: conversationItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	})
}
