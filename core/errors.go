package orchestration

import (
	"errors"

	"github.com/koscakluka/ema-realtime/core/conversation"
)

var (
	// ErrDeviceUnavailable is returned when the capture or playback device
	// cannot be acquired or driven.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrTransport is returned when the realtime endpoint rejects a connection
	// or a request sent to it fails.
	ErrTransport = errors.New("transport error")
	// ErrInvalidState is returned when an operation is not valid in the
	// current session state. The session is left unchanged.
	ErrInvalidState = errors.New("invalid session state")
	// ErrUnknownProfile is returned by SetProfile for IDs that are not
	// configured.
	ErrUnknownProfile = errors.New("unknown instruction profile")

	ErrUnknownItem   = conversation.ErrUnknownItem
	ErrDecodeFailure = conversation.ErrDecodeFailure
)
