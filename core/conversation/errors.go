package conversation

import "errors"

var (
	// ErrUnknownItem is reported for deltas or completions referencing an item
	// that was never created. Such events are dropped.
	ErrUnknownItem = errors.New("unknown conversation item")
	// ErrItemCompleted is reported for deltas arriving after an item
	// completed. Completed items are never mutated.
	ErrItemCompleted = errors.New("conversation item already completed")
	// ErrDecodeFailure is reported when the audio of a completed item could
	// not be rendered. The item stays completed without a file.
	ErrDecodeFailure = errors.New("failed to decode item audio")
)
