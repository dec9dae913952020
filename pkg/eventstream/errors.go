package eventstream

import "errors"

var (
	// ErrNilEvent is returned when a publisher is handed a nil event.
	ErrNilEvent = errors.New("nil event")

	// ErrPayloadMismatch is returned when an event's payload does not match
	// its EventType.
	ErrPayloadMismatch = errors.New("event payload does not match event type")
)
