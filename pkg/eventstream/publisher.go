package eventstream

import "context"

// Publisher delivers study events. Implementations call Event.Validate
// before sending and must be safe for concurrent Publish calls.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
