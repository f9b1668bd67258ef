package mqtt

import (
	"context"
)

// MessageHandler is called for every message matching a subscription.
// Handlers of one client run on a single goroutine, in arrival order.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Publisher sends messages. Driver pushers and hub notifiers only need this.
type Publisher interface {
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error
}

// Subscriber routes topic filters to handlers. Subscriptions survive
// reconnects: they are replayed every time the connection comes back up.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error
	Unsubscribe(ctx context.Context, topic string) error
}

// Client is a long-lived broker connection.
type Client interface {
	Publisher
	Subscriber

	// Start connects in the background and returns at once.
	Start(ctx context.Context) error

	// AwaitConnection blocks until the client is connected or ctx is done.
	AwaitConnection(ctx context.Context) error

	IsConnected() bool
	Disconnect(ctx context.Context)
}
