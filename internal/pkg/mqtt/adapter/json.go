package adapter

import (
	"context"
	"encoding/json"
	"fmt"
)

// HandlerFunc handles a raw MQTT payload.
type HandlerFunc func(ctx context.Context, topic string, payload []byte) error

// TypedHandlerFunc handles a decoded message.
type TypedHandlerFunc[T any] func(ctx context.Context, topic string, msg *T) error

// JSONHandler decodes the payload into T before calling handler.
func JSONHandler[T any](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(ctx context.Context, topic string, payload []byte) error {
		msg := new(T)
		if err := json.Unmarshal(payload, msg); err != nil {
			return fmt.Errorf("json unmarshal failed: %w", err)
		}
		return handler(ctx, topic, msg)
	}
}
