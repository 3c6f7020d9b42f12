package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Publish sends one event. Callers hold a Publish rather than a
// message.Publisher so they cannot pick the wrong topic.
type Publish[T any] func(event *T) error

// NewPublishFunc binds pub to topic and JSON-encodes each event.
func NewPublishFunc[T any](pub message.Publisher, topic string) Publish[T] {
	return func(event *T) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode %s: %w", topic, err)
		}
		if err := pub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		return nil
	}
}
