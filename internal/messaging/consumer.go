package messaging

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Handler reacts to one decoded event. Returning an error nacks the
// message and the bus redelivers it.
type Handler[T any] func(ctx context.Context, event *T) error

// Consumer decodes JSON payloads from one topic into T and passes them to
// a Handler, one message at a time.
type Consumer[T any] struct {
	sub     message.Subscriber
	topic   string
	handle  Handler[T]
	logger  *zap.Logger
	stop    context.CancelFunc
	stopped chan struct{}
}

func NewConsumer[T any](sub message.Subscriber, topic string, handle Handler[T], logger *zap.Logger) *Consumer[T] {
	return &Consumer[T]{
		sub:     sub,
		topic:   topic,
		handle:  handle,
		logger:  logger.With(zap.String("topic", topic)),
		stopped: make(chan struct{}),
	}
}

func (c *Consumer[T]) Topic() string {
	return c.topic
}

func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	msgs, err := c.sub.Subscribe(ctx, c.topic)
	if err != nil {
		cancel()
		return err
	}
	c.stop = cancel

	go func() {
		defer close(c.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if c.process(ctx, msg) {
					msg.Ack()
				} else {
					msg.Nack()
				}
			}
		}
	}()
	return nil
}

// process reports whether msg is done with. A payload that does not decode
// is done with too: a retry would decode it the same way.
func (c *Consumer[T]) process(ctx context.Context, msg *message.Message) bool {
	var ev T
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		c.logger.Error("drop undecodable event", zap.String("message_id", msg.UUID), zap.Error(err))
		return true
	}
	if err := c.handle(ctx, &ev); err != nil {
		c.logger.Warn("event handler failed, requeueing", zap.String("message_id", msg.UUID), zap.Error(err))
		return false
	}
	return true
}

// Shutdown cancels the subscription and waits for the message in hand.
// It is a no-op if Start never succeeded.
func (c *Consumer[T]) Shutdown() error {
	if c.stop == nil {
		return nil
	}
	c.stop()
	<-c.stopped
	return nil
}
