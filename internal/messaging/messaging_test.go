package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scmmishra/linkpulse/internal/messaging"
)

type recordingPublisher struct {
	topic      string
	messages   []*message.Message
	publishErr error
}

func (p *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.topic = topic
	p.messages = append(p.messages, msgs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type chanSubscriber struct {
	msgs         chan *message.Message
	subscribeErr error
	once         sync.Once
}

func newChanSubscriber() *chanSubscriber {
	return &chanSubscriber{msgs: make(chan *message.Message, 10)}
}

func (s *chanSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	return s.msgs, nil
}

func (s *chanSubscriber) Close() error {
	s.once.Do(func() { close(s.msgs) })
	return nil
}

func TestNewPublishFunc(t *testing.T) {
	t.Run("publishes json payload on topic", func(t *testing.T) {
		pub := &recordingPublisher{}
		publish := messaging.NewPublishFunc[messaging.LinkCreated](pub, messaging.TopicLinkCreated)

		require.NoError(t, publish(&messaging.LinkCreated{Code: "promo", ShortURL: "https://lp.example/promo"}))

		assert.Equal(t, messaging.TopicLinkCreated, pub.topic)
		require.Len(t, pub.messages, 1)
		assert.Contains(t, string(pub.messages[0].Payload), `"code":"promo"`)
	})

	t.Run("returns publisher error", func(t *testing.T) {
		pub := &recordingPublisher{publishErr: errors.New("closed")}
		publish := messaging.NewPublishFunc[messaging.LinkCreated](pub, messaging.TopicLinkCreated)

		assert.Error(t, publish(&messaging.LinkCreated{Code: "promo"}))
	})
}

func send(t *testing.T, sub *chanSubscriber, payload []byte) *message.Message {
	t.Helper()
	msg := message.NewMessage(uuid.NewString(), payload)
	sub.msgs <- msg
	return msg
}

func waitAck(t *testing.T, msg *message.Message) bool {
	t.Helper()
	select {
	case <-msg.Acked():
		return true
	case <-msg.Nacked():
		return false
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ack or nack")
		return false
	}
}

func TestConsumer(t *testing.T) {
	t.Run("acks handled events", func(t *testing.T) {
		sub := newChanSubscriber()
		var got *messaging.LinkCreated
		c := messaging.NewConsumer(sub, messaging.TopicLinkCreated,
			func(_ context.Context, ev *messaging.LinkCreated) error {
				got = ev
				return nil
			}, zap.NewNop())
		require.NoError(t, c.Start(context.Background()))
		defer c.Shutdown()

		payload, _ := json.Marshal(messaging.LinkCreated{Code: "abc1234"})
		assert.True(t, waitAck(t, send(t, sub, payload)))
		assert.Equal(t, "abc1234", got.Code)
	})

	t.Run("nacks on handler error", func(t *testing.T) {
		sub := newChanSubscriber()
		c := messaging.NewConsumer(sub, messaging.TopicLinkCreated,
			func(context.Context, *messaging.LinkCreated) error { return errors.New("busy") },
			zap.NewNop())
		require.NoError(t, c.Start(context.Background()))
		defer c.Shutdown()

		payload, _ := json.Marshal(messaging.LinkCreated{Code: "abc1234"})
		assert.False(t, waitAck(t, send(t, sub, payload)))
	})

	t.Run("acks malformed payloads without handling", func(t *testing.T) {
		sub := newChanSubscriber()
		called := false
		c := messaging.NewConsumer(sub, messaging.TopicLinkCreated,
			func(context.Context, *messaging.LinkCreated) error {
				called = true
				return nil
			}, zap.NewNop())
		require.NoError(t, c.Start(context.Background()))
		defer c.Shutdown()

		assert.True(t, waitAck(t, send(t, sub, []byte("not json"))))
		assert.False(t, called)
	})

	t.Run("subscribe failure", func(t *testing.T) {
		sub := &chanSubscriber{subscribeErr: errors.New("nope")}
		c := messaging.NewConsumer(sub, "t", func(context.Context, *messaging.LinkCreated) error { return nil }, zap.NewNop())
		assert.Error(t, c.Start(context.Background()))
		assert.NoError(t, c.Shutdown())
	})
}

func TestBus_RoundTrip(t *testing.T) {
	bus := messaging.NewBus(16, zap.NewNop())
	received := make(chan string, 1)

	group := messaging.NewConsumerGroup(bus, zap.NewNop())
	group.Add(messaging.NewConsumer(bus, messaging.TopicLinkCreated,
		func(_ context.Context, ev *messaging.LinkCreated) error {
			received <- ev.Code
			return nil
		}, zap.NewNop()))
	require.NoError(t, group.Start(context.Background()))

	publish := messaging.NewPublishFunc[messaging.LinkCreated](bus, messaging.TopicLinkCreated)
	require.NoError(t, publish(&messaging.LinkCreated{Code: "round1"}))

	select {
	case code := <-received:
		assert.Equal(t, "round1", code)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	assert.NoError(t, group.Shutdown())
}

type failingRunnable struct{}

func (failingRunnable) Start(context.Context) error { return errors.New("boom") }

func (failingRunnable) Shutdown() error { return nil }

type okRunnable struct{ started, stopped bool }

func (o *okRunnable) Start(context.Context) error {
	o.started = true
	return nil
}

func (o *okRunnable) Shutdown() error {
	o.stopped = true
	return nil
}

func TestConsumerGroup_StartFailureRollsBack(t *testing.T) {
	ok := &okRunnable{}
	group := messaging.NewConsumerGroup(newChanSubscriber(), zap.NewNop())
	group.Add(ok)
	group.Add(failingRunnable{})

	err := group.Start(context.Background())
	require.Error(t, err)
	assert.True(t, ok.started)
	assert.True(t, ok.stopped)
}

type erroringRunnable struct{ err error }

func (erroringRunnable) Start(context.Context) error { return nil }
func (r erroringRunnable) Shutdown() error { return r.err }

func TestConsumerGroup_ShutdownReportsEveryFailure(t *testing.T) {
	first, second := errors.New("first"), errors.New("second")
	group := messaging.NewConsumerGroup(newChanSubscriber(), zap.NewNop())
	group.Add(erroringRunnable{err: first})
	group.Add(erroringRunnable{err: second})
	require.NoError(t, group.Start(context.Background()))

	err := group.Shutdown()
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}

func TestNewPublishFunc_WrapsPublisherError(t *testing.T) {
	closed := errors.New("closed")
	publish := messaging.NewPublishFunc[messaging.LinkCreated](&recordingPublisher{publishErr: closed}, messaging.TopicLinkCreated)

	err := publish(&messaging.LinkCreated{Code: "promo"})
	assert.ErrorIs(t, err, closed)
	assert.Contains(t, err.Error(), messaging.TopicLinkCreated)
}
