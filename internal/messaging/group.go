package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

type Runnable interface {
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup starts and stops the bus consumers together and owns the
// subscriber they share.
type ConsumerGroup struct {
	sub     message.Subscriber
	members []Runnable
	logger  *zap.Logger
}

func NewConsumerGroup(sub message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{sub: sub, logger: logger}
}

func (g *ConsumerGroup) Add(r Runnable) {
	g.members = append(g.members, r)
}

// Start is all or nothing: if one member fails, the members already
// running are stopped in reverse order.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, m := range g.members {
		if err := m.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = g.members[j].Shutdown()
			}
			return fmt.Errorf("start consumer %d: %w", i, err)
		}
	}
	g.logger.Info("consumers running", zap.Int("count", len(g.members)))
	return nil
}

// Shutdown stops every member, then closes the subscriber.
func (g *ConsumerGroup) Shutdown() error {
	var errs []error
	for _, m := range g.members {
		errs = append(errs, m.Shutdown())
	}
	errs = append(errs, g.sub.Close())
	g.logger.Info("consumers stopped")
	return errors.Join(errs...)
}
