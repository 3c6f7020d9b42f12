package analytics

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/scmmishra/linkpulse/internal/models"
)

const recordTimeout = 5 * time.Second

type RawClick struct {
	Code    string
	Visitor models.Visitor
}

// Recorder persists one enriched click. ledger.Ledger satisfies it.
type Recorder interface {
	Record(ctx context.Context, code string, v models.Visitor) (*models.ClickEvent, error)
}

type item struct {
	click   RawClick
	flushed chan struct{}
}

// Collector decouples visits from click recording. A single worker drains
// the buffer in order.
type Collector struct {
	ch       chan item
	stop     chan struct{}
	done     chan struct{}
	recorder Recorder
	logger   *zap.Logger
}

func NewCollector(recorder Recorder, bufferSize int, logger *zap.Logger) *Collector {
	c := &Collector{
		ch:       make(chan item, bufferSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		recorder: recorder,
		logger:   logger,
	}
	go c.run()
	return c
}

// Push sends a click event non-blocking. Drops the event if buffer is full.
func (c *Collector) Push(click RawClick) {
	select {
	case c.ch <- item{click: click}:
	default:
		c.logger.Warn("click buffer full, dropping event", zap.String("code", click.Code))
	}
}

// Flush blocks until every click pushed before the call has been recorded.
func (c *Collector) Flush(ctx context.Context) error {
	marker := make(chan struct{})
	select {
	case c.ch <- item{flushed: marker}:
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-marker:
		return nil
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown records remaining events and returns.
func (c *Collector) Shutdown() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	<-c.done
}

func (c *Collector) run() {
	defer close(c.done)
	for {
		select {
		case it := <-c.ch:
			c.handle(it)
		case <-c.stop:
			c.drain()
			return
		}
	}
}

func (c *Collector) drain() {
	n := 0
	for {
		select {
		case it := <-c.ch:
			c.handle(it)
			n++
		default:
			if n > 0 {
				c.logger.Info("analytics: drained clicks on shutdown", zap.Int("count", n))
			}
			return
		}
	}
}

func (c *Collector) handle(it item) {
	if it.flushed != nil {
		close(it.flushed)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if _, err := c.recorder.Record(ctx, it.click.Code, it.click.Visitor); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.logger.Debug("click for deleted link dropped", zap.String("code", it.click.Code))
			return
		}
		c.logger.Error("record click", zap.String("code", it.click.Code), zap.Error(err))
	}
}
