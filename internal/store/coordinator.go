package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scmmishra/linkpulse/internal/models"
)

const (
	ModeDurable = "durable"
	ModeMemory  = "memory"

	DefaultOpTimeout = 5 * time.Second
	pingTimeout      = 2 * time.Second
)

// Coordinator routes every storage call to the durable backend while it is
// healthy and to the in-memory one otherwise. Degrading is one-way for the
// life of the process; nothing written to memory is copied back.
type Coordinator struct {
	mu       sync.RWMutex
	durable  Backend
	memory   *MemoryStore
	degraded bool
	reason   string

	opTimeout time.Duration
	logger    *zap.Logger
}

// NewCoordinator opens the durable backend via open and verifies it with
// Ping. A nil open, an open error or a failed ping leaves the coordinator
// serving from memory; only the last two count as degraded.
func NewCoordinator(ctx context.Context, open func() (Backend, error), memory *MemoryStore, logger *zap.Logger) *Coordinator {
	if memory == nil {
		memory = NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{memory: memory, opTimeout: DefaultOpTimeout, logger: logger}
	if open == nil {
		logger.Info("storage running in memory only")
		return c
	}

	b, err := open()
	if err != nil {
		c.markDegraded(fmt.Sprintf("open: %v", err))
		return c
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := b.Ping(pctx); err != nil {
		b.Close()
		c.markDegraded(fmt.Sprintf("ping: %v", err))
		return c
	}
	c.durable = b
	logger.Info("storage connected", zap.String("backend", b.Name()))
	return c
}

// Mode reports which backend currently serves requests.
func (c *Coordinator) Mode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.durable != nil && !c.degraded {
		return ModeDurable
	}
	return ModeMemory
}

// Degraded reports whether a durable backend failed and memory took over.
func (c *Coordinator) Degraded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.degraded
}

func (c *Coordinator) Reason() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reason
}

func (c *Coordinator) Name() string {
	b, _ := c.current()
	return b.Name()
}

func (c *Coordinator) Ping(ctx context.Context) error {
	b, _ := c.current()
	return b.Ping(ctx)
}

func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.durable == nil {
		return nil
	}
	err := c.durable.Close()
	c.durable = nil
	return err
}

func (c *Coordinator) current() (Backend, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.durable != nil && !c.degraded {
		return c.durable, true
	}
	return c.memory, false
}

func (c *Coordinator) markDegraded(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.degraded {
		return
	}
	c.degraded = true
	c.reason = reason
	c.logger.Warn("durable storage unavailable, falling back to memory",
		zap.String("reason", reason))
}

// isDomainError reports errors that describe the request rather than the
// backend's health.
func isDomainError(err error) bool {
	return errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrDuplicateCode) ||
		errors.Is(err, context.Canceled)
}

// run executes fn against the active backend. An infrastructure failure on
// the durable backend that is confirmed by a failed ping degrades the
// coordinator and retries fn on memory.
func run[T any](ctx context.Context, c *Coordinator, op string, fn func(context.Context, Backend) (T, error)) (T, error) {
	b, durable := c.current()
	if !durable {
		return fn(ctx, b)
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	v, err := fn(opCtx, b)
	cancel()
	if err == nil || isDomainError(err) || ctx.Err() != nil {
		return v, err
	}

	pctx, pcancel := context.WithTimeout(context.Background(), pingTimeout)
	perr := b.Ping(pctx)
	pcancel()
	if perr == nil {
		return v, err
	}

	c.markDegraded(fmt.Sprintf("%s: %v", op, err))
	return fn(ctx, c.memory)
}

func (c *Coordinator) InsertLink(ctx context.Context, l *models.Link) error {
	_, err := run(ctx, c, "insert link", func(ctx context.Context, b Backend) (struct{}, error) {
		return struct{}{}, b.InsertLink(ctx, l)
	})
	return err
}

func (c *Coordinator) GetLink(ctx context.Context, code string) (*models.Link, error) {
	return run(ctx, c, "get link", func(ctx context.Context, b Backend) (*models.Link, error) {
		return b.GetLink(ctx, code)
	})
}

func (c *Coordinator) ListLinksByOwner(ctx context.Context, ownerID string) ([]*models.Link, error) {
	return run(ctx, c, "list links", func(ctx context.Context, b Backend) ([]*models.Link, error) {
		return b.ListLinksByOwner(ctx, ownerID)
	})
}

func (c *Coordinator) DeleteLink(ctx context.Context, code, ownerID string) error {
	_, err := run(ctx, c, "delete link", func(ctx context.Context, b Backend) (struct{}, error) {
		return struct{}{}, b.DeleteLink(ctx, code, ownerID)
	})
	return err
}

func (c *Coordinator) DeactivateLink(ctx context.Context, code string) (bool, error) {
	return run(ctx, c, "deactivate link", func(ctx context.Context, b Backend) (bool, error) {
		return b.DeactivateLink(ctx, code)
	})
}

func (c *Coordinator) SetQRCode(ctx context.Context, code string, png []byte) error {
	_, err := run(ctx, c, "set qr code", func(ctx context.Context, b Backend) (struct{}, error) {
		return struct{}{}, b.SetQRCode(ctx, code, png)
	})
	return err
}

func (c *Coordinator) CodeIssued(ctx context.Context, code string) (bool, error) {
	return run(ctx, c, "check code", func(ctx context.Context, b Backend) (bool, error) {
		return b.CodeIssued(ctx, code)
	})
}

func (c *Coordinator) IssuedCodes(ctx context.Context) ([]string, error) {
	return run(ctx, c, "issued codes", func(ctx context.Context, b Backend) ([]string, error) {
		return b.IssuedCodes(ctx)
	})
}

func (c *Coordinator) AppendClick(ctx context.Context, ev *models.ClickEvent, retention int) (*models.Link, error) {
	return run(ctx, c, "append click", func(ctx context.Context, b Backend) (*models.Link, error) {
		return b.AppendClick(ctx, ev, retention)
	})
}

func (c *Coordinator) Tallies(ctx context.Context, code string) (models.Tallies, error) {
	return run(ctx, c, "tallies", func(ctx context.Context, b Backend) (models.Tallies, error) {
		return b.Tallies(ctx, code)
	})
}

func (c *Coordinator) RecentClicks(ctx context.Context, code string, limit int) ([]models.ClickEvent, error) {
	return run(ctx, c, "recent clicks", func(ctx context.Context, b Backend) ([]models.ClickEvent, error) {
		return b.RecentClicks(ctx, code, limit)
	})
}
