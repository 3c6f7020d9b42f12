package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scmmishra/linkpulse/internal/models"
)

type fakeRecorder struct {
	mu    sync.Mutex
	codes []string
	block chan struct{}
	err   error
}

func (f *fakeRecorder) Record(_ context.Context, code string, _ models.Visitor) (*models.ClickEvent, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	return &models.ClickEvent{LinkCode: code}, f.err
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes)
}

func TestCollector_DrainOnShutdown(t *testing.T) {
	rec := &fakeRecorder{}
	c := NewCollector(rec, 1000, zap.NewNop())

	for range 5 {
		c.Push(RawClick{Code: "abc", Visitor: models.Visitor{At: time.Now()}})
	}
	c.Shutdown()

	assert.Equal(t, 5, rec.count())
}

func TestCollector_FlushWaitsForPending(t *testing.T) {
	rec := &fakeRecorder{}
	c := NewCollector(rec, 1000, zap.NewNop())
	t.Cleanup(c.Shutdown)

	for range 3 {
		c.Push(RawClick{Code: "abc"})
	}
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 3, rec.count())
}

func TestCollector_PreservesOrder(t *testing.T) {
	rec := &fakeRecorder{}
	c := NewCollector(rec, 100, zap.NewNop())

	for _, code := range []string{"a", "b", "c"} {
		c.Push(RawClick{Code: code})
	}
	c.Shutdown()

	assert.Equal(t, []string{"a", "b", "c"}, rec.codes)
}

func TestCollector_PushNonBlockingWhenFull(t *testing.T) {
	rec := &fakeRecorder{block: make(chan struct{})}
	c := NewCollector(rec, 1, zap.NewNop())

	done := make(chan struct{})
	go func() {
		// Worker holds one, buffer holds one, the rest are dropped.
		for range 10 {
			c.Push(RawClick{Code: "abc"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push blocked on a full buffer")
	}
	close(rec.block)
	c.Shutdown()

	assert.LessOrEqual(t, rec.count(), 2)
}

func TestCollector_RecorderErrorsDoNotStopWorker(t *testing.T) {
	rec := &fakeRecorder{err: models.ErrNotFound}
	c := NewCollector(rec, 10, zap.NewNop())

	c.Push(RawClick{Code: "gone"})
	c.Push(RawClick{Code: "gone"})
	require.NoError(t, c.Flush(context.Background()))
	c.Shutdown()

	assert.Equal(t, 2, rec.count())
}

func TestCollector_FlushAfterShutdownReturns(t *testing.T) {
	c := NewCollector(&fakeRecorder{}, 10, zap.NewNop())
	c.Shutdown()
	c.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, c.Flush(ctx))
}
