package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmmishra/linkpulse/internal/models"
	"github.com/scmmishra/linkpulse/internal/store"
)

func TestMemoryStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.InsertLink(ctx, newLink("abc", "alice", time.Now())))

	s.Reset()

	_, err := s.GetLink(ctx, "abc")
	assert.ErrorIs(t, err, models.ErrNotFound)
	issued, err := s.CodeIssued(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, issued)
	assert.NoError(t, s.InsertLink(ctx, newLink("abc", "alice", time.Now())))
}

func TestMemoryStore_InsertKeepsCallerCopy(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	l := newLink("abc", "alice", time.Now())
	require.NoError(t, s.InsertLink(ctx, l))

	l.TargetURL = "https://changed.example"

	got, err := s.GetLink(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/abc", got.TargetURL)
}

func TestMemoryStore_PingAndName(t *testing.T) {
	s := store.NewMemoryStore()
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, "memory", s.Name())
	assert.NoError(t, s.Close())
}
