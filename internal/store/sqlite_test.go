package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmmishra/linkpulse/internal/store"
)

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "links.db")

	s, err := store.OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.InsertLink(ctx, newLink("keep", "alice", time.Now())))
	_, err = s.AppendClick(ctx, click("keep", "v1", time.Now(), "Kenya"), 0)
	require.NoError(t, err)
	require.NoError(t, s.DeleteLink(ctx, "keep", "alice"))
	require.NoError(t, s.InsertLink(ctx, newLink("stay", "alice", time.Now())))
	require.NoError(t, s.Close())

	s, err = store.OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetLink(ctx, "stay")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerID)

	codes, err := s.IssuedCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep", "stay"}, codes)
}

func TestSQLiteStore_PingAfterClose(t *testing.T) {
	s, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, "sqlite", s.Name())

	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}

func TestOpenSQLite_BadPath(t *testing.T) {
	_, err := store.OpenSQLite(filepath.Join(t.TempDir(), "missing", "dir", "links.db"))
	assert.Error(t, err)
}
