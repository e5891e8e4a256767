package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/tokenfarm/internal/engine"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

func openTestStore(t *testing.T, path string) *BoltStore {
	t.Helper()
	s, err := OpenBolt(context.Background(), path, BoltOptions{Timeout: time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestBoltStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "farm.db")
	s := openTestStore(t, path)
	owner := types.NewAccount()

	_, err := s.LoadSnapshot(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	for _, block := range []uint64{5, 12, 9} {
		require.NoError(t, s.SaveSnapshot(ctx, &engine.Snapshot{Version: engine.SnapshotVersion, Block: block, Owner: owner}))
	}

	latest, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), latest.Block)
	assert.Equal(t, owner, latest.Owner)

	at, err := s.LoadSnapshotAt(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), at.Block)
	_, err = s.LoadSnapshotAt(ctx, 6)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	list, err := s.ListSnapshots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint64(12), list[0].Block)
	assert.Equal(t, uint64(9), list[1].Block)

	all, err := s.ListSnapshots(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.Close())
	reopened := openTestStore(t, path)
	defer reopened.Close()
	latest, err = reopened.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), latest.Block)
}

func TestBoltStore_LockedFileTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farm.db")
	s := openTestStore(t, path)
	defer s.Close()

	_, err := OpenBolt(context.Background(), path, BoltOptions{Timeout: 20 * time.Millisecond, Retries: 1}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, bbolt.ErrTimeout)
}

func TestBoltStore_HonoursContext(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "farm.db"))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SaveSnapshot(ctx, &engine.Snapshot{}), context.Canceled)
	_, err := s.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
