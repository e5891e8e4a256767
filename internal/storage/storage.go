// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/tokenfarm/internal/engine"
)

// ErrNoSnapshot is returned when the store holds no state yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotInfo describes one stored snapshot.
type SnapshotInfo struct {
	Block uint64
	Size  int
}

// Storage persists engine snapshots. Every save is kept, keyed by block
// height; a later save at the same height replaces the earlier one.
type Storage interface {
	SaveSnapshot(ctx context.Context, snap *engine.Snapshot) error
	// LoadSnapshot returns the most recently saved snapshot.
	LoadSnapshot(ctx context.Context) (*engine.Snapshot, error)
	LoadSnapshotAt(ctx context.Context, block uint64) (*engine.Snapshot, error)
	// ListSnapshots returns up to limit snapshots, newest first.
	ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error)
	Close() error
}
