// internal/storage/bolt.go
package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/engine"
)

var (
	bucketSnapshots = []byte("snapshots")
	bucketMeta      = []byte("meta")
	keyLatest       = []byte("latest")
)

// BoltOptions tune how the database file is opened.
type BoltOptions struct {
	// Timeout bounds each attempt to take the file lock, which another
	// process (a running dashboard, say) may hold.
	Timeout time.Duration
	// Retries is how many more attempts follow a timed-out one.
	Retries int
}

// BoltStore keeps snapshots in a bbolt file: one JSON document per block
// height plus a pointer to the latest save.
type BoltStore struct {
	db     *bbolt.DB
	logger *zap.Logger
}

var _ Storage = (*BoltStore)(nil)

// OpenBolt opens or creates the database at path, retrying with exponential
// backoff while the file is locked.
func OpenBolt(ctx context.Context, path string, opts BoltOptions, logger *zap.Logger) (*BoltStore, error) {
	logger = logger.Named("storage")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	operation := func() (*bbolt.DB, error) {
		db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: opts.Timeout})
		if err == nil {
			return db, nil
		}
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}
	notify := func(err error, d time.Duration) {
		logger.Info("Database busy, retrying", zap.String("path", path), zap.Error(err), zap.Duration("backoff", d))
	}

	db, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(opts.Retries+1)),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSnapshots, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}
	return &BoltStore{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error { return s.db.Close() }

func blockKey(block uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, block)
	return k
}

// SaveSnapshot stores snap under its block height and marks it latest.
func (s *BoltStore) SaveSnapshot(ctx context.Context, snap *engine.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("storage: encode snapshot: %w", err)
	}
	key := blockKey(snap.Block)
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketSnapshots).Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyLatest, key)
	})
	if err != nil {
		return fmt.Errorf("storage: save snapshot: %w", err)
	}
	s.logger.Debug("Snapshot saved", zap.Uint64("block", snap.Block), zap.Int("bytes", len(data)))
	return nil
}

// LoadSnapshot returns the latest snapshot or ErrNoSnapshot.
func (s *BoltStore) LoadSnapshot(ctx context.Context) (*engine.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var snap *engine.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(bucketMeta).Get(keyLatest)
		if key == nil {
			return ErrNoSnapshot
		}
		var err error
		snap, err = decode(tx.Bucket(bucketSnapshots).Get(key))
		return err
	})
	return snap, err
}

// LoadSnapshotAt returns the snapshot saved at block or ErrNoSnapshot.
func (s *BoltStore) LoadSnapshotAt(ctx context.Context, block uint64) (*engine.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var snap *engine.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		snap, err = decode(tx.Bucket(bucketSnapshots).Get(blockKey(block)))
		return err
	})
	return snap, err
}

// ListSnapshots returns up to limit snapshots, newest first. A limit of
// zero or less lists all of them.
func (s *BoltStore) ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []SnapshotInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketSnapshots).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, SnapshotInfo{Block: binary.BigEndian.Uint64(k), Size: len(v)})
		}
		return nil
	})
	return out, err
}

func decode(data []byte) (*engine.Snapshot, error) {
	if data == nil {
		return nil, ErrNoSnapshot
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("storage: decode snapshot: %w", err)
	}
	return &snap, nil
}
