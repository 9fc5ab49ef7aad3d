// Package checkpoint records completed indexing batches in a local bbolt file
// so an interrupted run can resume without re-embedding finished batches.
package checkpoint

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketRuns = []byte("runs")

// Store is a bbolt-backed checkpoint store. Each run fingerprint owns a nested
// bucket keyed by batch index.
type Store struct {
	db *bbolt.DB
}

type batchMark struct {
	Docs        int       `json:"docs"`
	CompletedAt time.Time `json:"completed_at"`
}

// Open opens (or creates) the checkpoint file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open checkpoint %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init checkpoint %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Completed returns the indexes of batches recorded done for the run.
func (s *Store) Completed(_ context.Context, run string) (map[int]bool, error) {
	done := make(map[int]bool)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRuns).Bucket([]byte(run))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			if len(k) != 8 {
				return fmt.Errorf("corrupt batch key %x", k)
			}
			done[int(binary.BigEndian.Uint64(k))] = true
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", run, err)
	}
	return done, nil
}

// MarkDone records batch index as completed for the run.
func (s *Store) MarkDone(_ context.Context, run string, index, docs int) error {
	data, err := json.Marshal(batchMark{Docs: docs, CompletedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketRuns).CreateBucketIfNotExists([]byte(run))
		if err != nil {
			return err
		}
		return b.Put(batchKey(index), data)
	})
	if err != nil {
		return fmt.Errorf("write checkpoint %s/%d: %w", run, index, err)
	}
	return nil
}

// Reset forgets every batch of the run.
func (s *Store) Reset(_ context.Context, run string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketRuns).DeleteBucket([]byte(run))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("reset checkpoint %s: %w", run, err)
	}
	return nil
}

// batchKey is big-endian so ForEach walks batches in order.
func batchKey(index int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(index))
	return k
}
