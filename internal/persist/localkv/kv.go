// Package localkv persists the session cache to an on-device bbolt store when
// no remote backend is configured. Entity metadata is serialized into one
// aggregate record per collection; each entity's media payload is stored
// under its own key so a single oversized payload can fail without taking the
// metadata write with it.
package localkv

import (
	"fmt"
	"sync/atomic"

	bolt "go.etcd.io/bbolt"

	"instagen/internal/persist"
)

// Bucket names. Metadata aggregates live in metaBucket keyed by collection;
// media payloads live in one bucket per collection keyed by entity id.
const (
	metaBucket = "meta"

	postBlobBucket  = "blob:posts"
	reelBlobBucket  = "blob:reels"
	storyBlobBucket = "blob:stories"
)

var blobBuckets = []string{postBlobBucket, reelBlobBucket, storyBlobBucket}

// KV wraps the bbolt database with quota accounting. The quota models the
// device store's finite capacity: a blob write that would exceed the budget
// fails with persist.ErrQuotaExceeded and writes nothing.
type KV struct {
	db         *bolt.DB
	quotaBytes int64
	usedBytes  atomic.Int64
}

// OpenKV opens (or creates) the device store at path. quotaBytes <= 0 means
// unlimited.
func OpenKV(path string, quotaBytes int64) (*KV, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}

	kv := &KV{db: db, quotaBytes: quotaBytes}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(metaBucket)); err != nil {
			return err
		}
		for _, name := range blobBuckets {
			b, err := tx.CreateBucketIfNotExists([]byte(name))
			if err != nil {
				return err
			}
			// Recount blob usage so the quota survives restarts.
			if err := b.ForEach(func(_, v []byte) error {
				kv.usedBytes.Add(int64(len(v)))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init device store: %w", err)
	}
	return kv, nil
}

func (kv *KV) Close() error {
	return kv.db.Close()
}

// PutMeta writes one collection's metadata aggregate.
func (kv *KV) PutMeta(collection string, data []byte) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(metaBucket)).Put([]byte(collection), data)
	})
}

// GetMeta reads one collection's metadata aggregate; nil when absent.
func (kv *KV) GetMeta(collection string) ([]byte, error) {
	var out []byte
	err := kv.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(metaBucket)).Get([]byte(collection)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

// PutBlob stores one entity's media payload under its id, enforcing the
// quota. Replacing an existing payload only charges the size delta.
func (kv *KV) PutBlob(bucket, entityID string, data []byte) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		var existing int64
		if v := b.Get([]byte(entityID)); v != nil {
			existing = int64(len(v))
		}
		projected := kv.usedBytes.Load() - existing + int64(len(data))
		if kv.quotaBytes > 0 && projected > kv.quotaBytes {
			return persist.ErrQuotaExceeded
		}
		if err := b.Put([]byte(entityID), data); err != nil {
			return err
		}
		kv.usedBytes.Store(projected)
		return nil
	})
}

// GetBlob returns one entity's media payload; nil when absent.
func (kv *KV) GetBlob(bucket, entityID string) ([]byte, error) {
	var out []byte
	err := kv.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucket)).Get([]byte(entityID)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

// DeleteBlob removes an entity's media payload and refunds its quota.
func (kv *KV) DeleteBlob(bucket, entityID string) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if v := b.Get([]byte(entityID)); v != nil {
			kv.usedBytes.Add(-int64(len(v)))
		}
		return b.Delete([]byte(entityID))
	})
}

// UsedBytes reports current blob usage, for diagnostics.
func (kv *KV) UsedBytes() int64 {
	return kv.usedBytes.Load()
}
