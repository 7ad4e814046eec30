package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"

	"github.com/cuemby/flowmesh/pkg/model"
	bolt "go.etcd.io/bbolt"
)

// DeferredRecordStore persists records whose processing is deferred
// until their owning scope resolves (e.g. an activation deferred behind
// a still-interrupting sibling). Keyed by (ownerScopeKey, childInstanceKey)
// so every deferred record for a scope can be swept in one cursor scan,
// which is how the garbage collector in pkg/reconciler finds records to
// discard once their owner terminates.
type DeferredRecordStore struct {
	db *bolt.DB
}

func deferredRecordKeyBytes(ownerScopeKey, childInstanceKey model.Key) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(ownerScopeKey))
	binary.BigEndian.PutUint64(buf[8:16], uint64(childInstanceKey))
	return buf[:]
}

// Put writes a deferred record.
func (s *DeferredRecordStore) Put(rec *model.DeferredRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		key := deferredRecordKeyBytes(rec.OwnerScopeKey, rec.ChildInstanceKey)
		return tx.Bucket(bucketDeferredRecords).Put(key, data)
	})
}

// Delete removes a deferred record once it is replayed or discarded.
func (s *DeferredRecordStore) Delete(ownerScopeKey, childInstanceKey model.Key) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := deferredRecordKeyBytes(ownerScopeKey, childInstanceKey)
		return tx.Bucket(bucketDeferredRecords).Delete(key)
	})
}

// ForOwner returns every deferred record owned by scopeKey.
func (s *DeferredRecordStore) ForOwner(scopeKey model.Key) ([]*model.DeferredRecord, error) {
	var records []*model.DeferredRecord
	prefix := scopePrefix(scopeKey)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketDeferredRecords).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec model.DeferredRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	return records, err
}

// All returns every deferred record in the store. Used by the
// reconciler's sweep to find records whose owner has since terminated.
func (s *DeferredRecordStore) All() ([]*model.DeferredRecord, error) {
	var records []*model.DeferredRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDeferredRecords).ForEach(func(k, v []byte) error {
			var rec model.DeferredRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
			return nil
		})
	})
	return records, err
}
