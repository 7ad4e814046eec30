// Package store provides the bbolt-backed persistence layer for a single
// partition's state machine: workflows, element instances, event
// triggers, and deferred records. Each partition owns its own database
// file; nothing here is shared across partitions.
package store

import (
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketWorkflows       = []byte("workflows")
	bucketElementInstance = []byte("element_instances")
	bucketEventTriggers   = []byte("event_triggers")
	bucketDeferredRecords = []byte("deferred_records")
	bucketVariables       = []byte("variables")
	bucketKeys            = []byte("keys")
)

// Store is the bbolt-backed state for one partition.
type Store struct {
	db          *bolt.DB
	partitionId int32
	keys        *KeyGenerator
}

// Open opens (creating if absent) the partition database under dataDir.
func Open(dataDir string, partitionId int32) (*Store, error) {
	dbPath := filepath.Join(dataDir, fmt.Sprintf("partition-%d.db", partitionId))

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open partition store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketWorkflows, bucketElementInstance, bucketEventTriggers, bucketDeferredRecords, bucketVariables, bucketKeys} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, partitionId: partitionId}
	s.keys = newKeyGenerator(s)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Keys returns the monotonic key generator for this partition.
func (s *Store) Keys() *KeyGenerator {
	return s.keys
}

// Workflows returns the workflow definition store.
func (s *Store) Workflows() *WorkflowStore {
	return &WorkflowStore{db: s.db}
}

// ElementInstances returns the element instance store.
func (s *Store) ElementInstances() *ElementInstanceStore {
	return &ElementInstanceStore{db: s.db}
}

// EventTriggers returns the event trigger store.
func (s *Store) EventTriggers() *EventTriggerStore {
	return &EventTriggerStore{db: s.db}
}

// DeferredRecords returns the deferred record store.
func (s *Store) DeferredRecords() *DeferredRecordStore {
	return &DeferredRecordStore{db: s.db}
}

// Variables returns the temporary variables store.
func (s *Store) Variables() *VariablesStore {
	return &VariablesStore{db: s.db}
}
