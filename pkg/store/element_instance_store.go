package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cuemby/flowmesh/pkg/model"
	bolt "go.etcd.io/bbolt"
)

// ElementInstanceStore persists the running element instances that make
// up the scope tree of an in-flight workflow instance (the instance
// root, its sub-processes, and their children).
type ElementInstanceStore struct {
	db *bolt.DB
}

func elementInstanceKeyBytes(key model.Key) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(key))
	return buf[:]
}

// Put writes or overwrites an element instance.
func (s *ElementInstanceStore) Put(ei *model.ElementInstance) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(ei)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketElementInstance).Put(elementInstanceKeyBytes(ei.Key), data)
	})
}

// Get fetches an element instance by key.
func (s *ElementInstanceStore) Get(key model.Key) (*model.ElementInstance, error) {
	var ei model.ElementInstance
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketElementInstance).Get(elementInstanceKeyBytes(key))
		if data == nil {
			return fmt.Errorf("element instance not found: %d", key)
		}
		return json.Unmarshal(data, &ei)
	})
	if err != nil {
		return nil, err
	}
	return &ei, nil
}

// Delete removes an element instance, e.g. once it terminates.
func (s *ElementInstanceStore) Delete(key model.Key) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketElementInstance).Delete(elementInstanceKeyBytes(key))
	})
}

// Children returns the direct children of scopeKey. Used to test the
// "interrupted scope with still-active children" invariant before an
// interrupting event may complete its scope.
func (s *ElementInstanceStore) Children(scopeKey model.Key) ([]*model.ElementInstance, error) {
	var children []*model.ElementInstance
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketElementInstance).ForEach(func(k, v []byte) error {
			var ei model.ElementInstance
			if err := json.Unmarshal(v, &ei); err != nil {
				return err
			}
			if ei.ParentKey == scopeKey {
				children = append(children, &ei)
			}
			return nil
		})
	})
	return children, err
}
