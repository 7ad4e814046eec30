package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"

	"github.com/cuemby/flowmesh/pkg/model"
	bolt "go.etcd.io/bbolt"
)

// EventTriggerStore persists pending event triggers, keyed by a
// composite (scopeKey, eventKey) so that all triggers for a scope sort
// together and in creation order under a simple byte-wise cursor scan.
type EventTriggerStore struct {
	db *bolt.DB
}

func eventTriggerKeyBytes(scopeKey, eventKey model.Key) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(scopeKey))
	binary.BigEndian.PutUint64(buf[8:16], uint64(eventKey))
	return buf[:]
}

func scopePrefix(scopeKey model.Key) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(scopeKey))
	return buf[:]
}

// Put writes a new event trigger.
func (s *EventTriggerStore) Put(trigger *model.EventTrigger) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(trigger)
		if err != nil {
			return err
		}
		key := eventTriggerKeyBytes(trigger.ScopeKey, trigger.EventKey)
		return tx.Bucket(bucketEventTriggers).Put(key, data)
	})
}

// Delete removes a trigger once consumed.
func (s *EventTriggerStore) Delete(scopeKey, eventKey model.Key) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := eventTriggerKeyBytes(scopeKey, eventKey)
		return tx.Bucket(bucketEventTriggers).Delete(key)
	})
}

// ForScope returns every pending trigger for scopeKey, oldest first.
func (s *EventTriggerStore) ForScope(scopeKey model.Key) ([]*model.EventTrigger, error) {
	var triggers []*model.EventTrigger
	prefix := scopePrefix(scopeKey)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEventTriggers).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var trigger model.EventTrigger
			if err := json.Unmarshal(v, &trigger); err != nil {
				return err
			}
			triggers = append(triggers, &trigger)
		}
		return nil
	})
	return triggers, err
}

// All returns every pending event trigger across all scopes. Used by the
// FSM's Raft snapshot.
func (s *EventTriggerStore) All() ([]*model.EventTrigger, error) {
	var triggers []*model.EventTrigger
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEventTriggers).ForEach(func(k, v []byte) error {
			var trigger model.EventTrigger
			if err := json.Unmarshal(v, &trigger); err != nil {
				return err
			}
			triggers = append(triggers, &trigger)
			return nil
		})
	})
	return triggers, err
}

// Peek returns the oldest pending trigger for scopeKey targeting
// targetElementId, or nil if none is pending. This is the lookup used
// before activating a boundary event, event sub-process, or event-based
// gateway outgoing path: the oldest matching trigger wins and is
// consumed atomically by the caller via Delete in the same FSM Apply.
func (s *EventTriggerStore) Peek(scopeKey model.Key, targetElementId string) (*model.EventTrigger, error) {
	prefix := scopePrefix(scopeKey)
	var found *model.EventTrigger
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEventTriggers).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var trigger model.EventTrigger
			if err := json.Unmarshal(v, &trigger); err != nil {
				return err
			}
			if trigger.TargetElementId == targetElementId {
				found = &trigger
				return nil
			}
		}
		return nil
	})
	return found, err
}
