package store

import (
	"encoding/binary"

	"github.com/cuemby/flowmesh/pkg/model"
	bolt "go.etcd.io/bbolt"
)

// VariablesStore persists the temporary variables payload attached to a
// newly minted element instance by an event trigger's consumption,
// until the instance's own activation picks them up.
type VariablesStore struct {
	db *bolt.DB
}

func variablesKeyBytes(elementInstanceKey model.Key) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(elementInstanceKey))
	return buf[:]
}

// SetTemporaryVariables stores payload as elementInstanceKey's temporary
// variables, replacing any previous value.
func (s *VariablesStore) SetTemporaryVariables(elementInstanceKey model.Key, payload []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVariables).Put(variablesKeyBytes(elementInstanceKey), payload)
	})
}

// TemporaryVariables returns elementInstanceKey's stored payload, or nil
// if none was ever set.
func (s *VariablesStore) TemporaryVariables(elementInstanceKey model.Key) ([]byte, error) {
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketVariables).Get(variablesKeyBytes(elementInstanceKey))
		if v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	return payload, err
}

// DeleteTemporaryVariables discards elementInstanceKey's stored payload.
func (s *VariablesStore) DeleteTemporaryVariables(elementInstanceKey model.Key) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVariables).Delete(variablesKeyBytes(elementInstanceKey))
	})
}
