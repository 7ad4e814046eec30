package store

import (
	"encoding/binary"

	"github.com/cuemby/flowmesh/pkg/model"
	bolt "go.etcd.io/bbolt"
)

var keyCounterKey = []byte("next")

// KeyGenerator hands out a partition-monotonic sequence of keys for new
// workflows, element instances, and event triggers. It is backed by
// bbolt's own NextSequence counter on the keys bucket so allocation is
// part of the same transaction as the write it backs.
type KeyGenerator struct {
	db *bolt.DB
}

func newKeyGenerator(s *Store) *KeyGenerator {
	return &KeyGenerator{db: s.db}
}

// Next allocates the next key, persisting the counter in the same
// transaction.
func (g *KeyGenerator) Next() (model.Key, error) {
	var next uint64
	err := g.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKeys)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		next = seq
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], seq)
		return b.Put(keyCounterKey, buf[:])
	})
	if err != nil {
		return 0, err
	}
	return model.Key(next), nil
}
