// Package partitionkey computes the deterministic mapping from a
// correlation-key byte string to a partition index.
package partitionkey

import (
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/cuemby/flowmesh/pkg/model"
)

// Hasher maps correlation keys to partitions. It is stateless and safe
// for concurrent use; every broker holding the same ordered partitionIds
// set computes the same target for the same key (spec invariant R1).
type Hasher struct{}

// New returns a Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Partition returns the partition in partitionIds that owns
// correlationKey. partitionIds must be non-empty. The hash is taken as a
// 32-bit signed value, absolute-valued before the modulo so the result
// always lies in [0, len(partitionIds)) — math.MinInt32 is special-cased
// because -math.MinInt32 overflows back to itself in two's complement.
func (h *Hasher) Partition(correlationKey []byte, partitionIds []model.PartitionId) model.PartitionId {
	sum := xxhash.Sum64(correlationKey)
	hash := int32(sum)
	return partitionIds[index(hash, len(partitionIds))]
}

// index maps a 32-bit signed hash onto [0, n) as described on Partition.
func index(hash int32, n int) int {
	if hash == math.MinInt32 {
		hash = 0
	}
	if hash < 0 {
		hash = -hash
	}
	return int(hash) % n
}
