package partitionkey

import (
	"math"
	"testing"

	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/stretchr/testify/require"
)

func partitions(ids ...int32) []model.PartitionId {
	out := make([]model.PartitionId, len(ids))
	for i, id := range ids {
		out[i] = model.PartitionId(id)
	}
	return out
}

func TestPartitionDeterministic(t *testing.T) {
	h1, h2 := New(), New()
	ids := partitions(1, 3, 5)
	key := []byte("order-42")

	require.Equal(t, h1.Partition(key, ids), h2.Partition(key, ids))
}

func TestPartitionInRange(t *testing.T) {
	h := New()
	ids := partitions(1, 3, 5, 7, 9)

	for _, key := range [][]byte{[]byte("a"), []byte("order-42"), {}, []byte("z")} {
		p := h.Partition(key, ids)
		found := false
		for _, id := range ids {
			if id == p {
				found = true
			}
		}
		require.True(t, found, "partition %d not in %v for key %q", p, ids, key)
	}
}

func TestPartitionMinInt32Safe(t *testing.T) {
	// Regression: abs(math.MinInt32) overflows back to itself in two's
	// complement; the index computation must still land in range.
	ids := partitions(1, 2, 3)
	idx := index(math.MinInt32, len(ids))
	require.GreaterOrEqual(t, idx, 0)
	require.Less(t, idx, len(ids))

	// math.MinInt32 is special cased to 0 directly; assert that path.
	require.Equal(t, 0, idx)
}
