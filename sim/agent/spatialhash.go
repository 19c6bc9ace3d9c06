package agent

import (
	"github.com/segmentio/fasthash/fnv1a"

	"github.com/retailsim/simcore/sim/world"
)

// bucketSize is the spatial-hash cell edge length, in meters; chosen to
// comfortably exceed PersonalSpaceRadius + AgentRadius so a neighbor
// within avoidance range always falls in one of the 3x3 buckets queried
// around the agent.
const bucketSize = 2.0

// NeighborIndex buckets Neighbors by grid cell for avoidance(), replacing
// the O(n) full-list scan with a handful of bucket lookups. Grounded on
// other_examples' Lallassu-snejk Pedestrian/PedestrianSystem's spatial
// avoidance buckets, with the bucket key hashed via fasthash/fnv1a so the
// table is a plain map rather than a pre-sized 2D array sized to the
// venue's footprint.
type NeighborIndex struct {
	buckets map[uint64][]Neighbor
}

// NewNeighborIndex buckets neighbors by position.
func NewNeighborIndex(neighbors []Neighbor) *NeighborIndex {
	idx := &NeighborIndex{buckets: make(map[uint64][]Neighbor, len(neighbors))}
	for _, n := range neighbors {
		key := bucketKey(n.Pos)
		idx.buckets[key] = append(idx.buckets[key], n)
	}
	return idx
}

func bucketKey(p world.Vector2) uint64 {
	gx := uint32(int32(p.X() / bucketSize))
	gz := uint32(int32(p.Z() / bucketSize))
	return fnv1a.HashUint64(uint64(gx)<<32 | uint64(gz))
}

// Near returns every neighbor in the 3x3 block of buckets centered on p.
func (idx *NeighborIndex) Near(p world.Vector2) []Neighbor {
	if idx == nil {
		return nil
	}
	cx := int32(p.X() / bucketSize)
	cz := int32(p.Z() / bucketSize)
	var out []Neighbor
	for dz := int32(-1); dz <= 1; dz++ {
		for dx := int32(-1); dx <= 1; dx++ {
			key := fnv1a.HashUint64(uint64(uint32(cx+dx))<<32 | uint64(uint32(cz+dz)))
			out = append(out, idx.buckets[key]...)
		}
	}
	return out
}
