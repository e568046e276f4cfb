package locks

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 64

// Keyed provides mutual exclusion scoped to a string key. Keys are hashed
// onto a fixed set of shards so the lock table never grows with the key
// space. Two distinct keys may share a shard; that costs contention, not
// correctness.
type Keyed struct {
	shards []sync.Mutex
}

// NewKeyed builds a keyed mutex with the given shard count (0 picks the
// default).
func NewKeyed(shards int) *Keyed {
	if shards <= 0 {
		shards = defaultShards
	}
	return &Keyed{shards: make([]sync.Mutex, shards)}
}

// Lock acquires the shard owning key.
func (k *Keyed) Lock(key string) {
	k.shards[k.index(key)].Lock()
}

// Unlock releases the shard owning key.
func (k *Keyed) Unlock(key string) {
	k.shards[k.index(key)].Unlock()
}

func (k *Keyed) index(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % uint32(len(k.shards))
}
