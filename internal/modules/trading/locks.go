package trading

import (
	"hash/fnv"
	"sync"
)

// lockStripes is the number of mutex stripes. Collisions between distinct
// keys only cost unnecessary serialization, never correctness.
const lockStripes = 128

// keyLocks serializes work per (owner, symbol) key using striped mutexes.
// The stripe count is fixed, so memory stays bounded no matter how many
// distinct keys trade.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{}
}

// Lock acquires the stripe for the given key and returns its unlock function.
func (l *keyLocks) Lock(owner, symbol string) func() {
	h := fnv.New32a()
	h.Write([]byte(owner))
	h.Write([]byte{0})
	h.Write([]byte(symbol))

	stripe := &l.stripes[h.Sum32()%lockStripes]
	stripe.Lock()
	return stripe.Unlock
}
