package partition

import "hash/fnv"

// Count is the fixed number of lock stripes used by the indexer.
// Distinct index keys may share a stripe; a stripe never spans more than one lock.
const Count = 64

// For returns the stripe for a given index key.
// Stable and deterministic: the same key always maps to the same stripe.
// Uses FNV-32a (stdlib, fast, well-distributed).
func For(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % Count)
}
