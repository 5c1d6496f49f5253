package aggregate

import (
	"context"
	"math/bits"
)

// CheckCollisions replays inserting keys into a table of tableSize slots
// (rounded up to a power of two) and counts the keys that cannot take their
// home slot. Duplicate keys are counted once.
func CheckCollisions(keys []string, tableSize int, hash HashFunc) int {
	n := 1 << bits.Len(uint(max(tableSize, minSlots)-1))
	mask := uint64(n - 1)
	occupied := make([]bool, n)
	seen := make(map[string]struct{}, len(keys))

	collisions := 0
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if len(seen) > n {
			// Table is full; every further key collides.
			collisions++
			continue
		}

		i := hash([]byte(k)) & mask
		if occupied[i] {
			collisions++
			for occupied[i] {
				i = (i + 1) & mask
			}
		}
		occupied[i] = true
	}
	return collisions
}

// FindSeed searches seeds 0..maxSeed of family for one that places every key
// in its home slot. It stops early when ctx is done.
func FindSeed(ctx context.Context, keys []string, tableSize int, maxSeed uint64, family Family) (uint64, bool) {
	for seed := uint64(0); seed <= maxSeed; seed++ {
		if seed&1023 == 0 && ctx.Err() != nil {
			return 0, false
		}
		if CheckCollisions(keys, tableSize, family(seed)) == 0 {
			return seed, true
		}
		if seed == ^uint64(0) {
			break
		}
	}
	return 0, false
}
