package assignment

import (
	"crypto/sha256"
	"math/big"
)

const bucketCount = 100

// bucketFor reduces visitor+experiment identity to a bucket in [0,99]. The
// digest is seeded only by the two identifiers, so the result is stable
// across processes and restarts without consulting the store.
func bucketFor(visitorID, experimentID string) int {
	digest := sha256.Sum256([]byte(visitorID + ":" + experimentID))
	value := new(big.Int).SetBytes(digest[:])
	return int(new(big.Int).Mod(value, big.NewInt(bucketCount)).Int64())
}

// pickVariant walks variants in declared order, accumulating each variant's
// split percentage; the first variant whose cumulative total exceeds the
// bucket wins. Variant i owns [cumulative_before_i, cumulative_before_i +
// split_i), which covers [0,99] exactly when the split sums to 100. The last
// variant is the fallback if the walk exhausts without covering the bucket.
func pickVariant(variants []string, trafficSplit map[string]int, bucket int) string {
	cumulative := 0
	for _, variant := range variants {
		cumulative += trafficSplit[variant]
		if bucket < cumulative {
			return variant
		}
	}
	return variants[len(variants)-1]
}
