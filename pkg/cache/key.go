package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// keyPrefix namespaces quiz cache keys in shared backends.
const keyPrefix = "quiz"

// DeriveKey maps a request identifier to a fixed-width cache key.
//
// The identifier is hashed verbatim: no trimming or re-normalization, so
// the derived key stays aligned with the repository's natural-key lookup,
// which uses the same string. xxhash is fast and uniform; cryptographic
// collision resistance is not required here.
//
// Format: quiz:%016x, e.g. quiz:2f8a90b1c44e77d3
func DeriveKey(identifier string) string {
	return fmt.Sprintf("%s:%016x", keyPrefix, xxhash.Sum64String(identifier))
}
