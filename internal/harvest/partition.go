package harvest

import (
	"fmt"
	"iter"
)

// The search API caps how many rows any single filter can page through.
// Partitioning the content-hash space by fixed-length hex prefix keeps each
// partition's match count under that ceiling so every record stays
// reachable. The prefixes of a given length cover the space completely and
// disjointly.

// Prefixes yields every zero-padded lowercase hex string of the given
// length, in increasing numeric order. The sequence is lazy and
// restartable; a non-positive length yields nothing.
func Prefixes(length int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if length <= 0 {
			return
		}
		count := 1
		for i := 0; i < length; i++ {
			count *= 16
		}
		for v := 0; v < count; v++ {
			if !yield(fmt.Sprintf("%0*x", length, v)) {
				return
			}
		}
	}
}
