package core

import (
	"cmp"
	"fmt"
)

// NumBytes is the size of the pre-existing byte vocabulary. Ids below it are
// raw byte values, merges are assigned ids from NumBytes upward.
const NumBytes = 256

// Pair is two adjacent token ids, the unit of merge selection.
type Pair struct {
	A uint32
	B uint32
}

// Compare orders pairs lexicographically by (A, B).
func (p Pair) Compare(o Pair) int {
	if c := cmp.Compare(p.A, o.A); c != 0 {
		return c
	}
	return cmp.Compare(p.B, o.B)
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d,%d)", p.A, p.B)
}

// packPair folds a pair into a single map key.
func packPair(a, b uint32) uint64 {
	return uint64(a)<<32 | uint64(b)
}

// PairDelta is a change in the occurrence count of Pair within one word.
type PairDelta struct {
	Pair  Pair
	Delta int32
}

// PositionSet is a set of word indices.
type PositionSet map[int]struct{}

func (s PositionSet) Add(i int) {
	s[i] = struct{}{}
}

func (s PositionSet) Has(i int) bool {
	_, ok := s[i]
	return ok
}
