package core

import (
	"fmt"
	"iter"
	"slices"
)

// Merge is one learned rule: Pair becomes ID. Count is the pair frequency at
// the time it was merged; zero when the rule was loaded from a format that
// does not carry it.
type Merge struct {
	Pair  Pair
	ID    uint32
	Count int64
}

// MergeTable is the ordered training result. Ids are NumBytes, NumBytes+1, ...
// in insertion order and an encoder must replay merges in that order.
type MergeTable struct {
	merges []Merge
	index  map[Pair]uint32
}

func NewMergeTable() *MergeTable {
	return &MergeTable{index: make(map[Pair]uint32)}
}

// Add appends a rule for p and returns its id.
func (t *MergeTable) Add(p Pair, count int64) uint32 {
	id := uint32(NumBytes + len(t.merges))
	t.merges = append(t.merges, Merge{Pair: p, ID: id, Count: count})
	t.index[p] = id
	return id
}

// Append adds a rule read back from storage, checking that it is the next id
// in sequence and only refers to ids that already exist.
func (t *MergeTable) Append(m Merge) error {
	next := uint32(NumBytes + len(t.merges))
	if m.ID != next {
		return fmt.Errorf("merge %v: id %d out of sequence, want %d", m.Pair, m.ID, next)
	}
	if m.Pair.A >= next || m.Pair.B >= next {
		return fmt.Errorf("merge %v -> %d refers to an unknown id", m.Pair, m.ID)
	}
	if _, ok := t.index[m.Pair]; ok {
		return fmt.Errorf("merge %v repeated", m.Pair)
	}
	t.merges = append(t.merges, m)
	t.index[m.Pair] = m.ID
	return nil
}

func (t *MergeTable) Len() int {
	return len(t.merges)
}

// VocabSize is the byte vocabulary plus one id per merge.
func (t *MergeTable) VocabSize() int {
	return NumBytes + len(t.merges)
}

func (t *MergeTable) Lookup(p Pair) (uint32, bool) {
	id, ok := t.index[p]
	return id, ok
}

// At returns the rule that produced id.
func (t *MergeTable) At(id uint32) (Merge, bool) {
	if id < NumBytes || int(id-NumBytes) >= len(t.merges) {
		return Merge{}, false
	}
	return t.merges[id-NumBytes], true
}

// All yields pair and id in merge order.
func (t *MergeTable) All() iter.Seq2[Pair, uint32] {
	return func(yield func(Pair, uint32) bool) {
		for _, m := range t.merges {
			if !yield(m.Pair, m.ID) {
				return
			}
		}
	}
}

// Merges returns a copy of the rules in merge order.
func (t *MergeTable) Merges() []Merge {
	return slices.Clone(t.merges)
}

// TokenBytes returns the byte sequence of every id, indexed by id.
func (t *MergeTable) TokenBytes() [][]byte {
	out := make([][]byte, t.VocabSize())
	for i := range NumBytes {
		out[i] = []byte{byte(i)}
	}
	for _, m := range t.merges {
		left, right := out[m.Pair.A], out[m.Pair.B]
		b := make([]byte, 0, len(left)+len(right))
		b = append(b, left...)
		out[m.ID] = append(b, right...)
	}
	return out
}
