package core

import (
	"iter"
	"slices"
)

// Word is one distinct pre-tokenized span as a sequence of token ids. Its
// corpus frequency lives outside, aligned by index. Merges shrink the sequence
// in place; it never grows.
type Word struct {
	ids []uint32
}

// NewWord copies ids into a new word.
func NewWord(ids []uint32) Word {
	return Word{ids: slices.Clone(ids)}
}

// WordFromBytes maps every byte to its byte-level token id.
func WordFromBytes(b []byte) Word {
	ids := make([]uint32, len(b))
	for i, c := range b {
		ids[i] = uint32(c)
	}
	return Word{ids: ids}
}

// IDs returns the current ids. The slice aliases the word.
func (w *Word) IDs() []uint32 {
	return w.ids
}

func (w *Word) Len() int {
	return len(w.ids)
}

// Pairs yields every adjacent pair of the current ids, left to right.
func (w *Word) Pairs() iter.Seq[Pair] {
	return func(yield func(Pair) bool) {
		for i := 0; i+1 < len(w.ids); i++ {
			if !yield(Pair{w.ids[i], w.ids[i+1]}) {
				return
			}
		}
	}
}

// MergePair replaces every non-overlapping occurrence of p, scanning left to
// right, with newID and returns the pair count deltas for this word.
//
// For [x, a, b, y] becoming [x, newID, y] the deltas are (x,a) -1,
// (x,newID) +1, (a,b) -1, (b,y) -1 and (newID,y) +1. The neighbour deltas are
// only produced when the neighbour exists. After a match the scan resumes two
// ids later, so the freshly written newID is the left neighbour of the next
// occurrence.
func (w *Word) MergePair(p Pair, newID uint32) []PairDelta {
	n := len(w.ids)
	if n < 2 {
		return nil
	}

	a, b := p.A, p.B
	var deltas []PairDelta

	// compact in place: the write cursor j never passes the read cursor i
	j := 0
	for i := 0; i < n; {
		if i+1 < n && w.ids[i] == a && w.ids[i+1] == b {
			if j > 0 {
				x := w.ids[j-1]
				deltas = append(deltas,
					PairDelta{Pair{x, a}, -1},
					PairDelta{Pair{x, newID}, 1},
				)
			}
			deltas = append(deltas, PairDelta{p, -1})
			if i+2 < n {
				y := w.ids[i+2]
				deltas = append(deltas,
					PairDelta{Pair{b, y}, -1},
					PairDelta{Pair{newID, y}, 1},
				)
			}

			w.ids[j] = newID
			j++
			i += 2
			continue
		}

		w.ids[j] = w.ids[i]
		j++
		i++
	}

	w.ids = w.ids[:j]
	return deltas
}
