package core

import (
	"sync"

	"github.com/bpetrain/internal/utils"
)

// Encoder applies a merge table to byte chunks. Earlier merges win; among
// occurrences of the same merge the leftmost goes first, which reproduces
// replaying the table rule by rule. Safe for concurrent use.
type Encoder struct {
	lookup  *PairLookup
	maxRank int

	scratchPool sync.Pool
}

func NewEncoder(mt *MergeTable) *Encoder {
	return &Encoder{
		lookup:  NewPairLookup(mt),
		maxRank: max(mt.Len()-1, 0),
	}
}

// Encode turns one pre-tokenized chunk into token ids.
func (e *Encoder) Encode(chunk []byte) []uint32 {
	n := len(chunk)
	if n == 0 {
		return nil
	}

	scratch := e.acquireScratch(n)
	defer e.releaseScratch(scratch)

	tokens := scratch.tokens
	for i, b := range chunk {
		tokens[i] = uint32(b)
	}

	// doubly linked list over slots; a merge folds the right slot into the left
	prev := scratch.prev
	next := scratch.next
	live := scratch.live
	for i := range n {
		prev[i] = i - 1
		next[i] = i + 1
		live[i] = 0
	}
	next[n-1] = -1

	q := scratch.queue
	q.Reset()

	pushIfMergeable := func(i int) {
		if i == -1 {
			return
		}
		j := next[i]
		if j == -1 {
			return
		}

		a, b := tokens[i], tokens[j]
		if id, ok := e.lookup.Lookup(a, b); ok {
			q.Push(utils.MergeCand{
				Rank:       int(id - NumBytes),
				Pos:        i,
				LeftToken:  a,
				RightToken: b,
				VerL:       live[i],
				VerR:       live[j],
			})
		}
	}

	for i := 0; i != -1 && next[i] != -1; i = next[i] {
		pushIfMergeable(i)
	}

	for {
		c, ok := q.Pop()
		if !ok {
			break
		}

		i := c.Pos
		j := next[i]
		if j == -1 {
			continue
		}

		// either slot changed since the candidate was pushed
		if live[i] != c.VerL || live[j] != c.VerR {
			continue
		}
		if tokens[i] != c.LeftToken || tokens[j] != c.RightToken {
			continue
		}

		tokens[i] = uint32(c.Rank) + NumBytes

		nj := next[j]
		next[i] = nj
		if nj != -1 {
			prev[nj] = i
		}
		prev[j], next[j] = -1, -1

		live[i]++
		live[j]++

		pushIfMergeable(prev[i])
		pushIfMergeable(i)
	}

	// slot 0 is never folded away, merges always keep the left slot
	out := make([]uint32, 0, n)
	for i := 0; i != -1; i = next[i] {
		out = append(out, tokens[i])
	}

	return out
}

type encodeScratch struct {
	tokens []uint32
	prev   []int
	next   []int
	live   []uint32
	queue  *utils.BucketQueue
}

func (e *Encoder) acquireScratch(n int) *encodeScratch {
	sc, ok := e.scratchPool.Get().(*encodeScratch)
	if !ok {
		sc = &encodeScratch{queue: utils.NewBucketQueue(e.maxRank)}
	}
	sc.prepare(n)
	return sc
}

func (e *Encoder) releaseScratch(sc *encodeScratch) {
	e.scratchPool.Put(sc)
}

func (sc *encodeScratch) prepare(n int) {
	sc.tokens = ensureCapacity(sc.tokens, n)
	sc.prev = ensureCapacity(sc.prev, n)
	sc.next = ensureCapacity(sc.next, n)
	sc.live = ensureCapacity(sc.live, n)
}

func ensureCapacity[T any](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	return buf[:n]
}
