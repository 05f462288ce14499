package core

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// partitionsPerWorker oversplits the corpus so a worker that lands on long
// words does not hold up the join.
const partitionsPerWorker = 4

type partialCounts struct {
	counts map[Pair]int64
	where  map[Pair]PositionSet
}

// AggregatePairs computes, across all words, the weighted count of every
// adjacent pair and the set of word indices containing it. Words with fewer
// than two ids or a zero count are skipped.
//
// Words are split into contiguous partitions counted concurrently; each
// partition owns its result maps so no state is shared until the reduce,
// which only sums counts and unions sets. The result does not depend on the
// worker count or scheduling.
//
// Initial ids must be byte ids and counts must not be negative, otherwise an
// error naming an offending word is returned.
func AggregatePairs(words []Word, counts []int64, workers int) (map[Pair]int64, map[Pair]PositionSet, error) {
	if len(words) != len(counts) {
		return nil, nil, fmt.Errorf("%w: %d words, %d counts", ErrLengthMismatch, len(words), len(counts))
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	n := len(words)
	parts := min(workers*partitionsPerWorker, n)
	if parts == 0 {
		return map[Pair]int64{}, map[Pair]PositionSet{}, nil
	}
	size := (n + parts - 1) / parts

	partials := make([]partialCounts, parts)

	var g errgroup.Group
	g.SetLimit(workers)
	for p := range parts {
		lo := p * size
		hi := min(lo+size, n)
		g.Go(func() error {
			pc, err := countPartition(words, counts, lo, hi)
			if err != nil {
				return err
			}
			partials[p] = pc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	pairCounts := make(map[Pair]int64)
	where := make(map[Pair]PositionSet)
	for _, pc := range partials {
		for pair, c := range pc.counts {
			pairCounts[pair] += c
		}
		for pair, set := range pc.where {
			acc, ok := where[pair]
			if !ok {
				// partials are discarded after the reduce, adopt the set
				where[pair] = set
				continue
			}
			for idx := range set {
				acc.Add(idx)
			}
		}
	}

	return pairCounts, where, nil
}

func countPartition(words []Word, counts []int64, lo, hi int) (partialCounts, error) {
	pc := partialCounts{
		counts: make(map[Pair]int64),
		where:  make(map[Pair]PositionSet),
	}

	for i := lo; i < hi; i++ {
		c := counts[i]
		if c < 0 {
			return pc, fmt.Errorf("%w: word %d has count %d", ErrNegativeCount, i, c)
		}

		w := &words[i]
		for _, id := range w.ids {
			if id >= NumBytes {
				return pc, fmt.Errorf("%w: word %d contains id %d", ErrInvalidTokenID, i, id)
			}
		}

		if w.Len() < 2 || c == 0 {
			continue
		}

		for pair := range w.Pairs() {
			pc.counts[pair] += c
			set, ok := pc.where[pair]
			if !ok {
				set = make(PositionSet)
				pc.where[pair] = set
			}
			set.Add(i)
		}
	}

	return pc, nil
}
