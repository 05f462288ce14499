package core

import (
	"fmt"
	"log/slog"

	"github.com/bpetrain/internal/logutil"
	"github.com/bpetrain/internal/utils"
)

// Trainer learns a merge table from a corpus of words.
type Trainer struct {
	// Workers bounds the parallelism of the initial pair count.
	// Zero means GOMAXPROCS.
	Workers int
}

// trainState is everything one Train call mutates. It is owned by that call
// and dropped when it returns, except for the merge table.
type trainState struct {
	words      []Word
	counts     []int64
	pairCounts map[Pair]int64
	queue      *utils.MergeHeap[*MergeJob]
	merges     *MergeTable
}

// Train greedily merges the most frequent adjacent pair until the vocabulary
// holds vocabSize ids or no pair is left. words are consumed: they are merged
// in place and left in their final state. counts is only read.
//
// The returned table may hold fewer than vocabSize-256 merges when the corpus
// runs out of pairs first; that is not an error.
func (t *Trainer) Train(words []Word, counts []int64, vocabSize uint32) (*MergeTable, error) {
	if vocabSize < NumBytes {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVocabSize, vocabSize)
	}

	numMerges := vocabSize - NumBytes
	slog.Info("starting bpe training", "merges", numMerges)

	slog.Info("computing initial pair counts", "words", len(words))
	pairCounts, where, err := AggregatePairs(words, counts, t.Workers)
	if err != nil {
		return nil, err
	}

	slog.Info("building merge queue", "pairs", len(pairCounts))
	st := &trainState{
		words:      words,
		counts:     counts,
		pairCounts: pairCounts,
		queue:      newJobQueue(),
		merges:     NewMergeTable(),
	}
	st.seed(where)

	done := st.run(numMerges)
	if done < numMerges {
		slog.Info("ran out of merge candidates", "merges", done, "requested", numMerges)
	}

	slog.Info("finished training", "merges", done)
	return st.merges, nil
}

func (st *trainState) seed(where map[Pair]PositionSet) {
	jobs := make([]*MergeJob, 0, len(where))
	for pair, pos := range where {
		if c := st.pairCounts[pair]; c > 0 {
			jobs = append(jobs, &MergeJob{Pair: pair, Count: c, Pos: pos})
		}
	}
	st.queue.PushAll(jobs...)
}

// run executes the merge loop and returns the number of merges applied.
func (st *trainState) run(numMerges uint32) uint32 {
	var done uint32
	var lastPercent uint64
	for done < numMerges {
		top, ok := st.queue.Pop()
		if !ok {
			break
		}

		// the queue is advisory, pairCounts is authoritative
		live := st.pairCounts[top.Pair]
		if top.Count != live {
			logutil.Trace("refreshing stale candidate", "pair", top.Pair, "queued", top.Count, "live", live)
			top.Count = live
			if live > 0 {
				st.queue.Push(top)
			}
			continue
		}
		if top.Count <= 0 {
			break
		}

		newID := st.merges.Add(top.Pair, top.Count)
		st.apply(top, newID)
		done++

		logutil.Trace("merged", "pair", top.Pair, "id", newID, "count", top.Count, "words", len(top.Pos))
		if percent := uint64(done) * 100 / uint64(numMerges); percent > lastPercent {
			slog.Info("training progress",
				"percent", percent,
				"merges", done,
				"total", numMerges,
				"pair", top.Pair,
				"id", newID,
				"count", top.Count)
			lastPercent = percent
		}
	}
	return done
}

// apply merges job.Pair into newID in the words that may contain it, folds
// the resulting deltas into pairCounts and queues a candidate for every pair
// that appeared.
func (st *trainState) apply(job *MergeJob, newID uint32) {
	gained := make(map[Pair]PositionSet)
	for idx := range job.Pos {
		count := st.counts[idx]
		for _, d := range st.words[idx].MergePair(job.Pair, newID) {
			total := int64(d.Delta) * count
			if total == 0 {
				continue
			}

			if c := st.pairCounts[d.Pair] + total; c != 0 {
				st.pairCounts[d.Pair] = c
			} else {
				delete(st.pairCounts, d.Pair)
			}

			if total > 0 {
				pos, ok := gained[d.Pair]
				if !ok {
					pos = make(PositionSet)
					gained[d.Pair] = pos
				}
				pos.Add(idx)
			}
		}
	}

	for pair, pos := range gained {
		if c := st.pairCounts[pair]; c > 0 {
			st.queue.Push(&MergeJob{Pair: pair, Count: c, Pos: pos})
		}
	}
}
