package core

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomCorpus(seed uint64, n int) ([]Word, []int64) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	words := make([]Word, n)
	counts := make([]int64, n)
	for i := range n {
		ids := make([]uint32, r.IntN(8))
		for j := range ids {
			// a small alphabet so pairs repeat across words
			ids[j] = uint32(97 + r.IntN(4))
		}
		words[i] = NewWord(ids)
		counts[i] = int64(r.IntN(5)) // zero counts included
	}
	return words, counts
}

func bruteForcePairs(words []Word, counts []int64) (map[Pair]int64, map[Pair]PositionSet) {
	pc := make(map[Pair]int64)
	where := make(map[Pair]PositionSet)
	for i := range words {
		if counts[i] == 0 {
			continue
		}
		ids := words[i].IDs()
		for j := 0; j+1 < len(ids); j++ {
			p := Pair{ids[j], ids[j+1]}
			pc[p] += counts[i]
			if where[p] == nil {
				where[p] = make(PositionSet)
			}
			where[p].Add(i)
		}
	}
	return pc, where
}

func TestAggregatePairsMatchesBruteForce(t *testing.T) {
	words, counts := randomCorpus(7, 500)
	wantCounts, wantWhere := bruteForcePairs(words, counts)

	for _, workers := range []int{1, 2, 3, 8, 64, 0} {
		gotCounts, gotWhere, err := AggregatePairs(words, counts, workers)
		require.NoError(t, err)

		if diff := cmp.Diff(wantCounts, gotCounts); diff != "" {
			t.Fatalf("workers=%d: counts mismatch (-want +got):\n%s", workers, diff)
		}
		if diff := cmp.Diff(wantWhere, gotWhere); diff != "" {
			t.Fatalf("workers=%d: positions mismatch (-want +got):\n%s", workers, diff)
		}
	}
}

func TestAggregatePairsSkipsShortAndZeroCountWords(t *testing.T) {
	words := []Word{
		NewWord([]uint32{97}),
		NewWord([]uint32{97, 98}),
		NewWord([]uint32{97, 98, 97, 98}),
		NewWord(nil),
	}
	counts := []int64{10, 0, 3, 4}

	pc, where, err := AggregatePairs(words, counts, 2)
	require.NoError(t, err)

	assert.Equal(t, map[Pair]int64{{97, 98}: 6, {98, 97}: 3}, pc)
	assert.Equal(t, PositionSet{2: {}}, where[Pair{97, 98}])
	assert.False(t, where[Pair{97, 98}].Has(1))
}

func TestAggregatePairsEmpty(t *testing.T) {
	pc, where, err := AggregatePairs(nil, nil, 4)
	require.NoError(t, err)
	assert.Empty(t, pc)
	assert.Empty(t, where)
}

func TestAggregatePairsRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		words  []Word
		counts []int64
		err    error
	}{
		{
			name:   "length mismatch",
			words:  []Word{NewWord([]uint32{1, 2})},
			counts: []int64{1, 2},
			err:    ErrLengthMismatch,
		},
		{
			name:   "negative count",
			words:  []Word{NewWord([]uint32{1, 2}), NewWord([]uint32{3, 4})},
			counts: []int64{1, -2},
			err:    ErrNegativeCount,
		},
		{
			name:   "id above byte range",
			words:  []Word{NewWord([]uint32{1, 256})},
			counts: []int64{1},
			err:    ErrInvalidTokenID,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := AggregatePairs(tt.words, tt.counts, 2)
			require.ErrorIs(t, err, tt.err)
		})
	}
}
