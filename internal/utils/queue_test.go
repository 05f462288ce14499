package utils

import (
	"cmp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeHeapOrder(t *testing.T) {
	h := NewMergeHeap(func(a, b int) int { return cmp.Compare(b, a) })
	h.PushAll(3, 9, 1)
	h.Push(7)
	require.Equal(t, 4, h.Len())

	var got []int
	for {
		v, ok := h.Pop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{9, 7, 3, 1}, got)
	assert.Equal(t, 0, h.Len())

	h.PushAll()
	assert.Equal(t, 0, h.Len())
}

func TestBucketQueueRankThenLeftmost(t *testing.T) {
	bq := NewBucketQueue(2)
	bq.Push(MergeCand{Rank: 1, Pos: 4})
	bq.Push(MergeCand{Rank: 0, Pos: 9})
	bq.Push(MergeCand{Rank: 1, Pos: 2})
	bq.Push(MergeCand{Rank: 5, Pos: 0}) // grows past maxRank
	bq.Push(MergeCand{Rank: 0, Pos: 3})

	want := []MergeCand{
		{Rank: 0, Pos: 3},
		{Rank: 0, Pos: 9},
		{Rank: 1, Pos: 2},
		{Rank: 1, Pos: 4},
		{Rank: 5, Pos: 0},
	}
	for i, w := range want {
		c, ok := bq.Pop()
		require.True(t, ok, "pop %d", i)
		assert.Equal(t, w, c, "pop %d", i)
	}
	_, ok := bq.Pop()
	assert.False(t, ok)
}

func TestBucketQueuePushBelowCursor(t *testing.T) {
	bq := NewBucketQueue(4)
	bq.Push(MergeCand{Rank: 3, Pos: 0})
	c, ok := bq.Pop()
	require.True(t, ok)
	require.Equal(t, 3, c.Rank)

	bq.Push(MergeCand{Rank: 4, Pos: 0})
	bq.Push(MergeCand{Rank: 1, Pos: 0})
	c, ok = bq.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, c.Rank)
}

func TestBucketQueueReset(t *testing.T) {
	bq := NewBucketQueue(3)
	for i := range 10 {
		bq.Push(MergeCand{Rank: i % 3, Pos: i})
	}
	bq.Reset()
	assert.Equal(t, 0, bq.Len())
	_, ok := bq.Pop()
	assert.False(t, ok)

	bq.Push(MergeCand{Rank: 2, Pos: 1})
	c, ok := bq.Pop()
	require.True(t, ok)
	assert.Equal(t, MergeCand{Rank: 2, Pos: 1}, c)
}
