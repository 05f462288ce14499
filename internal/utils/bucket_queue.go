package utils

// MergeCand is an encoder candidate: merge the slot at Pos with its right
// neighbour. VerL and VerR are the slot versions observed at push time; a
// candidate whose versions no longer match is stale and must be skipped.
type MergeCand struct {
	Rank       int // lower wins
	Pos        int // left slot; lower wins on tie to enforce leftmost
	LeftToken  uint32
	RightToken uint32
	VerL       uint32
	VerR       uint32
}

// BucketQueue is a monotone priority queue for MergeCand. Ranks are bounded by
// the number of merges so one bucket per rank is cheaper than a heap. Inside a
// bucket candidates stay sorted by Pos.
type BucketQueue struct {
	buckets    [][]MergeCand
	current    int
	totalCount int
}

func NewBucketQueue(maxRank int) *BucketQueue {
	return &BucketQueue{
		buckets: make([][]MergeCand, maxRank+1),
	}
}

func (bq *BucketQueue) Len() int {
	return bq.totalCount
}

func (bq *BucketQueue) Push(c MergeCand) {
	rank := c.Rank
	if rank >= len(bq.buckets) {
		grown := make([][]MergeCand, rank+1)
		copy(grown, bq.buckets)
		bq.buckets = grown
	}

	// pushes below the cursor are allowed, move the cursor back
	if rank < bq.current {
		bq.current = rank
	}

	bucket := bq.buckets[rank]
	n := len(bucket)

	// binary search for the first entry at or after c.Pos; small buckets
	// end up here too since the loop exits immediately
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if bucket[mid].Pos < c.Pos {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	if lo == n {
		bucket = append(bucket, c)
	} else {
		bucket = append(bucket, MergeCand{})
		copy(bucket[lo+1:], bucket[lo:])
		bucket[lo] = c
	}
	bq.buckets[rank] = bucket
	bq.totalCount++
}

func (bq *BucketQueue) Pop() (MergeCand, bool) {
	if bq.totalCount == 0 {
		return MergeCand{}, false
	}

	for bq.current < len(bq.buckets) && len(bq.buckets[bq.current]) == 0 {
		bq.current++
	}

	bucket := bq.buckets[bq.current]
	c := bucket[0]
	bq.buckets[bq.current] = bucket[1:]
	bq.totalCount--

	return c, true
}

// Reset empties every bucket but keeps their backing arrays for reuse.
func (bq *BucketQueue) Reset() {
	for i := range bq.buckets {
		bq.buckets[i] = bq.buckets[i][:0]
	}
	bq.current = 0
	bq.totalCount = 0
}
