package core

import (
	"cmp"

	"github.com/bpetrain/internal/utils"
)

// MergeJob is a queued merge candidate: a snapshot of the pair's count and of
// the words known to contain it when it was pushed. Snapshots go stale as
// other merges run; the trainer checks Count against the live total when the
// job is popped.
type MergeJob struct {
	Pair  Pair
	Count int64
	Pos   PositionSet
}

// compareJobs puts higher counts first. Equal counts pop the smaller pair
// first, which keeps merge tables identical between runs.
func compareJobs(a, b *MergeJob) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	return a.Pair.Compare(b.Pair)
}

func newJobQueue() *utils.MergeHeap[*MergeJob] {
	return utils.NewMergeHeap(compareJobs)
}
