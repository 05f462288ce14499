package utils

import (
	"github.com/emirpasic/gods/v2/trees/binaryheap"
)

// MergeHeap is a binary heap ordered by a comparator. compare(a, b) < 0 means
// a is popped before b.
type MergeHeap[T comparable] struct {
	heap *binaryheap.Heap[T]
}

// NewMergeHeap returns an empty heap using compare for ordering.
func NewMergeHeap[T comparable](compare func(a, b T) int) *MergeHeap[T] {
	return &MergeHeap[T]{
		heap: binaryheap.NewWith[T](compare),
	}
}

func (h *MergeHeap[T]) Len() int {
	return h.heap.Size()
}

func (h *MergeHeap[T]) Push(c T) {
	h.heap.Push(c)
}

// PushAll bulk loads items; the heap property is restored once at the end
// instead of per item.
func (h *MergeHeap[T]) PushAll(items ...T) {
	if len(items) == 0 {
		return
	}
	h.heap.Push(items...)
}

func (h *MergeHeap[T]) Pop() (T, bool) {
	return h.heap.Pop()
}
