package jobs

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
)

// workItem is one queued unit of work: a job id paired with the spec that
// produced it, plus the monotonic sequence number used for deterministic
// FIFO ordering through the heap.
type workItem struct {
	seq   uint64
	jobID string
	spec  Spec
}

// workHeap orders items by seq, giving the frontier FIFO semantics even
// though Enqueue/Dequeue may be called from many goroutines at once.
type workHeap []workItem

func (h workHeap) Len() int            { return len(h) }
func (h workHeap) Less(i, j int) bool  { return h[i].seq < h[j].seq }
func (h workHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *workHeap) Push(x interface{}) { *h = append(*h, x.(workItem)) }
func (h *workHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// frontier is a bounded work queue: a priority heap for deterministic
// ordering combined with a buffered channel for bounded capacity and
// backpressure. Enqueue does not block — when the channel is full it
// reports backpressure immediately so Submit can return QUEUE_FULL rather
// than hang, unlike the donor scheduler's blocking Enqueue.
type frontier struct {
	mu       sync.Mutex
	heap     workHeap
	queue    chan workItem
	capacity int
	nextSeq  atomic.Uint64
}

func newFrontier(capacity int) *frontier {
	f := &frontier{
		heap:     make(workHeap, 0, capacity),
		queue:    make(chan workItem, capacity),
		capacity: capacity,
	}
	heap.Init(&f.heap)
	return f
}

// tryEnqueue attempts to admit item without blocking. Returns false when
// the queue is at capacity.
func (f *frontier) tryEnqueue(jobID string, spec Spec) bool {
	item := workItem{seq: f.nextSeq.Add(1), jobID: jobID, spec: spec}

	f.mu.Lock()
	if f.heap.Len() >= f.capacity {
		f.mu.Unlock()
		return false
	}
	heap.Push(&f.heap, item)
	f.mu.Unlock()

	select {
	case f.queue <- item:
		return true
	default:
		// Heap and channel capacity are kept equal, so this should not
		// happen; undo the heap push if it somehow does.
		f.mu.Lock()
		f.removeSeq(item.seq)
		f.mu.Unlock()
		return false
	}
}

func (f *frontier) removeSeq(seq uint64) {
	for i, it := range f.heap {
		if it.seq == seq {
			heap.Remove(&f.heap, i)
			return
		}
	}
}

// dequeue blocks until a work item is available or ctx is cancelled.
func (f *frontier) dequeue(ctx context.Context) (workItem, bool) {
	select {
	case <-ctx.Done():
		return workItem{}, false
	case item := <-f.queue:
		f.mu.Lock()
		f.removeSeq(item.seq)
		f.mu.Unlock()
		return item, true
	}
}

func (f *frontier) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heap.Len()
}
