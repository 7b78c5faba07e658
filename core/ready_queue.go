package core

import (
	"container/heap"
	"sync"
)

const defaultReadyQueueCap = 16

// =============================================================================
// readyQueue: stable two-tier priority queue of ready jobs
// =============================================================================

// readyItem decorates a job with an insertion sequence for FIFO ordering
// within a priority tier.
type readyItem struct {
	job      *job
	sequence uint64
	index    int
}

// readyHeap implements heap.Interface
type readyHeap []*readyItem

func (h readyHeap) Len() int { return len(h) }

// Less: High before Normal, then earlier sequence first (FIFO fairness).
func (h readyHeap) Less(i, j int) bool {
	if h[i].job.priority != h[j].job.priority {
		return h[i].job.priority > h[j].job.priority
	}
	return h[i].sequence < h[j].sequence
}

func (h readyHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *readyHeap) Push(x interface{}) {
	n := len(*h)
	item := x.(*readyItem)
	item.index = n
	*h = append(*h, item)
}

func (h *readyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // Avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

// readyQueue is shared by all background workers; a second instance feeds
// the main-thread lane and is only ever tryPop'ed inside Update().
//
// The signal channel is a wake hint, not a unit of work: push sends
// non-blocking, pop re-checks the heap after every wake. A full channel
// is fine because the job is already queued.
type readyQueue struct {
	mu           sync.Mutex
	heap         readyHeap
	nextSequence uint64
	signal       chan struct{}
}

func newReadyQueue(signalCap int) *readyQueue {
	if signalCap < 1 {
		signalCap = 1
	}
	return &readyQueue{
		heap:   make(readyHeap, 0, defaultReadyQueueCap),
		signal: make(chan struct{}, signalCap),
	}
}

func (q *readyQueue) push(j *job) {
	q.mu.Lock()
	item := &readyItem{job: j, sequence: q.nextSequence}
	q.nextSequence++
	heap.Push(&q.heap, item)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// tryPop removes the highest-priority ready job without blocking.
func (q *readyQueue) tryPop() (*job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return nil, false
	}
	item := heap.Pop(&q.heap).(*readyItem)
	return item.job, true
}

// pop blocks the calling worker until a job is available or stopCh closes.
func (q *readyQueue) pop(stopCh <-chan struct{}) (*job, bool) {
	for {
		if j, ok := q.tryPop(); ok {
			return j, true
		}

		select {
		case <-q.signal:
			continue
		case <-stopCh:
			return nil, false
		}
	}
}

func (q *readyQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// clear drops every queued job and releases their references.
func (q *readyQueue) clear() []*job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*job, 0, len(q.heap))
	for _, item := range q.heap {
		out = append(out, item.job)
	}
	q.heap = make(readyHeap, 0, defaultReadyQueueCap)
	q.nextSequence = 0
	return out
}
