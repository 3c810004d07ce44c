package queue

import (
	"container/heap"
	"sync"

	"github.com/lumivoice/chat-attention/internal/models"
)

// PriorityQueue is a bounded, concurrent-safe priority queue of scored
// messages. Ordering is by level, then total score, then enqueue recency
// (earlier wins), so equally scored messages cannot starve each other.
//
// At capacity an insert evicts the lowest-ranked resident entry only when
// the new entry ranks strictly higher; otherwise the insert is rejected and
// counted as a drop.
type PriorityQueue struct {
	mu       sync.Mutex
	capacity int
	items    entryHeap
	seq      uint64
	dropped  uint64
	evicted  uint64
}

type item struct {
	entry models.QueueEntry
	seq   uint64
	index int
}

// New creates a queue bounded at the given capacity
func New(capacity int) *PriorityQueue {
	return &PriorityQueue{capacity: capacity}
}

// Insert adds a scored message. It returns false when the queue is full and
// the entry does not outrank the current minimum.
func (q *PriorityQueue) Insert(entry models.QueueEntry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	candidate := &item{entry: entry, seq: q.seq}

	if len(q.items) >= q.capacity {
		lowest := q.lowestIndex()
		if !outranks(candidate, q.items[lowest]) {
			q.dropped++
			return false
		}
		heap.Remove(&q.items, lowest)
		q.evicted++
	}

	heap.Push(&q.items, candidate)
	return true
}

// Dequeue removes and returns the highest-ranked entry. The second return
// is false when the queue is empty; it never blocks.
func (q *PriorityQueue) Dequeue() (models.QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return models.QueueEntry{}, false
	}
	it := heap.Pop(&q.items).(*item)
	return it.entry, true
}

// Peek returns the highest-ranked entry without removing it
func (q *PriorityQueue) Peek() (models.QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return models.QueueEntry{}, false
	}
	return q.items[0].entry, true
}

// Len returns the current queue depth
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many inserts were rejected at capacity
func (q *PriorityQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Evicted returns how many resident entries were displaced by higher-ranked
// arrivals at capacity
func (q *PriorityQueue) Evicted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}

// Clear discards all queued entries
func (q *PriorityQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// lowestIndex scans the heap for the lowest-ranked item. Leaves of a max-heap
// are not ordered among themselves, so this is a linear scan; it only runs
// when an insert arrives at capacity.
func (q *PriorityQueue) lowestIndex() int {
	lowest := 0
	for i := 1; i < len(q.items); i++ {
		if outranks(q.items[lowest], q.items[i]) {
			lowest = i
		}
	}
	return lowest
}

// outranks reports whether a should be served before b
func outranks(a, b *item) bool {
	if a.entry.Score.Level != b.entry.Score.Level {
		return a.entry.Score.Level > b.entry.Score.Level
	}
	if a.entry.Score.Total != b.entry.Score.Total {
		return a.entry.Score.Total > b.entry.Score.Total
	}
	if !a.entry.EnqueuedAt.Equal(b.entry.EnqueuedAt) {
		return a.entry.EnqueuedAt.Before(b.entry.EnqueuedAt)
	}
	return a.seq < b.seq
}

// entryHeap implements heap.Interface as a max-heap on the ordering key
type entryHeap []*item

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool { return outranks(h[i], h[j]) }

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
