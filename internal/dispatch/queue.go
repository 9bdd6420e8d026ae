package dispatch

import (
	"container/heap"
	"math"
	"sort"
	"time"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

const (
	expressBase      = 1000.0
	normalBase       = 100.0
	agePointsPerHour = 5.0
	maxAgePoints     = 50.0
	valueDivisor     = 100.0
	maxValuePoints   = 20.0
)

// QueuedOrder is an order resident in a Queue. Priority is frozen at enqueue
// time and never persisted.
type QueuedOrder struct {
	domain.Order
	Priority float64   `json:"priority"`
	QueuedAt time.Time `json:"queued_at"`
}

// Score computes the dispatch priority of o as seen at now. Orders stamped in
// the future are treated as brand new.
func Score(o domain.Order, now time.Time) float64 {
	base := normalBase
	if o.DeliveryType == domain.DeliveryExpress {
		base = expressBase
	}

	ageHours := float64(now.UnixMilli()-o.CreatedAt.Millis(now)) / float64(time.Hour.Milliseconds())
	if ageHours < 0 {
		ageHours = 0
	}

	return base +
		math.Min(ageHours*agePointsPerHour, maxAgePoints) +
		math.Min(o.Total/valueDivisor, maxValuePoints)
}

type orderHeap []QueuedOrder

func (h orderHeap) Len() int           { return len(h) }
func (h orderHeap) Less(i, j int) bool { return h[i].Priority > h[j].Priority }
func (h orderHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *orderHeap) Push(x any) { *h = append(*h, x.(QueuedOrder)) }

func (h *orderHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = QueuedOrder{}
	*h = old[:n-1]
	return item
}

// Queue is a max-priority queue of orders. It is not safe for concurrent use;
// Controller serialises access.
type Queue struct {
	items orderHeap
	now   func() time.Time
}

// NewQueue returns an empty queue scoring orders against now. A nil clock
// means time.Now.
func NewQueue(now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{now: now}
}

// Enqueue scores o, inserts it and returns the queued record. O(log n).
func (q *Queue) Enqueue(o domain.Order) QueuedOrder {
	now := q.now()
	item := QueuedOrder{
		Order:    o,
		Priority: Score(o, now),
		QueuedAt: now,
	}
	heap.Push(&q.items, item)
	return item
}

// push re-inserts an already scored record without touching its priority.
func (q *Queue) push(item QueuedOrder) {
	heap.Push(&q.items, item)
}

// Dequeue removes and returns the highest priority order. The boolean is
// false when the queue is empty. Ties are broken by heap position.
func (q *Queue) Dequeue() (QueuedOrder, bool) {
	if len(q.items) == 0 {
		return QueuedOrder{}, false
	}
	return heap.Pop(&q.items).(QueuedOrder), true
}

// Peek returns the highest priority order without removing it.
func (q *Queue) Peek() (QueuedOrder, bool) {
	if len(q.items) == 0 {
		return QueuedOrder{}, false
	}
	return q.items[0], true
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Reset drops every queued order.
func (q *Queue) Reset() {
	q.items = nil
}

// ByType splits the current contents by delivery class, each sorted by
// priority descending. Anything not express is scored and listed as normal.
// The heap itself is not modified.
func (q *Queue) ByType() (express, normal []QueuedOrder) {
	express = make([]QueuedOrder, 0)
	normal = make([]QueuedOrder, 0)
	for _, item := range q.items {
		switch item.DeliveryType {
		case domain.DeliveryExpress:
			express = append(express, item)
		default:
			normal = append(normal, item)
		}
	}

	byPriority := func(s []QueuedOrder) func(i, j int) bool {
		return func(i, j int) bool { return s[i].Priority > s[j].Priority }
	}
	sort.SliceStable(express, byPriority(express))
	sort.SliceStable(normal, byPriority(normal))
	return express, normal
}

// Remove drops every record for orderID by rebuilding the heap from the
// remaining elements. This is O(n), not a heap primitive.
func (q *Queue) Remove(orderID string) bool {
	kept := make(orderHeap, 0, len(q.items))
	for _, item := range q.items {
		if item.ID != orderID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(q.items) {
		return false
	}
	q.items = kept
	heap.Init(&q.items)
	return true
}
