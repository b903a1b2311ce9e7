package order

import (
	"strings"

	"github.com/snehjoshi/bakery/internal/container/pqueue"
)

// Queue ranks unshipped orders by Priority. The highest priority order is
// the next one to fulfil. Searches are linear scans of the heap slots.
type Queue struct {
	heap *pqueue.Queue[*Order]
}

// NewQueue returns an empty fulfilment queue.
func NewQueue() *Queue {
	return &Queue{heap: pqueue.New(func(o *Order) int { return o.Priority })}
}

// Insert enqueues o.
func (q *Queue) Insert(o *Order) { q.heap.Insert(o) }

// Remove extracts the highest priority order.
func (q *Queue) Remove() (*Order, error) { return q.heap.Remove() }

// Peek returns the highest priority order without removing it.
func (q *Queue) Peek() (*Order, error) { return q.heap.Peek() }

// Len returns the number of queued orders.
func (q *Queue) Len() int { return q.heap.Len() }

// IsEmpty reports whether no orders are queued.
func (q *Queue) IsEmpty() bool { return q.heap.IsEmpty() }

// SearchByID returns the queued order with id.
func (q *Queue) SearchByID(id string) (*Order, bool) {
	return q.heap.Find(func(o *Order) bool { return o.ID == id })
}

// SearchByCustomer returns every queued order placed by email, in heap
// slot order.
func (q *Queue) SearchByCustomer(email string) []*Order {
	email = strings.TrimSpace(email)
	return q.heap.FindAll(func(o *Order) bool { return strings.EqualFold(o.CustomerEmail, email) })
}

// AllSortedDescending returns a snapshot of the queue, highest priority
// first. The queue is not modified.
func (q *Queue) AllSortedDescending() []*Order { return q.heap.Sorted() }

// Values returns the queued orders in heap slot order.
func (q *Queue) Values() []*Order { return q.heap.Values() }

// Clear drops every queued order.
func (q *Queue) Clear() { q.heap.Clear() }
