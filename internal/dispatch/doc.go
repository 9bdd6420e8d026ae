// Package dispatch ranks pending orders for fulfillment and moves them into
// processing.
//
// A Queue is an in-memory binary max-heap of orders keyed by a score that is
// computed once, at enqueue time:
//
//	score = base + min(ageHours*5, 50) + min(total/100, 20)
//
// where base is 1000 for express delivery and 100 otherwise. Age and value
// together contribute at most 70 points, so an express order always outranks
// a normal one.
//
// A Controller owns exactly one Queue and bridges it to the order store:
// Refresh rebuilds the queue from a full scan, DispatchNext pops the head and
// marks it processing, DispatchSpecific marks a chosen order and drops it from
// the queue, and UpdateItemStatus changes one vendor's line item and
// recomputes the order's aggregate status.
//
// Sessions hands out one Controller per vendor so that concurrent vendor views
// never share queue state.
package dispatch
