// Package pipeline provides the bounded blocking queue and stage lifecycle
// the reconstruction pipeline is built from.
//
// The element type is a tagged variant rather than a default-constructed
// sentinel value: Item.Kind distinguishes Data from End so a consumer can
// never accidentally read fields of an invalid payload (spec §9 "poison
// sentinel → typed end-of-stream").
package pipeline

import (
	"context"
	"errors"

	"github.com/gocbct/fdkrecon/projection"
)

// ErrEndOfStream is returned by Queue.Take once the queue has been closed
// and drained.
var ErrEndOfStream = errors.New("pipeline: end of stream")

// Kind tags an Item as carrying data or marking the end of a stream.
type Kind int

const (
	KindData Kind = iota
	KindEnd
)

// Item is the unit carried on a Queue.
type Item struct {
	Kind       Kind
	Projection projection.Projection
}

// DataItem wraps a projection for transport.
func DataItem(p projection.Projection) Item {
	return Item{Kind: KindData, Projection: p}
}

// EndItem is the sentinel pushed once per downstream consumer.
func EndItem() Item {
	return Item{Kind: KindEnd}
}

// MinCapacity returns the minimum safe queue capacity for the given
// number of concurrent workers on either side of the queue, per spec
// §4.5: "capacity ... must be at least 2x the number of concurrent
// workers on either side, to avoid deadlock".
func MinCapacity(workers int) int {
	if workers < 1 {
		workers = 1
	}
	return 2 * workers
}

// Queue is a bounded blocking channel of Item. Producers block on Push
// when full, consumers block on Take when empty; both respect ctx
// cancellation so a fatal error elsewhere in the pipeline can unblock
// every stage waiting on a queue (spec §5 cancellation model).
type Queue struct {
	ch chan Item
}

// NewQueue allocates a queue with the given capacity. Capacity should
// come from MinCapacity for the stage's worker count.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Item, capacity)}
}

// Push enqueues an item, blocking while the queue is full.
func (q *Queue) Push(ctx context.Context, item Item) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take dequeues the next item, blocking while the queue is empty. Once the
// queue has been Closed and drained, Take returns ErrEndOfStream.
func (q *Queue) Take(ctx context.Context) (Item, error) {
	select {
	case item, ok := <-q.ch:
		if !ok {
			return Item{}, ErrEndOfStream
		}
		return item, nil
	case <-ctx.Done():
		return Item{}, ctx.Err()
	}
}

// Broadcast pushes one End item per downstream consumer, implementing
// spec §4.5's "sentinel is broadcast to all consumers of a stage (one per
// device worker)".
func (q *Queue) Broadcast(ctx context.Context, consumers int) error {
	for i := 0; i < consumers; i++ {
		if err := q.Push(ctx, EndItem()); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying channel. Only the sole producer may call
// this; consumers observe it as ErrEndOfStream once drained.
func (q *Queue) Close() {
	close(q.ch)
}
