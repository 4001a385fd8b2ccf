package pipeline

import "context"

// ItemSink is anything a transform stage can push completed items to.
// *Queue satisfies it directly (work distributed across the queue's
// consumers); FanOut satisfies it too, for the case where every
// downstream consumer must observe the entire stream rather than a
// work-stealing share of it.
type ItemSink interface {
	Push(ctx context.Context, item Item) error
	Broadcast(ctx context.Context, consumers int) error
}

// FanOut pushes every item to every one of its queues. Back-projection
// needs this at the filtering/back-projection boundary: every device's
// worker must accumulate every projection into its own sub-volumes (spec
// §4.4 step 4), not claim a 1/N share of them the way a single shared
// Queue would hand out under N concurrent consumers.
type FanOut struct {
	queues []*Queue
}

// NewFanOut wraps one queue per downstream consumer that must see every
// item.
func NewFanOut(queues []*Queue) *FanOut {
	return &FanOut{queues: queues}
}

// Push enqueues item on every wrapped queue, blocking on each in turn.
func (f *FanOut) Push(ctx context.Context, item Item) error {
	for _, q := range f.queues {
		if err := q.Push(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// Broadcast pushes consumers End items to every wrapped queue, so each
// queue's own consumer count is satisfied independently.
func (f *FanOut) Broadcast(ctx context.Context, consumers int) error {
	for _, q := range f.queues {
		if err := q.Broadcast(ctx, consumers); err != nil {
			return err
		}
	}
	return nil
}
