package pipeline

import (
	"context"
	"sync"

	"github.com/gocbct/fdkrecon/projection"
)

// Transform mutates a projection in place (weighting, filtering) and
// optionally synchronizes its stream before the projection is forwarded.
// workerID identifies which of RunTransformStage's concurrent workers is
// calling it (0..workers-1), stable for the lifetime of that worker, so a
// transform that needs per-worker scratch state can key it by workerID
// instead of a data field like the projection's device (which two
// concurrent workers may share).
type Transform func(ctx context.Context, workerID int, p projection.Projection) error

// RunTransformStage runs a one-projection-in, one-projection-out stage:
// workers goroutines pull from in, apply transform, and push to out. Once
// every worker has observed an End item from in, RunTransformStage
// broadcasts exactly downstreamConsumers End items to out and returns.
//
// This factors the shared shape of the weighting and filtering stages
// (spec §4.2, §4.3), both of which are "consume one projection, transform
// it, forward it". out is an ItemSink rather than a concrete *Queue so a
// stage can fan a single upstream into several independent downstream
// queues (filtering -> back-projection, where every device worker must
// see every projection) as well as the simple single-queue case.
func RunTransformStage(ctx context.Context, in *Queue, out ItemSink, workers, downstreamConsumers int, transform Transform) error {
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if err := transformWorker(ctx, workerID, in, out, transform); err != nil {
				select {
				case errs <- err:
				default:
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	if err, ok := <-errs; ok {
		return err
	}

	return out.Broadcast(ctx, downstreamConsumers)
}

func transformWorker(ctx context.Context, workerID int, in *Queue, out ItemSink, transform Transform) error {
	for {
		item, err := in.Take(ctx)
		if err != nil {
			return err
		}
		if item.Kind == KindEnd {
			return nil
		}
		if err := transform(ctx, workerID, item.Projection); err != nil {
			return err
		}
		if err := out.Push(ctx, DataItem(item.Projection)); err != nil {
			return err
		}
	}
}
