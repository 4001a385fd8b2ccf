package weighting

import (
	"context"

	"github.com/gocbct/fdkrecon/pipeline"
	"github.com/gocbct/fdkrecon/projection"
)

// Stage consumes one projection at a time, applies the cosine weighting
// kernel in place, synchronizes the projection's stream, and forwards it
// (spec §4.2's stage contract).
type Stage struct {
	in, out              *pipeline.Queue
	workers              int
	downstreamConsumers  int
	kernel               Map
}

// NewStage wires a weighting stage between in and out. workers is the
// number of concurrent weighting workers (typically one per device);
// downstreamConsumers is the number of filtering workers that must each
// see exactly one End item once weighting is exhausted.
func NewStage(in, out *pipeline.Queue, workers, downstreamConsumers int, kernel Map) *Stage {
	return &Stage{in: in, out: out, workers: workers, downstreamConsumers: downstreamConsumers, kernel: kernel}
}

func (s *Stage) Name() string { return "weighting" }

func (s *Stage) Start(ctx context.Context) error {
	return pipeline.RunTransformStage(ctx, s.in, s.out, s.workers, s.downstreamConsumers, s.transform)
}

func (s *Stage) transform(ctx context.Context, workerID int, p projection.Projection) error {
	s.kernel.Apply(p.Buffer)
	if p.Stream != nil {
		if err := p.Stream.Synchronize(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases stage-owned resources. The weighting kernel holds no
// per-device allocation beyond the precomputed weight map.
func (s *Stage) Close() error { return nil }
