package filtering

import (
	"context"

	"github.com/gocbct/fdkrecon/pipeline"
	"github.com/gocbct/fdkrecon/projection"
)

// Stage performs per-projection ramp filtering (spec §4.3's per-projection
// steps 1-6): pad each row to L, batched FFT, multiply by the cached
// filter magnitude, batched inverse FFT, crop and normalize back into the
// projection's own buffer.
type Stage struct {
	in                  *pipeline.Queue
	out                 pipeline.ItemSink
	workers             int
	downstreamConsumers int
	kernel              Kernel
	cache               *planCache
}

// NewStage wires a filtering stage. kernel must already be built (once per
// device, spec §9) before the stage starts. out is typically a FanOut
// wrapping one queue per back-projection device, since every device must
// receive every projection.
func NewStage(in *pipeline.Queue, out pipeline.ItemSink, workers, downstreamConsumers int, kernel Kernel) *Stage {
	return &Stage{
		in:                  in,
		out:                 out,
		workers:             workers,
		downstreamConsumers: downstreamConsumers,
		kernel:              kernel,
		cache:               newPlanCache(),
	}
}

func (s *Stage) Name() string { return "filtering" }

func (s *Stage) Start(ctx context.Context) error {
	return pipeline.RunTransformStage(ctx, s.in, s.out, s.workers, s.downstreamConsumers, s.transform)
}

func (s *Stage) transform(ctx context.Context, workerID int, p projection.Projection) error {
	plan := s.cache.get(workerID, p.Height, s.kernel.L)
	L := s.kernel.L
	norm := float32(1.0 / float32(L))

	for t := 0; t < p.Height; t++ {
		row := p.Buffer.Row(t)
		re := plan.re[t*L : t*L+L]
		im := plan.im[t*L : t*L+L]

		copy(re, row[:p.Width])
		for i := p.Width; i < L; i++ {
			re[i] = 0
		}
		for i := range im {
			im[i] = 0
		}

		complexFFT(re, im, false)

		// The filter is a real magnitude applied to both lanes, which is
		// the same as multiplying by a complex filter whose real and
		// imaginary parts both hold that magnitude: (a+bi)*(k,k) -> (a*k, b*k).
		for i := 0; i < L; i++ {
			k := s.kernel.magnitudeAt(i)
			re[i] *= k
			im[i] *= k
		}

		complexFFT(re, im, true)

		for i := 0; i < p.Width; i++ {
			row[i] = re[i] * norm
		}
	}

	if p.Stream != nil {
		if err := p.Stream.Synchronize(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the stage's cached FFT scratch buffers, which are keyed
// per worker and per (height, L) shape (see planCache).
func (s *Stage) Close() error {
	s.cache.clear()
	return nil
}
