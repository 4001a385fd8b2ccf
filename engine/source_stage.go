package engine

import (
	"context"

	"github.com/gocbct/fdkrecon/pipeline"
	"github.com/gocbct/fdkrecon/projection"
)

// sourceStage adapts a projection.Source collaborator into the pipeline's
// first Stage: it sets n_proj, then pushes every projection the source
// yields before broadcasting the End sentinel to every weighting worker
// (spec §6: "the stream sets n_proj ... before any back-projection kernel
// launches").
type sourceStage struct {
	src                 projection.Source
	out                 *pipeline.Queue
	nProj               int
	downstreamConsumers int
}

func newSourceStage(src projection.Source, out *pipeline.Queue, nProj, downstreamConsumers int) *sourceStage {
	return &sourceStage{src: src, out: out, nProj: nProj, downstreamConsumers: downstreamConsumers}
}

func (s *sourceStage) Name() string { return "source" }

func (s *sourceStage) Start(ctx context.Context) error {
	if err := s.src.SetInputNum(s.nProj); err != nil {
		return err
	}
	for {
		p, ok, err := s.src.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := s.out.Push(ctx, pipeline.DataItem(p)); err != nil {
			return err
		}
	}
	return s.out.Broadcast(ctx, s.downstreamConsumers)
}

func (s *sourceStage) Close() error { return nil }
