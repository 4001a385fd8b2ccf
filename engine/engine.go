// Package engine wires the scheduler, weighting, filtering and
// back-projection stages into the single top-level entry point a caller
// runs a reconstruction through (spec §2's data-flow diagram, §5's
// concurrency model).
package engine

import (
	"context"
	"fmt"

	"github.com/gocbct/fdkrecon/angles"
	"github.com/gocbct/fdkrecon/backprojection"
	"github.com/gocbct/fdkrecon/filtering"
	"github.com/gocbct/fdkrecon/geometry"
	"github.com/gocbct/fdkrecon/gpu"
	"github.com/gocbct/fdkrecon/gpu/tensorbackend"
	"github.com/gocbct/fdkrecon/internal/logging"
	"github.com/gocbct/fdkrecon/pipeline"
	"github.com/gocbct/fdkrecon/projection"
	"github.com/gocbct/fdkrecon/scheduler"
	"github.com/gocbct/fdkrecon/weighting"
)

// Engine owns a detector geometry and a device set, and runs one
// reconstruction end to end: Source -> Weighting -> Filtering ->
// Backprojection -> Sink.
type Engine struct {
	detector geometry.Detector
	devices  []gpu.Device
	cfg      config
}

// New validates detector and constructs an Engine bound to devices. At
// least one device is required (spec §7: "zero devices" is a plan error).
func New(detector geometry.Detector, devices []gpu.Device, opts ...Option) (*Engine, error) {
	if err := detector.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if len(devices) == 0 {
		return nil, scheduler.ErrNoDevices
	}
	cfg := apply(opts...)
	if cfg.newBuffer3D == nil {
		cfg.newBuffer3D = func(device, dimX, dimY, dimZ int) (gpu.Buffer3D, error) {
			return tensorbackend.NewBuffer3D(device, dimX, dimY, dimZ)
		}
	}
	return &Engine{detector: detector, devices: devices, cfg: cfg}, nil
}

// Run drives one full reconstruction, reading projections from src and
// delivering the completed volume to sink.
func (e *Engine) Run(ctx context.Context, src projection.Source, sink projection.Sink) error {
	vol := geometry.CalculateVolumeGeometry(e.detector)
	if e.cfg.roi != nil {
		vol = geometry.ApplyROI(vol, *e.cfg.roi)
	}
	if vol.DimX <= 0 || vol.DimY <= 0 || vol.DimZ <= 0 {
		return fmt.Errorf("engine: non-positive volume dimensions %dx%dx%d", vol.DimX, vol.DimY, vol.DimZ)
	}

	deviceMem := make([]scheduler.DeviceMemory, len(e.devices))
	for i, d := range e.devices {
		deviceMem[i] = scheduler.DeviceMemory{ID: d.ID(), GlobalMemBytes: d.GlobalMemBytes()}
	}

	plan, err := scheduler.New().Plan(e.detector, vol, deviceMem)
	if err != nil {
		logging.Log.Error().Err(err).Msg("engine: scheduler rejected plan")
		return err
	}

	workers := len(e.devices)

	srcToWeight := pipeline.NewQueue(pipeline.MinCapacity(workers))
	weightToFilter := pipeline.NewQueue(pipeline.MinCapacity(workers))

	// Every back-projection device worker must observe every projection
	// (spec §4.4 step 4), so filtering fans its output out to one queue
	// per device rather than handing work-stolen shares of a single
	// shared queue to N competing consumers.
	bpDeviceIDs := backprojection.DevicesInPlan(plan)
	bpQueues := make(map[int]*pipeline.Queue, len(bpDeviceIDs))
	bpQueueList := make([]*pipeline.Queue, len(bpDeviceIDs))
	for i, id := range bpDeviceIDs {
		q := pipeline.NewQueue(pipeline.MinCapacity(1))
		bpQueues[id] = q
		bpQueueList[i] = q
	}
	filterToBP := pipeline.NewFanOut(bpQueueList)

	weightMap := weighting.NewMap(e.detector)
	filterKernel := filtering.BuildKernel(e.detector)

	parsedDeg := angles.ParseDegrees(e.cfg.angleLines)
	builder := &angles.Builder{}

	srcStage := newSourceStage(src, srcToWeight, e.detector.NProj, workers)
	weightingStage := weighting.NewStage(srcToWeight, weightToFilter, workers, workers, weightMap)
	// Every back-projection queue has exactly one consumer (its device's
	// single worker goroutine), so filtering broadcasts exactly one End
	// item per queue.
	filteringStage := filtering.NewStage(weightToFilter, filterToBP, workers, 1, filterKernel)
	backprojectionStage := backprojection.NewStage(e.detector, plan, bpQueues, e.cfg.newBuffer3D, sink, builder, parsedDeg)

	runner := pipeline.NewRunner(srcStage, weightingStage, filteringStage, backprojectionStage)
	return runner.Run(ctx)
}
