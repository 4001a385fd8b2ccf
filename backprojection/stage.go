package backprojection

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocbct/fdkrecon/angles"
	"github.com/gocbct/fdkrecon/geometry"
	"github.com/gocbct/fdkrecon/gpu"
	"github.com/gocbct/fdkrecon/internal/concurrency"
	"github.com/gocbct/fdkrecon/pipeline"
	"github.com/gocbct/fdkrecon/projection"
	"github.com/gocbct/fdkrecon/scheduler"
)

// NewBuffer3DFunc allocates a sub-volume buffer on the given device,
// abstracting over the concrete gpu.Buffer3D backend (tensorbackend in
// production wiring).
type NewBuffer3DFunc func(device, dimX, dimY, dimZ int) (gpu.Buffer3D, error)

// Stage is the final pipeline stage: per-device accumulation followed by
// a cross-device merge into the single host-side output volume (spec
// §4.4's worker lifecycle and merge).
type Stage struct {
	detector    geometry.Detector
	plan        scheduler.Plan
	in          map[int]*pipeline.Queue
	newBuffer3D NewBuffer3DFunc
	sink        projection.Sink

	builder     *angles.Builder
	parsedDeg   []float64
	rotAngleDeg float32

	volumesMu sync.Mutex
	volumes   []*deviceVolumes
}

// NewStage wires a back-projection stage. in must hold exactly one queue
// per device named in plan.SubVolumes, each fed every projection the
// filtering stage produces (spec §4.4 step 4: every sub-volume on a
// device must accumulate every projection, not a work-stolen share of
// them) — see pipeline.FanOut for the upstream half of that contract.
// parsedDeg is the already-parsed angle-file contents (possibly empty,
// triggering the uniform-step fallback per spec §9); builder is shared so
// every device worker racing to build the angle table observes the
// one-shot guarantee.
func NewStage(detector geometry.Detector, plan scheduler.Plan, in map[int]*pipeline.Queue, newBuffer3D NewBuffer3DFunc, sink projection.Sink, builder *angles.Builder, parsedDeg []float64) *Stage {
	return &Stage{
		detector:    detector,
		plan:        plan,
		in:          in,
		newBuffer3D: newBuffer3D,
		sink:        sink,
		builder:     builder,
		parsedDeg:   parsedDeg,
		rotAngleDeg: detector.RotAngleDeg,
	}
}

func (s *Stage) Name() string { return "backprojection" }

// DevicesInPlan returns the distinct device IDs named in plan's
// sub-volumes, in first-appearance order. Callers wiring the pipeline use
// this to build one inbound queue per device before constructing Stage.
func DevicesInPlan(plan scheduler.Plan) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, sv := range plan.SubVolumes {
		if !seen[sv.Device] {
			seen[sv.Device] = true
			ids = append(ids, sv.Device)
		}
	}
	return ids
}

func subVolumesFor(plan scheduler.Plan, device int) []scheduler.SubVolume {
	var out []scheduler.SubVolume
	for _, sv := range plan.SubVolumes {
		if sv.Device == device {
			out = append(out, sv)
		}
	}
	return out
}

func (s *Stage) Start(ctx context.Context) error {
	deviceIDs := DevicesInPlan(s.plan)
	if len(deviceIDs) == 0 {
		return fmt.Errorf("backprojection: plan has no sub-volumes")
	}
	for _, device := range deviceIDs {
		if _, ok := s.in[device]; !ok {
			return fmt.Errorf("backprojection: no inbound queue wired for device %d", device)
		}
	}

	pixelOf := detectorPixelMapper(s.detector)
	vol := s.plan.Volume
	params := voxelParams{
		dimX: vol.DimX, dimY: vol.DimY, dimZ: vol.DimZ,
		lvxX: vol.LVxX, lvxY: vol.LVxY, lvxZ: vol.LVxZ,
		dso: s.detector.DSO, dsd: s.detector.DSD(),
		pixelOf: pixelOf,
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(deviceIDs))

	for _, device := range deviceIDs {
		wg.Add(1)
		go func(device int) {
			defer wg.Done()
			if err := s.runDevice(ctx, device, params); err != nil {
				select {
				case errs <- err:
				default:
				}
			}
		}(device)
	}

	wg.Wait()
	close(errs)
	if err, ok := <-errs; ok {
		return err
	}

	return s.merge(ctx, vol)
}

func (s *Stage) runDevice(ctx context.Context, device int, params voxelParams) error {
	subs := subVolumesFor(s.plan, device)
	dv, err := allocate(device, subs, s.newBuffer3D)
	if err != nil {
		return fmt.Errorf("backprojection: device %d: %w", device, err)
	}

	s.volumesMu.Lock()
	s.volumes = append(s.volumes, dv)
	s.volumesMu.Unlock()

	table := s.builder.Build(s.parsedDeg, s.detector.NProj, s.rotAngleDeg)
	in := s.in[device]

	for {
		item, err := in.Take(ctx)
		if err != nil {
			return err
		}
		if item.Kind == pipeline.KindEnd {
			return nil
		}

		p := item.Projection
		sinPhi, cosPhi := table.At(p.Index)
		for i, sub := range dv.subs {
			accumulate(dv.bufs[i], sub.ZOffset, p.Buffer, sinPhi, cosPhi, params)
		}
		if p.Stream != nil {
			if err := p.Stream.Synchronize(); err != nil {
				return fmt.Errorf("backprojection: device %d: %w", device, err)
			}
		}
	}
}

// merge copies every device's sub-volumes into disjoint z-slabs of the
// host output volume, concurrently across devices (spec §4.4's "Merge"
// and §9's "cross-device parallel, writes to disjoint host slabs").
func (s *Stage) merge(ctx context.Context, vol geometry.Volume) error {
	host := make([]float32, vol.DimX*vol.DimY*vol.DimZ)

	s.volumesMu.Lock()
	volumes := append([]*deviceVolumes(nil), s.volumes...)
	s.volumesMu.Unlock()

	pool := concurrency.New(len(volumes))
	defer pool.Close()

	tasks := make([]concurrency.Task, 0, len(volumes))
	for _, dv := range volumes {
		dv := dv
		tasks = append(tasks, func() error {
			for i, sv := range dv.subs {
				copySlab(host, vol, dv.bufs[i], sv)
			}
			return nil
		})
	}
	if err := pool.RunAll(tasks...); err != nil {
		return err
	}

	return s.sink.Accept(vol.DimX, vol.DimY, vol.DimZ, host)
}

func copySlab(host []float32, vol geometry.Volume, buf gpu.Buffer3D, sv scheduler.SubVolume) {
	for k := 0; k < sv.DimX; k++ {
		for l := 0; l < sv.DimY; l++ {
			for m := 0; m < sv.DimZLocal; m++ {
				globalZ := sv.ZOffset + m
				idx := (k*vol.DimY+l)*vol.DimZ + globalZ
				host[idx] = buf.At(k, l, m)
			}
		}
	}
}

// Close releases every device's sub-volume buffers.
func (s *Stage) Close() error {
	s.volumesMu.Lock()
	defer s.volumesMu.Unlock()
	for _, dv := range s.volumes {
		dv.release()
	}
	s.volumes = nil
	return nil
}
