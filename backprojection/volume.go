package backprojection

import (
	"github.com/gocbct/fdkrecon/gpu"
	"github.com/gocbct/fdkrecon/scheduler"
)

// deviceVolumes holds the allocated, zeroed sub-volume buffers owned by
// one device until the merge step (spec §4.4 step 1, §3 sub-volume
// invariant: "exclusively owned by its back-projection worker until the
// merge phase").
type deviceVolumes struct {
	device int
	subs   []scheduler.SubVolume
	bufs   []gpu.Buffer3D
}

// allocate creates one Buffer3D per sub-volume assigned to device, via
// the given factory (the tensorbackend reference implementation in
// production wiring, a fake in tests).
func allocate(device int, subs []scheduler.SubVolume, newBuffer3D func(device, dimX, dimY, dimZ int) (gpu.Buffer3D, error)) (*deviceVolumes, error) {
	dv := &deviceVolumes{device: device, subs: subs, bufs: make([]gpu.Buffer3D, len(subs))}
	for i, sv := range subs {
		buf, err := newBuffer3D(device, sv.DimX, sv.DimY, sv.DimZLocal)
		if err != nil {
			return nil, err
		}
		buf.Zero()
		dv.bufs[i] = buf
	}
	return dv, nil
}

func (dv *deviceVolumes) release() {
	for _, b := range dv.bufs {
		if b != nil {
			b.Release()
		}
	}
}
