package gpu

// CPUDevice is the reference Device used when no real GPU runtime wrapper
// is wired in (spec §1 non-goals: "a CPU back-end may exist as a
// reference but is not the design target"). Work submitted to its streams
// runs synchronously on the calling goroutine, so Synchronize is always a
// no-op.
type CPUDevice struct {
	id      int
	memory  uint64
}

var _ Device = CPUDevice{}

// NewCPUDevice returns a reference Device advertising memBytes of
// available memory under the given id.
func NewCPUDevice(id int, memBytes uint64) CPUDevice {
	return CPUDevice{id: id, memory: memBytes}
}

func (d CPUDevice) ID() int                 { return d.id }
func (d CPUDevice) GlobalMemBytes() uint64  { return d.memory }
func (d CPUDevice) NewStream() (Stream, error) {
	return cpuStream{}, nil
}

type cpuStream struct{}

var _ Stream = cpuStream{}

func (cpuStream) Synchronize() error { return nil }
