package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
n_row: 32
n_col: 32
l_px_row: 1.0
l_px_col: 1.0
delta_s: 0
delta_t: 0
d_so: 100
d_od: 100
n_proj: 1
rot_angle: 1.0
roi:
  x1: 1
  x2: 10
  y1: 1
  y2: 10
  z1: 1
  z2: 10
devices:
  - id: 0
    global_mem_bytes: 1073741824
  - id: 1
    global_mem_bytes: 1073741824
`

func TestLoadDecodesDetectorROIAndDevices(t *testing.T) {
	t.Parallel()

	g, err := Load(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	d := g.Detector()
	require.Equal(t, 32, d.NRow)
	require.Equal(t, float32(100), d.DSO)
	require.Equal(t, 1, d.NProj)

	roi, ok := g.ROIValue()
	require.True(t, ok)
	require.Equal(t, 1, roi.X1)
	require.Equal(t, 10, roi.X2)

	devices := g.DeviceMemory()
	require.Len(t, devices, 2)
	require.Equal(t, 1, devices[1].ID)
}

func TestLoadWithoutROIReturnsNotPresent(t *testing.T) {
	t.Parallel()

	g, err := Load(strings.NewReader("n_row: 8\nn_col: 8\nn_proj: 1\nd_so: 1\n"))
	require.NoError(t, err)

	_, ok := g.ROIValue()
	require.False(t, ok)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := Load(strings.NewReader("n_row: [this is not an int\n"))
	require.Error(t, err)
}
