package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gocbct/fdkrecon/geometry"
)

func testDetector() geometry.Detector {
	return geometry.Detector{
		NRow: 32, NCol: 32,
		LPxRow: 1.0, LPxCol: 1.0,
		DeltaS: 0, DeltaT: 0,
		DSO: 100, DOD: 100,
		NProj: 1,
	}
}

func TestPlanPartitionCompleteness(t *testing.T) {
	t.Parallel()

	d := testDetector()
	vol := geometry.CalculateVolumeGeometry(d)

	devices := []DeviceMemory{
		{ID: 0, GlobalMemBytes: vol.BytesPerVolume()},
	}

	plan, err := New().Plan(d, vol, devices)
	require.NoError(t, err)

	sum := 0
	lastEnd := 0
	for _, sv := range plan.SubVolumes {
		require.Equal(t, lastEnd, sv.ZOffset, "sub-volumes must be contiguous and non-overlapping")
		sum += sv.DimZLocal
		lastEnd = sv.ZOffset + sv.DimZLocal
	}
	require.Equal(t, vol.DimZ, sum, "sub-volume z-depths must sum to the full volume depth")
	require.Equal(t, vol.DimZ, lastEnd, "sub-volumes must cover [0, dim_z)")
}

func TestPlanSubProjectionBandsMonotone(t *testing.T) {
	t.Parallel()

	d := testDetector()
	vol := geometry.CalculateVolumeGeometry(d)
	devices := []DeviceMemory{{ID: 0, GlobalMemBytes: vol.BytesPerVolume()}}

	plan, err := New().Plan(d, vol, devices)
	require.NoError(t, err)

	for _, sv := range plan.SubVolumes {
		require.GreaterOrEqual(t, sv.RowTop, 0)
		require.LessOrEqual(t, sv.RowTop, sv.RowBottom)
		require.LessOrEqual(t, sv.RowBottom, d.NCol-1)
	}
}

// TestPlanTwoDeviceSplit is scenario S4 (spec §8): two devices, each
// holding exactly half the memory required for the full volume, must split
// the volume in half with no further halving.
func TestPlanTwoDeviceSplit(t *testing.T) {
	t.Parallel()

	d := testDetector()
	vol := geometry.CalculateVolumeGeometry(d)
	half := vol.BytesPerVolume() / 2

	devices := []DeviceMemory{
		{ID: 0, GlobalMemBytes: half},
		{ID: 1, GlobalMemBytes: half},
	}

	plan, err := New().Plan(d, vol, devices)
	require.NoError(t, err)
	require.Len(t, plan.SubVolumes, 2)

	require.Equal(t, 0, plan.SubVolumes[0].Device)
	require.Equal(t, 1, plan.SubVolumes[1].Device)
	require.Equal(t, vol.DimZ/2, plan.SubVolumes[0].DimZLocal)
	require.Equal(t, 0, plan.SubVolumes[0].ZOffset)
	require.Equal(t, vol.DimZ/2, plan.SubVolumes[1].ZOffset)
}

// TestPlanSingleDeviceHalving is scenario S5 (spec §8): a single device
// whose memory is constrained to roughly a quarter of the full volume must
// force a 4-way halving. Spec §8 literally specifies the memory bound as
// "bytes_per_volume/4 - 1", but that value sits exactly on a halving
// boundary under the documented algorithm (a chunk of precisely
// bytes_per_volume/4 would then be reported as not fitting, forcing an
// 8-way split instead of 4) — see DESIGN.md for the resolution used here:
// the test instead pins memory at exactly bytes_per_volume/4, the boundary
// at which a 4-way chunk fits exactly and the halving stops.
func TestPlanSingleDeviceHalving(t *testing.T) {
	t.Parallel()

	d := testDetector()
	vol := geometry.CalculateVolumeGeometry(d)
	quarter := vol.BytesPerVolume() / 4

	devices := []DeviceMemory{{ID: 0, GlobalMemBytes: quarter}}

	plan, err := New().Plan(d, vol, devices)
	require.NoError(t, err)
	require.Len(t, plan.SubVolumes, 4)

	sum := 0
	for i, sv := range plan.SubVolumes {
		require.Equal(t, 0, sv.Device)
		require.Equal(t, sum, sv.ZOffset)
		sum += sv.DimZLocal
		_ = i
	}
	require.Equal(t, vol.DimZ, sum)
}

func TestPlanRejectsInsufficientMemory(t *testing.T) {
	t.Parallel()

	d := testDetector()
	vol := geometry.CalculateVolumeGeometry(d)

	devices := []DeviceMemory{{ID: 0, GlobalMemBytes: 1}}

	_, err := New().Plan(d, vol, devices)
	require.ErrorIs(t, err, ErrInsufficientMemory)
}

func TestPlanRejectsNoDevices(t *testing.T) {
	t.Parallel()

	d := testDetector()
	vol := geometry.CalculateVolumeGeometry(d)

	_, err := New().Plan(d, vol, nil)
	require.ErrorIs(t, err, ErrNoDevices)
}
