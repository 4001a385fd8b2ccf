package weighting

import (
	"context"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"

	"github.com/gocbct/fdkrecon/geometry"
	"github.com/gocbct/fdkrecon/gpu/gocvbackend"
	"github.com/gocbct/fdkrecon/pipeline"
	"github.com/gocbct/fdkrecon/projection"
)

func testDetector() geometry.Detector {
	return geometry.Detector{
		NRow: 8, NCol: 8,
		LPxRow: 1.0, LPxCol: 1.0,
		DeltaS: 0, DeltaT: 0,
		DSO: 100, DOD: 100,
		NProj: 1,
	}
}

// TestWeightingMapMatchesClosedForm is the first half of spec §8 property
// 4: the precomputed weight map must equal
// w_st = d_sd/sqrt(d_sd^2+h_s^2+v_t^2) at every pixel to <= 1e-5 relative
// error. TestMapApplyScalesBufferInPlace applies the map to an all-ones
// projection.
func TestWeightingMapMatchesClosedForm(t *testing.T) {
	t.Parallel()

	d := testDetector()
	m := NewMap(d)
	dsd := d.DSD()
	hMin := d.DeltaS*d.LPxRow - float32(d.NRow)*d.LPxRow/2
	vMin := d.DeltaT*d.LPxCol - float32(d.NCol)*d.LPxCol/2

	for t2 := 0; t2 < d.NCol; t2++ {
		vT := d.LPxCol/2 + float32(t2)*d.LPxCol + vMin
		for s := 0; s < d.NRow; s++ {
			hS := d.LPxRow/2 + float32(s)*d.LPxRow + hMin
			want := dsd / math32.Sqrt(dsd*dsd+hS*hS+vT*vT)
			got := m.At(s, t2)
			require.InEpsilon(t, float64(want), float64(got), 1e-5)
		}
	}
}

func TestMapApplyScalesBufferInPlace(t *testing.T) {
	t.Parallel()

	d := testDetector()
	m := NewMap(d)

	buf, err := gocvbackend.NewBuffer2D(0, d.NRow, d.NCol)
	require.NoError(t, err)
	defer buf.Release()

	for t2 := 0; t2 < d.NCol; t2++ {
		row := buf.Row(t2)
		for s := 0; s < d.NRow; s++ {
			row[s] = 1.0
		}
	}

	m.Apply(buf)

	for t2 := 0; t2 < d.NCol; t2++ {
		row := buf.Row(t2)
		for s := 0; s < d.NRow; s++ {
			require.InDelta(t, float64(m.At(s, t2)), float64(row[s]), 1e-6)
		}
	}
}

func TestStageAppliesWeightingAndForwardsEnd(t *testing.T) {
	t.Parallel()

	d := testDetector()
	m := NewMap(d)

	in := pipeline.NewQueue(pipeline.MinCapacity(1))
	out := pipeline.NewQueue(pipeline.MinCapacity(1))

	buf, err := gocvbackend.NewBuffer2D(0, d.NRow, d.NCol)
	require.NoError(t, err)
	defer buf.Release()
	buf.Row(0)[0] = 1.0

	ctx := context.Background()
	require.NoError(t, in.Push(ctx, pipeline.DataItem(projection.Projection{Index: 0, Buffer: buf})))
	require.NoError(t, in.Broadcast(ctx, 1))

	stage := NewStage(in, out, 1, 1, m)
	require.NoError(t, stage.Start(ctx))

	item, err := out.Take(ctx)
	require.NoError(t, err)
	require.Equal(t, pipeline.KindData, item.Kind)
	require.InDelta(t, float64(m.At(0, 0)), float64(buf.Row(0)[0]), 1e-6)

	end, err := out.Take(ctx)
	require.NoError(t, err)
	require.Equal(t, pipeline.KindEnd, end.Kind)
}
