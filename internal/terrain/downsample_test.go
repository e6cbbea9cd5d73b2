package terrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

func planarFrom(t *testing.T, cells []float32, rows, cols int, cellMeters float64) *raster.PlanarGrid {
	t.Helper()
	require.Len(t, cells, rows*cols)
	g := raster.NewPlanarGrid(rows, cols, cellMeters)
	copy(g.Elev, cells)
	return g
}

func TestDownsample_KeepsSpike(t *testing.T) {
	t.Parallel()

	// Flat terrain with one sharp peak. Averaging a 2x2 block would
	// report 32.5; the deviation rule keeps the peak itself.
	fine := planarFrom(t, []float32{
		10, 10, 10, 10,
		10, 100, 10, 10,
		10, 10, 10, 10,
		10, 10, 10, 10,
	}, 4, 4, 100)

	out := Downsample(fine, 2)
	require.Equal(t, 2, out.Rows)
	require.Equal(t, 2, out.Cols)

	assert.Equal(t, float32(100), out.At(0, 0))
	assert.Equal(t, float32(10), out.At(1, 1))
	assert.InDelta(t, 200, out.CellMeters, 1e-9)
}

func TestDownsample_KeepsDepression(t *testing.T) {
	t.Parallel()

	fine := planarFrom(t, []float32{
		50, 50,
		50, -30,
	}, 2, 2, 100)

	out := Downsample(fine, 2)
	assert.Equal(t, float32(-30), out.At(0, 0))
}

func TestDownsample_OutputDrawnFromInput(t *testing.T) {
	t.Parallel()

	fine := raster.NewPlanarGrid(8, 8, 50)
	for i := range fine.Elev {
		fine.Elev[i] = float32((i*37)%211) - 80
	}
	fineMin, fineMax := fine.MinMax()

	out := Downsample(fine, 4)
	outMin, outMax := out.MinMax()

	// Selection never synthesizes values outside the input range.
	assert.GreaterOrEqual(t, outMin, fineMin)
	assert.LessOrEqual(t, outMax, fineMax)
}

func TestDownsample_TieBreaks(t *testing.T) {
	t.Parallel()

	// Estimate at the output centre is 4; cells 8 and 0 deviate equally,
	// so the larger absolute elevation wins.
	fine := planarFrom(t, []float32{
		8, 0,
		4, 4,
	}, 2, 2, 100)
	out := Downsample(fine, 2)
	assert.Equal(t, float32(8), out.At(0, 0))

	// Full tie: equal deviation and equal magnitude keeps the first
	// cell in row-major order.
	fine = planarFrom(t, []float32{
		6, -6,
		0, 0,
	}, 2, 2, 100)
	out = Downsample(fine, 2)
	assert.Equal(t, float32(6), out.At(0, 0))
}

func TestDownsample_WindowOnePassesThrough(t *testing.T) {
	t.Parallel()

	fine := planarFrom(t, []float32{1, 2, 3, 4}, 2, 2, 100)
	out := Downsample(fine, 1)
	assert.Same(t, fine, out)
}

func TestDownsample_Deterministic(t *testing.T) {
	t.Parallel()

	fine := raster.NewPlanarGrid(16, 16, 25)
	for i := range fine.Elev {
		fine.Elev[i] = float32((i*53)%997) / 7
	}

	a := Downsample(fine, 4)
	b := Downsample(fine, 4)
	assert.Equal(t, a.Elev, b.Elev)
}
