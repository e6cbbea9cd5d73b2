package terrain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

func testArea(t *testing.T) *maparea.MapArea {
	t.Helper()
	area, err := maparea.Create("alps", geo.LatLon{Lat: 47.0, Lon: 11.0}, 25000, 153.6, maparea.SourceLocalTiles, nil)
	require.NoError(t, err)
	return area
}

// flatMosaic covers the area's padded extent with a constant elevation.
func flatMosaic(t *testing.T, area *maparea.MapArea, elevation float32, resMeters float64) *raster.GeoRaster {
	t.Helper()

	box := area.GeographicExtent(0.1)
	cell := 0.001
	rows := int(box.Height()/cell) + 2
	cols := int(box.Width()/cell) + 2
	m := raster.NewGeoRaster(box.North+cell, box.West-cell, rows, cols, cell)
	m.SourceResMeters = resMeters
	for i := range m.Elev {
		m.Elev[i] = elevation
	}
	return m
}

func TestReproject_FlatTerrain(t *testing.T) {
	t.Parallel()

	area := testArea(t)
	mosaic := flatMosaic(t, area, 420, 111)

	grid, err := Reproject(context.Background(), area, mosaic, area.SamplesPerSide(), 4)
	require.NoError(t, err)

	assert.Equal(t, area.SamplesPerSide(), grid.Rows)
	assert.Equal(t, area.SamplesPerSide(), grid.Cols)
	assert.InDelta(t, area.Resolution, grid.CellMeters, 1e-9)

	min, max := grid.MinMax()
	assert.InDelta(t, 420, float64(min), 0.01)
	assert.InDelta(t, 420, float64(max), 0.01)
}

func TestReproject_LatitudeGradientKeepsOrientation(t *testing.T) {
	t.Parallel()

	area := testArea(t)
	mosaic := flatMosaic(t, area, 0, 111)
	// Elevation rises northward: one meter per cell row.
	for row := 0; row < mosaic.Rows; row++ {
		for col := 0; col < mosaic.Cols; col++ {
			mosaic.Set(row, col, float32(mosaic.Rows-row))
		}
	}

	grid, err := Reproject(context.Background(), area, mosaic, area.SamplesPerSide(), 0)
	require.NoError(t, err)

	// Row 0 is the northern edge in both grids.
	assert.Greater(t, grid.At(0, 0), grid.At(grid.Rows-1, 0))
}

func TestReproject_OutOfCoverage(t *testing.T) {
	t.Parallel()

	area := testArea(t)
	// A mosaic far away from the area.
	mosaic := raster.NewGeoRaster(10, 10, 50, 50, 0.001)
	for i := range mosaic.Elev {
		mosaic.Elev[i] = 5
	}

	_, err := Reproject(context.Background(), area, mosaic, area.SamplesPerSide(), 2)
	var projErr *ProjectionError
	require.ErrorAs(t, err, &projErr)
	assert.NotZero(t, projErr.Point.Lat)
}

func TestReproject_Cancelled(t *testing.T) {
	t.Parallel()

	area := testArea(t)
	mosaic := flatMosaic(t, area, 1, 111)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Reproject(ctx, area, mosaic, area.SamplesPerSide(), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWindow(t *testing.T) {
	t.Parallel()

	area := testArea(t)

	tests := []struct {
		resMeters float64
		want      int
	}{
		{0, 1},     // unknown provenance
		{160, 1},   // coarser than the target
		{75, 2},    // roughly half the target cell
		{30, 5},    // typical 1-arcsecond source
		{10, 8},    // capped
	}
	for _, tc := range tests {
		src := &raster.GeoRaster{SourceResMeters: tc.resMeters}
		assert.Equal(t, tc.want, Window(area, src), "res %.0f", tc.resMeters)
	}
}

func TestBuildHeightmap_OutputDimensions(t *testing.T) {
	t.Parallel()

	area := testArea(t)
	mosaic := flatMosaic(t, area, 1000, 75)

	grid, err := BuildHeightmap(context.Background(), area, mosaic, 4)
	require.NoError(t, err)

	assert.Equal(t, area.SamplesPerSide(), grid.Rows)
	assert.Equal(t, area.SamplesPerSide(), grid.Cols)
	min, max := grid.MinMax()
	assert.InDelta(t, 1000, float64(min), 0.01)
	assert.InDelta(t, 1000, float64(max), 0.01)
}
