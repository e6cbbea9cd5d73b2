// Package terrain converts the geographic elevation mosaic into the final
// engine-oriented height grid: reprojection onto the map area's local
// plane followed by detail-preserving downsampling to the target
// resolution.
package terrain

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/monitoring"
	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

// ProjectionError reports a planar cell whose geographic position falls
// outside the fetched mosaic.
type ProjectionError struct {
	Point geo.LatLon
	Row   int
	Col   int
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("cell (%d,%d) maps to %s outside the elevation mosaic", e.Row, e.Col, e.Point)
}

// maxWindow caps the oversampling window so a very fine source cannot
// blow up memory.
const maxWindow = 8

// Window returns how many fine cells per output cell edge the mosaic's
// source resolution supports, between 1 and maxWindow.
func Window(area *maparea.MapArea, src *raster.GeoRaster) int {
	if src.SourceResMeters <= 0 {
		return 1
	}
	w := int(area.Resolution/src.SourceResMeters + 0.5)
	if w < 1 {
		return 1
	}
	if w > maxWindow {
		return maxWindow
	}
	return w
}

// Reproject samples the geographic mosaic onto a square planar grid
// centred on the map area. Each planar cell centre is inverse-projected to
// its geographic position and bilinearly sampled. Rows are processed by a
// bounded worker pool; the first out-of-coverage cell aborts the run.
func Reproject(ctx context.Context, area *maparea.MapArea, src *raster.GeoRaster, cells int, workers int) (*raster.PlanarGrid, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	cellMeters := area.ExtentMeters / float64(cells)
	grid := raster.NewPlanarGrid(cells, cells, cellMeters)
	proj := area.Projection()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rowCh := make(chan int)
	errCh := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rowCh {
				if err := reprojectRow(grid, proj, src, row); err != nil {
					select {
					case errCh <- err:
					default:
					}
					cancel()
					return
				}
			}
		}()
	}

feed:
	for row := 0; row < cells; row++ {
		select {
		case rowCh <- row:
		case <-ctx.Done():
			break feed
		}
	}
	close(rowCh)
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return grid, nil
}

func reprojectRow(grid *raster.PlanarGrid, proj *geo.AzimuthalEquidistant, src *raster.GeoRaster, row int) error {
	for col := 0; col < grid.Cols; col++ {
		x, y := grid.CellCenterXY(row, col)
		p := proj.Inverse(x, y)
		v := src.Sample(p)
		if raster.IsNoData(v) {
			return &ProjectionError{Point: p, Row: row, Col: col}
		}
		grid.Set(row, col, v)
	}
	return nil
}

// BuildHeightmap runs the full terrain stage: pick the oversampling
// window from the mosaic's source resolution, reproject at the fine cell
// size, and downsample to the area's output grid.
func BuildHeightmap(ctx context.Context, area *maparea.MapArea, src *raster.GeoRaster, workers int) (*raster.PlanarGrid, error) {
	window := Window(area, src)
	fineCells := area.SamplesPerSide() * window
	monitoring.Logf("reprojecting %dx%d cells (window %d) for area %s", fineCells, fineCells, window, area.Name)

	fine, err := Reproject(ctx, area, src, fineCells, workers)
	if err != nil {
		return nil, err
	}
	return Downsample(fine, window), nil
}
