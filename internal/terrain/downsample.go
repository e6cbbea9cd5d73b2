package terrain

import (
	"math"

	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

// Downsample reduces the fine grid by the given window, keeping terrain
// detail a plain average would flatten. For each output cell a smooth
// bilinear estimate is taken at its centre, then the contributing fine
// cell deviating most from that estimate wins. Ties prefer the larger
// absolute elevation, then the first cell in row-major order, so repeated
// runs always pick the same sample.
func Downsample(fine *raster.PlanarGrid, window int) *raster.PlanarGrid {
	if window <= 1 {
		return fine
	}

	rows := fine.Rows / window
	cols := fine.Cols / window
	out := raster.NewPlanarGrid(rows, cols, fine.CellMeters*float64(window))

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cx, cy := out.CellCenterXY(row, col)
			estimate := fine.SampleXY(cx, cy)

			best := fine.At(row*window, col*window)
			bestDev := deviation(best, estimate)
			for dr := 0; dr < window; dr++ {
				for dc := 0; dc < window; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					v := fine.At(row*window+dr, col*window+dc)
					dev := deviation(v, estimate)
					if dev > bestDev || (dev == bestDev && abs(v) > abs(best)) {
						best = v
						bestDev = dev
					}
				}
			}
			out.Set(row, col, best)
		}
	}
	return out
}

func deviation(v, estimate float32) float64 {
	return math.Abs(float64(v) - float64(estimate))
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
