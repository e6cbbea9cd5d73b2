package raster

import (
	"math"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
)

// Sample bilinearly interpolates the raster at a geographic coordinate.
// The four surrounding cell centres contribute; cells holding NoData are
// dropped and the remaining weights renormalised, so a single void next to
// a valid sample does not poison it. Returns NoData when the point is
// outside the raster or all contributors are voids.
func (r *GeoRaster) Sample(p geo.LatLon) float32 {
	if !r.Bounds.Contains(p) {
		return NoData
	}

	// Fractional cell position relative to cell centres.
	fc := (p.Lon-r.Bounds.West)/r.CellDeg - 0.5
	fr := (r.Bounds.North-p.Lat)/r.CellDeg - 0.5

	c0 := int(math.Floor(fc))
	r0 := int(math.Floor(fr))
	tc := fc - float64(c0)
	tr := fr - float64(r0)

	var sum, wsum float64
	for _, s := range [4]struct {
		dr, dc int
		w      float64
	}{
		{0, 0, (1 - tr) * (1 - tc)},
		{0, 1, (1 - tr) * tc},
		{1, 0, tr * (1 - tc)},
		{1, 1, tr * tc},
	} {
		row := clamp(r0+s.dr, 0, r.Rows-1)
		col := clamp(c0+s.dc, 0, r.Cols-1)
		v := r.At(row, col)
		if IsNoData(v) {
			continue
		}
		sum += float64(v) * s.w
		wsum += s.w
	}

	if wsum <= 0 {
		return NoData
	}
	return float32(sum / wsum)
}

// SampleXY bilinearly interpolates the planar grid at a local coordinate.
// Points beyond the outermost cell centres clamp to the edge value.
func (g *PlanarGrid) SampleXY(x, y float64) float32 {
	halfW := float64(g.Cols) * g.CellMeters / 2
	halfH := float64(g.Rows) * g.CellMeters / 2

	fc := (x+halfW)/g.CellMeters - 0.5
	fr := (halfH-y)/g.CellMeters - 0.5

	c0 := int(math.Floor(fc))
	r0 := int(math.Floor(fr))
	tc := fc - float64(c0)
	tr := fr - float64(r0)

	v00 := g.At(clamp(r0, 0, g.Rows-1), clamp(c0, 0, g.Cols-1))
	v01 := g.At(clamp(r0, 0, g.Rows-1), clamp(c0+1, 0, g.Cols-1))
	v10 := g.At(clamp(r0+1, 0, g.Rows-1), clamp(c0, 0, g.Cols-1))
	v11 := g.At(clamp(r0+1, 0, g.Rows-1), clamp(c0+1, 0, g.Cols-1))

	top := float64(v00)*(1-tc) + float64(v01)*tc
	bot := float64(v10)*(1-tc) + float64(v11)*tc
	return float32(top*(1-tr) + bot*tr)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
