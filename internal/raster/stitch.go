package raster

import (
	"fmt"
	"math"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
)

// DataGapError reports that the merged mosaic leaves part of the requested
// extent without elevation data. Region bounds the uncovered cells.
type DataGapError struct {
	Region geo.BoundingBox
	Cells  int
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("mosaic leaves %d cells uncovered in region %s", e.Cells, e.Region)
}

// MergeOptions tune the stitcher.
type MergeOptions struct {
	// CellDeg overrides the output cell size. Zero selects the finest
	// resolution among the inputs.
	CellDeg float64

	// AllowPartial suppresses the coverage check; uncovered cells remain
	// NoData in the result.
	AllowPartial bool
}

// Merge stitches the input rasters into one mosaic covering extent. Inputs
// are in priority order: later rasters overwrite earlier ones cell by cell,
// with no blending, so tile edges stay deterministic. Coarser inputs are
// resampled bilinearly onto the output grid. Unless opts.AllowPartial is
// set, any requested-extent cell still unset afterwards yields a
// *DataGapError naming the uncovered sub-region.
func Merge(inputs []*GeoRaster, extent geo.BoundingBox, opts MergeOptions) (*GeoRaster, error) {
	if len(inputs) == 0 {
		return nil, &DataGapError{Region: extent}
	}

	cellDeg := opts.CellDeg
	sourceRes := 0.0
	for _, in := range inputs {
		if cellDeg == 0 || (opts.CellDeg == 0 && in.CellDeg < cellDeg) {
			cellDeg = in.CellDeg
		}
		if sourceRes == 0 || in.SourceResMeters < sourceRes {
			sourceRes = in.SourceResMeters
		}
	}
	if cellDeg <= 0 {
		return nil, fmt.Errorf("merge: no usable cell size among %d inputs", len(inputs))
	}

	// Snap the output grid outward so it fully covers the extent.
	cols := int(math.Ceil(extent.Width() / cellDeg))
	rows := int(math.Ceil(extent.Height() / cellDeg))
	out := NewGeoRaster(extent.North, extent.West, rows, cols, cellDeg)
	out.SourceResMeters = sourceRes

	for _, in := range inputs {
		paint(out, in)
	}

	if !opts.AllowPartial {
		if gap := coverageGap(out, extent); gap != nil {
			return nil, gap
		}
	}
	return out, nil
}

// paint writes src onto dst for every dst cell whose centre falls inside
// src. Valid samples overwrite unconditionally; NoData never overwrites.
func paint(dst, src *GeoRaster) {
	for row := 0; row < dst.Rows; row++ {
		for col := 0; col < dst.Cols; col++ {
			center := dst.CellCenter(row, col)
			if !src.Bounds.Contains(center) {
				continue
			}
			v := src.Sample(center)
			if IsNoData(v) {
				continue
			}
			dst.Set(row, col, v)
		}
	}
}

// coverageGap scans cells whose centre lies inside the requested extent and
// returns the bounding box of any that remain NoData.
func coverageGap(r *GeoRaster, extent geo.BoundingBox) *DataGapError {
	var gap geo.BoundingBox
	count := 0
	for row := 0; row < r.Rows; row++ {
		for col := 0; col < r.Cols; col++ {
			if !extent.Contains(r.CellCenter(row, col)) {
				continue
			}
			if !IsNoData(r.At(row, col)) {
				continue
			}
			gap = gap.Union(r.CellBounds(row, col))
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return &DataGapError{Region: gap, Cells: count}
}
