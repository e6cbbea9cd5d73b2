// Package raster holds the two grid types that flow through the terrain
// pipeline: the geographic elevation mosaic and the local planar height
// grid. It also provides bilinear sampling and the stitcher that merges
// source rasters into a gap-free mosaic.
package raster

import (
	"fmt"
	"math"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
)

// NoData marks a cell with no valid elevation sample. It matches the SRTM
// void sentinel so local tiles pass through without translation.
const NoData float32 = -32768

// IsNoData reports whether v is the missing-sample sentinel.
func IsNoData(v float32) bool { return v == NoData }

// GeoRaster is an elevation raster over a geographic bounding box. Cells
// are square in degrees and stored row-major with row 0 at the northern
// edge. Elevation is meters; missing samples hold NoData.
type GeoRaster struct {
	Bounds  geo.BoundingBox
	Rows    int
	Cols    int
	CellDeg float64

	// SourceResMeters records the approximate ground resolution of the
	// originating source, carried as provenance for zoom/window decisions.
	SourceResMeters float64

	Elev []float32
}

// NewGeoRaster allocates a raster of the given shape with every cell set
// to NoData. The bounding box is derived from the north-west corner and
// the cell size.
func NewGeoRaster(north, west float64, rows, cols int, cellDeg float64) *GeoRaster {
	r := &GeoRaster{
		Bounds: geo.BoundingBox{
			West:  west,
			North: north,
			East:  west + float64(cols)*cellDeg,
			South: north - float64(rows)*cellDeg,
		},
		Rows:    rows,
		Cols:    cols,
		CellDeg: cellDeg,
		Elev:    make([]float32, rows*cols),
	}
	for i := range r.Elev {
		r.Elev[i] = NoData
	}
	return r
}

// At returns the elevation of cell (row, col). Out-of-range indices
// return NoData.
func (r *GeoRaster) At(row, col int) float32 {
	if row < 0 || row >= r.Rows || col < 0 || col >= r.Cols {
		return NoData
	}
	return r.Elev[row*r.Cols+col]
}

// Set stores an elevation at cell (row, col). Out-of-range indices are
// ignored.
func (r *GeoRaster) Set(row, col int, v float32) {
	if row < 0 || row >= r.Rows || col < 0 || col >= r.Cols {
		return
	}
	r.Elev[row*r.Cols+col] = v
}

// CellCenter returns the geographic coordinate of the cell's centre.
func (r *GeoRaster) CellCenter(row, col int) geo.LatLon {
	return geo.LatLon{
		Lat: r.Bounds.North - (float64(row)+0.5)*r.CellDeg,
		Lon: r.Bounds.West + (float64(col)+0.5)*r.CellDeg,
	}
}

// CellBounds returns the geographic rectangle of one cell.
func (r *GeoRaster) CellBounds(row, col int) geo.BoundingBox {
	return geo.BoundingBox{
		West:  r.Bounds.West + float64(col)*r.CellDeg,
		East:  r.Bounds.West + float64(col+1)*r.CellDeg,
		North: r.Bounds.North - float64(row)*r.CellDeg,
		South: r.Bounds.North - float64(row+1)*r.CellDeg,
	}
}

func (r *GeoRaster) String() string {
	return fmt.Sprintf("GeoRaster %dx%d cell=%.6f° %s", r.Rows, r.Cols, r.CellDeg, r.Bounds)
}

// PlanarGrid is an elevation raster in local planar meters. The grid is
// centred on the map area's centroid: cell (0,0) is the north-west corner
// at (-width/2, +height/2) in projected coordinates. Stored row-major,
// row 0 northmost.
type PlanarGrid struct {
	Rows       int
	Cols       int
	CellMeters float64
	Elev       []float32
}

// NewPlanarGrid allocates a zeroed planar grid.
func NewPlanarGrid(rows, cols int, cellMeters float64) *PlanarGrid {
	return &PlanarGrid{
		Rows:       rows,
		Cols:       cols,
		CellMeters: cellMeters,
		Elev:       make([]float32, rows*cols),
	}
}

// At returns the elevation of cell (row, col).
func (g *PlanarGrid) At(row, col int) float32 {
	return g.Elev[row*g.Cols+col]
}

// Set stores an elevation at cell (row, col).
func (g *PlanarGrid) Set(row, col int, v float32) {
	g.Elev[row*g.Cols+col] = v
}

// CellCenterXY returns the planar coordinate of the cell centre, with the
// grid centred on the origin.
func (g *PlanarGrid) CellCenterXY(row, col int) (x, y float64) {
	halfW := float64(g.Cols) * g.CellMeters / 2
	halfH := float64(g.Rows) * g.CellMeters / 2
	x = -halfW + (float64(col)+0.5)*g.CellMeters
	y = halfH - (float64(row)+0.5)*g.CellMeters
	return x, y
}

// MinMax returns the smallest and largest elevation in the grid.
func (g *PlanarGrid) MinMax() (min, max float32) {
	min = float32(math.Inf(1))
	max = float32(math.Inf(-1))
	for _, v := range g.Elev {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
