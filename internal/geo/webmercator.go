package geo

import "math"

// TileSizePixels is the edge length of a standard XYZ raster tile.
const TileSizePixels = 256

// MaxTileZoom is the deepest zoom level the web-tile adapter will request.
const MaxTileZoom = 15

// TileID addresses one tile in the XYZ (slippy map) scheme.
type TileID struct {
	Z int
	X int
	Y int
}

// Valid reports whether the tile coordinates exist at the given zoom.
func (t TileID) Valid() bool {
	n := 1 << uint(t.Z)
	return t.Z >= 0 && t.Z < 32 && t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

// TileAt returns the tile containing the given coordinate at a zoom level.
func TileAt(p LatLon, zoom int) TileID {
	n := float64(int(1) << uint(zoom))
	latRad := p.Lat * math.Pi / 180
	x := int((p.Lon + 180) / 360 * n)
	y := int((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n)
	if x >= int(n) {
		x = int(n) - 1
	}
	if y >= int(n) {
		y = int(n) - 1
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return TileID{Z: zoom, X: x, Y: y}
}

// Bounds returns the geographic bounding box of the tile. The north edge is
// the tile's y coordinate, the south edge y+1.
func (t TileID) Bounds() BoundingBox {
	n := float64(int(1) << uint(t.Z))
	return BoundingBox{
		West:  float64(t.X)/n*360 - 180,
		East:  float64(t.X+1)/n*360 - 180,
		North: tileLat(float64(t.Y), n),
		South: tileLat(float64(t.Y+1), n),
	}
}

func tileLat(y, n float64) float64 {
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/n)))
	return latRad * 180 / math.Pi
}

// TilesCovering returns the minimal set of tiles at the given zoom whose
// union covers the bounding box, in row-major order (north to south, west
// to east) so downstream stitching is deterministic.
func TilesCovering(b BoundingBox, zoom int) []TileID {
	nw := TileAt(LatLon{Lat: b.North, Lon: b.West}, zoom)
	se := TileAt(LatLon{Lat: b.South, Lon: b.East}, zoom)

	tiles := make([]TileID, 0, (se.X-nw.X+1)*(se.Y-nw.Y+1))
	for y := nw.Y; y <= se.Y; y++ {
		for x := nw.X; x <= se.X; x++ {
			tiles = append(tiles, TileID{Z: zoom, X: x, Y: y})
		}
	}
	return tiles
}

// GroundResolution returns the meters-per-pixel of tiles at the given zoom
// and latitude.
func GroundResolution(lat float64, zoom int) float64 {
	return EarthCircumferenceMeters * math.Cos(lat*math.Pi/180) /
		(TileSizePixels * float64(int(1)<<uint(zoom)))
}

// ZoomForResolution returns the smallest zoom level whose ground resolution
// at the given latitude meets or exceeds (is finer than or equal to) the
// target resolution in meters per pixel. The result is clamped to
// [0, MaxTileZoom].
func ZoomForResolution(lat, targetMeters float64) int {
	for z := 0; z <= MaxTileZoom; z++ {
		if GroundResolution(lat, z) <= targetMeters {
			return z
		}
	}
	return MaxTileZoom
}
