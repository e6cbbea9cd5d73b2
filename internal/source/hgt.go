package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/rampage128/qgis-game-worlds/internal/fsutil"
	"github.com/rampage128/qgis-game-worlds/internal/geo"
	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/monitoring"
	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

// LocalTiles reads 1°x1° SRTM height tiles from a local directory and
// stitches the ones intersecting the area's extent.
type LocalTiles struct {
	Dir string
	fs  fsutil.FileSystem
}

// NewLocalTiles validates the tile directory setting.
func NewLocalTiles(cfg Config) (*LocalTiles, error) {
	if cfg.TileDir == "" {
		return nil, &maparea.ConfigurationError{Field: "tile-dir", Reason: "required for the local tile source"}
	}
	return &LocalTiles{Dir: cfg.TileDir, fs: cfg.fs()}, nil
}

// Name identifies the adapter.
func (l *LocalTiles) Name() string { return "local-tiles" }

// Fetch loads every tile intersecting the padded extent and merges them.
// Adjacent tiles share their edge row and column; the merge keeps the
// later tile's values there, which are identical anyway.
func (l *LocalTiles) Fetch(ctx context.Context, area *maparea.MapArea, params Params) (*raster.GeoRaster, error) {
	box := area.GeographicExtent(params.padding())

	var tiles []*raster.GeoRaster
	var missing []string
	var missingBox geo.BoundingBox
	for lat := int(math.Floor(box.South)); lat <= int(math.Floor(box.North)); lat++ {
		for lon := int(math.Floor(box.West)); lon <= int(math.Floor(box.East)); lon++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			name := TileName(lat, lon)
			path := filepath.Join(l.Dir, name)
			if !l.fs.Exists(path) {
				missing = append(missing, name)
				missingBox = missingBox.Union(geo.BoundingBox{
					West: float64(lon), East: float64(lon) + 1,
					South: float64(lat), North: float64(lat) + 1,
				})
				continue
			}
			tile, err := l.readTile(path, lat, lon)
			if err != nil {
				return nil, fmt.Errorf("read tile %s: %w", name, err)
			}
			tiles = append(tiles, tile)
		}
	}

	if len(missing) > 0 && !params.AllowPartial {
		monitoring.Logf("missing height tiles in %s: %s", l.Dir, strings.Join(missing, ", "))
		return nil, &raster.DataGapError{Region: missingBox, Cells: len(missing)}
	}
	monitoring.Logf("loaded %d height tiles covering %s", len(tiles), box)

	merged, err := raster.Merge(tiles, box, raster.MergeOptions{AllowPartial: params.AllowPartial})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// TileName returns the SW-corner file name of the tile holding the given
// integer degree cell, e.g. N51E007.hgt or S34W071.hgt.
func TileName(lat, lon int) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
		lat = -lat
	}
	if lon < 0 {
		ew = "W"
		lon = -lon
	}
	return fmt.Sprintf("%s%02d%s%03d.hgt", ns, lat, ew, lon)
}

// Tile sample grids are (n x n) big-endian int16, inclusive of both tile
// edges, row 0 northmost.
const (
	samplesSRTM1 = 3601
	samplesSRTM3 = 1201
)

func (l *LocalTiles) readTile(path string, lat, lon int) (*raster.GeoRaster, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var n int
	switch len(data) {
	case samplesSRTM1 * samplesSRTM1 * 2:
		n = samplesSRTM1
	case samplesSRTM3 * samplesSRTM3 * 2:
		n = samplesSRTM3
	default:
		return nil, fmt.Errorf("unexpected tile size %d bytes", len(data))
	}

	// Sample points sit on a 1/(n-1) degree lattice including both
	// edges; center the raster cells on the sample points.
	cell := 1.0 / float64(n-1)
	north := float64(lat) + 1 + cell/2
	west := float64(lon) - cell/2

	tile := raster.NewGeoRaster(north, west, n, n, cell)
	tile.SourceResMeters = cell * geo.MetersPerDegreeLat

	for i := 0; i < n*n; i++ {
		v := int16(binary.BigEndian.Uint16(data[2*i:]))
		if v == -32768 {
			tile.Elev[i] = raster.NoData
		} else {
			tile.Elev[i] = float32(v)
		}
	}
	return tile, nil
}
