// Package export writes the finished heightmap to disk: the raw elevation
// payload with its metadata sidecar, the banded game-ready height image,
// the map descriptor, and the preview and report artifacts.
package export

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/stat"

	"github.com/rampage128/qgis-game-worlds/internal/fsutil"
	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/monitoring"
	"github.com/rampage128/qgis-game-worlds/internal/raster"
	"github.com/rampage128/qgis-game-worlds/internal/security"
)

// ExportError reports a failed artifact write or an unexportable grid.
type ExportError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("export %s: %s", e.Path, e.Reason)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Artifacts lists the files one export run produced.
type Artifacts struct {
	Payload    string
	Metadata   string
	HeightPNG  string
	Descriptor string
	Preview    string
	Report     string
}

// Metadata is the JSON sidecar describing the payload.
type Metadata struct {
	AreaID     string  `json:"area_id"`
	Name       string  `json:"name"`
	Rows       int     `json:"rows"`
	Cols       int     `json:"cols"`
	CellMeters float64 `json:"cell_meters"`
	Segments   int     `json:"segments"`

	// OriginLat/Lon is the geographic south-west corner of the map.
	OriginLat float64 `json:"origin_lat"`
	OriginLon float64 `json:"origin_lon"`

	MinElevation  float64 `json:"min_elevation"`
	MaxElevation  float64 `json:"max_elevation"`
	MeanElevation float64 `json:"mean_elevation"`
	StdDev        float64 `json:"std_dev"`
	Source        string  `json:"source"`
}

// Exporter writes all artifacts for a map area into OutDir/<area name>/.
type Exporter struct {
	FS     fsutil.FileSystem
	OutDir string
}

// NewExporter builds an exporter rooted at outDir. A nil filesystem means
// the OS filesystem.
func NewExporter(fs fsutil.FileSystem, outDir string) *Exporter {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Exporter{FS: fs, OutDir: outDir}
}

// Export validates the grid against the area and writes every artifact.
// cityLevels may be nil; otherwise it must match the grid cell count.
// Writes go through the atomic filesystem path, and identical inputs
// always produce byte-identical files.
func (e *Exporter) Export(area *maparea.MapArea, grid *raster.PlanarGrid, cityLevels []uint8) (*Artifacts, error) {
	if err := validateGrid(area, grid, cityLevels); err != nil {
		return nil, err
	}

	dir := filepath.Join(e.OutDir, area.Name)
	if err := security.ValidatePathWithinDirectory(dir, e.OutDir); err != nil {
		return nil, &ExportError{Path: dir, Reason: "unsafe output path", Err: err}
	}
	if err := e.FS.MkdirAll(dir, 0o755); err != nil {
		return nil, &ExportError{Path: dir, Reason: "create output directory", Err: err}
	}

	a := &Artifacts{
		Payload:    filepath.Join(dir, "heights.bin"),
		Metadata:   filepath.Join(dir, "heights.json"),
		HeightPNG:  filepath.Join(dir, "height.png"),
		Descriptor: filepath.Join(dir, area.Name+".vtm"),
		Preview:    filepath.Join(dir, "preview.png"),
		Report:     filepath.Join(dir, "report.html"),
	}

	if err := e.writePayload(a.Payload, grid); err != nil {
		return nil, err
	}
	if err := e.writeMetadata(a.Metadata, area, grid); err != nil {
		return nil, err
	}
	if err := e.writeHeightPNG(a.HeightPNG, grid, cityLevels); err != nil {
		return nil, err
	}
	if err := e.writeDescriptor(a.Descriptor, area); err != nil {
		return nil, err
	}
	if err := e.writePreview(a.Preview, grid); err != nil {
		return nil, err
	}
	if err := e.writeReport(a.Report, area, grid); err != nil {
		return nil, err
	}

	monitoring.Logf("exported %d artifacts for area %q to %s", 6, area.Name, dir)
	return a, nil
}

func validateGrid(area *maparea.MapArea, grid *raster.PlanarGrid, cityLevels []uint8) error {
	if grid.Rows != grid.Cols {
		return &ExportError{Reason: fmt.Sprintf("grid must be square, got %dx%d", grid.Rows, grid.Cols)}
	}
	if grid.Rows != area.SamplesPerSide() {
		return &ExportError{Reason: fmt.Sprintf("grid is %d cells per side, area needs %d", grid.Rows, area.SamplesPerSide())}
	}
	if grid.Rows%maparea.SamplesPerSegment != 0 {
		return &ExportError{Reason: fmt.Sprintf("grid side %d is not a multiple of %d", grid.Rows, maparea.SamplesPerSegment)}
	}
	if cityLevels != nil && len(cityLevels) != grid.Rows*grid.Cols {
		return &ExportError{Reason: fmt.Sprintf("city layer has %d cells, grid has %d", len(cityLevels), grid.Rows*grid.Cols)}
	}
	for i, v := range grid.Elev {
		if raster.IsNoData(v) || math.IsNaN(float64(v)) {
			return &ExportError{Reason: fmt.Sprintf("grid cell %d holds no valid elevation", i)}
		}
	}
	return nil
}

// writePayload stores the raw grid as little-endian float32, row-major,
// row 0 northmost.
func (e *Exporter) writePayload(path string, grid *raster.PlanarGrid) error {
	buf := make([]byte, 4*len(grid.Elev))
	for i, v := range grid.Elev {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	if err := e.FS.WriteFileAtomic(path, buf, 0o644); err != nil {
		return &ExportError{Path: path, Reason: "write payload", Err: err}
	}
	return nil
}

func (e *Exporter) writeMetadata(path string, area *maparea.MapArea, grid *raster.PlanarGrid) error {
	min, max := grid.MinMax()

	elev := make([]float64, len(grid.Elev))
	for i, v := range grid.Elev {
		elev[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(elev, nil)

	origin := area.CornerSW()
	meta := Metadata{
		AreaID:        area.ID,
		Name:          area.Name,
		Rows:          grid.Rows,
		Cols:          grid.Cols,
		CellMeters:    grid.CellMeters,
		Segments:      area.Segments,
		OriginLat:     origin.Lat,
		OriginLon:     origin.Lon,
		MinElevation:  float64(min),
		MaxElevation:  float64(max),
		MeanElevation: mean,
		StdDev:        std,
		Source:        string(area.Source),
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return &ExportError{Path: path, Reason: "encode metadata", Err: err}
	}
	data = append(data, '\n')
	if err := e.FS.WriteFileAtomic(path, data, 0o644); err != nil {
		return &ExportError{Path: path, Reason: "write metadata", Err: err}
	}
	return nil
}
