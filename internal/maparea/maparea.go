// Package maparea defines the map area entity: the geographic extent,
// local projection and output resolution a terrain export is built
// against. A MapArea is created once per user action and passed explicitly
// through every later pipeline stage.
package maparea

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
	"github.com/rampage128/qgis-game-worlds/internal/security"
)

// Engine terrain constants. A segment (chunk) is the engine's fixed
// terrain tiling unit; each segment is sampled at SamplesPerSegment cells.
const (
	SegmentMeters     = 3072.0
	SamplesPerSegment = 20
	// DefaultResolution is the engine cell size: SegmentMeters / SamplesPerSegment.
	DefaultResolution = 153.6

	MinSegments = 8
	MaxSegments = 64
)

// SourceKind selects which elevation source adapter feeds the pipeline.
// Exactly one kind is used per run; the set is closed and new sources
// extend it without touching downstream stages.
type SourceKind string

const (
	SourceProviderAPI SourceKind = "opentopo"
	SourceLocalTiles  SourceKind = "hgt"
	SourceWebTiles    SourceKind = "xyz"
)

// Valid reports whether k names a known source adapter.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceProviderAPI, SourceLocalTiles, SourceWebTiles:
		return true
	}
	return false
}

// ConfigurationError reports an invalid map area request: oversized
// extent, bad resolution, unknown source or a name collision.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid map area configuration: %s: %s", e.Field, e.Reason)
}

// MapArea is the persisted description of one exportable region.
type MapArea struct {
	ID       string
	Name     string
	Centroid geo.LatLon

	// ExtentMeters is the square edge length, always a whole number of
	// segments.
	ExtentMeters float64
	Segments     int

	// RotationDeg is carried for forward compatibility; only 0 is
	// accepted today.
	RotationDeg float64

	// Resolution is the target ground resolution in meters. It steers
	// source fidelity (web-tile zoom, reprojection oversampling window);
	// the export grid itself is always Segments*SamplesPerSegment cells
	// spanning ExtentMeters, so its cell size stays DefaultResolution.
	Resolution float64

	Source SourceKind

	// ImproveGPS applies the in-game longitude correction when the
	// south-west corner is written to the export descriptor.
	ImproveGPS bool
}

// Create validates the request, snaps the extent to whole segments, and
// fixes the area's local projection at the centroid. It fails with
// *ConfigurationError before any network or raster work can begin.
func Create(name string, centroid geo.LatLon, extentMeters, resolution float64, source SourceKind, limits *Limits) (*MapArea, error) {
	if limits == nil {
		limits = DefaultLimits()
	}

	if err := security.ValidateName(name); err != nil {
		return nil, &ConfigurationError{Field: "name", Reason: err.Error()}
	}
	if resolution <= 0 {
		return nil, &ConfigurationError{Field: "resolution", Reason: fmt.Sprintf("must be positive, got %g", resolution)}
	}
	if !source.Valid() {
		return nil, &ConfigurationError{Field: "source", Reason: fmt.Sprintf("unknown source kind %q", source)}
	}
	if centroid.Lat < -85 || centroid.Lat > 85 {
		return nil, &ConfigurationError{Field: "centroid", Reason: fmt.Sprintf("latitude %.4f outside usable range", centroid.Lat)}
	}
	if centroid.Lon < -180 || centroid.Lon > 180 {
		return nil, &ConfigurationError{Field: "centroid", Reason: fmt.Sprintf("longitude %.4f outside usable range", centroid.Lon)}
	}

	maxExtent := float64(limits.GetMaxSegments()) * SegmentMeters
	if extentMeters > maxExtent {
		return nil, &ConfigurationError{
			Field:  "extent",
			Reason: fmt.Sprintf("%.0fm exceeds maximum of %.0fm (%d segments)", extentMeters, maxExtent, limits.GetMaxSegments()),
		}
	}
	if extentMeters <= 0 {
		return nil, &ConfigurationError{Field: "extent", Reason: "must be positive"}
	}

	segments := int(extentMeters / SegmentMeters)
	if segments < MinSegments {
		segments = MinSegments
	}
	if segments > limits.GetMaxSegments() {
		segments = limits.GetMaxSegments()
	}

	return &MapArea{
		ID:           uuid.New().String(),
		Name:         name,
		Centroid:     centroid,
		ExtentMeters: float64(segments) * SegmentMeters,
		Segments:     segments,
		Resolution:   resolution,
		Source:       source,
	}, nil
}

// Projection returns the area's azimuthal-equidistant projection. The
// projection is a pure function of the centroid, so deriving it on demand
// keeps MapArea a plain serialisable value.
func (a *MapArea) Projection() *geo.AzimuthalEquidistant {
	return geo.NewAzimuthalEquidistant(a.Centroid)
}

// SamplesPerSide returns the final export edge length in cells.
func (a *MapArea) SamplesPerSide() int {
	return a.Segments * SamplesPerSegment
}

// GeographicExtent returns the geographic bounding box that fully covers
// the planar map square, padded by the given fraction so edge cells can be
// interpolated without touching the raster border.
func (a *MapArea) GeographicExtent(padding float64) geo.BoundingBox {
	proj := a.Projection()
	half := a.ExtentMeters / 2 * (1 + padding)

	var box geo.BoundingBox
	first := true
	for _, c := range [][2]float64{
		{-half, -half}, {-half, half}, {half, -half}, {half, half},
		{0, -half}, {0, half}, {-half, 0}, {half, 0},
	} {
		p := proj.Inverse(c[0], c[1])
		if first {
			box = geo.BoundingBox{West: p.Lon, East: p.Lon, South: p.Lat, North: p.Lat}
			first = false
			continue
		}
		if p.Lon < box.West {
			box.West = p.Lon
		}
		if p.Lon > box.East {
			box.East = p.Lon
		}
		if p.Lat < box.South {
			box.South = p.Lat
		}
		if p.Lat > box.North {
			box.North = p.Lat
		}
	}
	return box
}

// CornerSW returns the geographic south-west corner of the map square,
// optionally with the in-game GPS longitude correction applied.
func (a *MapArea) CornerSW() geo.LatLon {
	half := a.ExtentMeters / 2
	corner := a.Projection().Inverse(-half, -half)
	if a.ImproveGPS {
		// The engine computes GPS positions assuming square degrees; fake
		// a longitude that compensates for the latitude-dependent
		// shrinkage, as the original area tool does.
		correction := (a.ExtentMeters / (2 * geo.MetersPerDegreeLat)) *
			(1/math.Cos(a.Centroid.Lat*math.Pi/180) - 1)
		corner.Lon += correction
	}
	return corner
}
