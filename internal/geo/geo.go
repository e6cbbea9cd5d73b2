// Package geo provides geographic coordinate types and the projection math
// used by the terrain pipeline: an azimuthal-equidistant projection for the
// local map plane and Web-Mercator tile arithmetic for XYZ elevation tiles.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean earth radius used for spherical projection math.
const EarthRadiusMeters = 6371008.8

// EarthCircumferenceMeters is the equatorial circumference used for
// Web-Mercator ground resolution calculations.
const EarthCircumferenceMeters = 40075016.686

// LatLon is a geographic coordinate in degrees (WGS84).
type LatLon struct {
	Lat float64
	Lon float64
}

func (p LatLon) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// BoundingBox is a geographic rectangle in degrees. West/East are
// longitudes, South/North latitudes. Not antimeridian-aware; map areas are
// bounded well below the size where that matters.
type BoundingBox struct {
	West  float64
	South float64
	East  float64
	North float64
}

// Contains reports whether the point lies inside or on the box.
func (b BoundingBox) Contains(p LatLon) bool {
	return p.Lon >= b.West && p.Lon <= b.East && p.Lat >= b.South && p.Lat <= b.North
}

// Width returns the longitudinal span in degrees.
func (b BoundingBox) Width() float64 { return b.East - b.West }

// Height returns the latitudinal span in degrees.
func (b BoundingBox) Height() float64 { return b.North - b.South }

// IsEmpty reports whether the box has no area.
func (b BoundingBox) IsEmpty() bool {
	return b.East <= b.West || b.North <= b.South
}

// Union returns the smallest box containing both boxes.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return BoundingBox{
		West:  math.Min(b.West, o.West),
		South: math.Min(b.South, o.South),
		East:  math.Max(b.East, o.East),
		North: math.Max(b.North, o.North),
	}
}

// Covers reports whether b fully contains o.
func (b BoundingBox) Covers(o BoundingBox) bool {
	return o.West >= b.West && o.East <= b.East && o.South >= b.South && o.North <= b.North
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("W%.5f S%.5f E%.5f N%.5f", b.West, b.South, b.East, b.North)
}

// MetersPerDegreeLat is the approximate ground distance of one degree of
// latitude. Longitude degrees shrink with cos(lat); see MetersPerDegreeLon.
const MetersPerDegreeLat = 111320.0

// MetersPerDegreeLon returns the ground distance of one degree of longitude
// at the given latitude.
func MetersPerDegreeLon(lat float64) float64 {
	return MetersPerDegreeLat * math.Cos(lat*math.Pi/180)
}
