package cities

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
)

// GeoJSON feature-collection shapes, trimmed to what city zones need.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   geometry       `json:"geometry"`
}

type geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// MarshalGeoJSON renders the set as a GeoJSON FeatureCollection with one
// polygon feature per zone. Coordinates are [lon, lat] per the standard.
func (s *Set) MarshalGeoJSON() ([]byte, error) {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(s.Zones))}
	for _, z := range s.Zones {
		ring := make([][2]float64, 0, len(z.Ring)+1)
		for _, p := range z.Ring {
			ring = append(ring, [2]float64{p.Lon, p.Lat})
		}
		if len(ring) > 0 {
			ring = append(ring, ring[0])
		}
		fc.Features = append(fc.Features, feature{
			Type: "Feature",
			Properties: map[string]any{
				"name":  z.Name,
				"level": z.Level,
			},
			Geometry: geometry{Type: "Polygon", Coordinates: [][][2]float64{ring}},
		})
	}
	return json.MarshalIndent(fc, "", "  ")
}

// UnmarshalGeoJSON parses a FeatureCollection of polygon features into the
// set, dropping the closing vertex GeoJSON rings carry.
func (s *Set) UnmarshalGeoJSON(data []byte) error {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse city geojson: %w", err)
	}

	s.Zones = s.Zones[:0]
	for i, f := range fc.Features {
		if f.Geometry.Type != "Polygon" || len(f.Geometry.Coordinates) == 0 {
			return fmt.Errorf("city feature %d: expected polygon geometry, got %q", i, f.Geometry.Type)
		}

		name, _ := f.Properties["name"].(string)
		level := 0
		if v, ok := f.Properties["level"].(float64); ok {
			level = int(v)
		}

		src := f.Geometry.Coordinates[0]
		if len(src) > 1 && src[0] == src[len(src)-1] {
			src = src[:len(src)-1]
		}
		ring := make([]geo.LatLon, len(src))
		for j, c := range src {
			ring[j] = geo.LatLon{Lon: c[0], Lat: c[1]}
		}
		s.Zones = append(s.Zones, Zone{Name: name, Level: level, Ring: ring})
	}
	return s.Validate()
}

// LoadFile reads a city zone GeoJSON file.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read city zones: %w", err)
	}
	var s Set
	if err := s.UnmarshalGeoJSON(data); err != nil {
		return nil, err
	}
	return &s, nil
}
