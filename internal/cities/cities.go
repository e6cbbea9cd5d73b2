// Package cities manages city zone polygons and burns them onto the
// export grid. Zones carry a density level from 1 (hamlet) to 5 (dense
// urban core); where zones overlap the higher level wins.
package cities

import (
	"fmt"
	"sort"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

// Level bounds for city zones.
const (
	MinLevel = 1
	MaxLevel = 5
)

// Zone is one city polygon with a density level.
type Zone struct {
	Name  string
	Level int

	// Ring is the polygon boundary; the closing edge from the last
	// vertex back to the first is implicit.
	Ring []geo.LatLon
}

// Validate checks the zone's level and geometry.
func (z *Zone) Validate() error {
	if z.Name == "" {
		return &maparea.ConfigurationError{Field: "city.name", Reason: "must not be empty"}
	}
	if z.Level < MinLevel || z.Level > MaxLevel {
		return &maparea.ConfigurationError{
			Field:  "city.level",
			Reason: fmt.Sprintf("%d outside range %d..%d for zone %q", z.Level, MinLevel, MaxLevel, z.Name),
		}
	}
	if len(z.Ring) < 3 {
		return &maparea.ConfigurationError{
			Field:  "city.ring",
			Reason: fmt.Sprintf("zone %q needs at least 3 vertices, got %d", z.Name, len(z.Ring)),
		}
	}
	return nil
}

// Set is a collection of city zones for one map area.
type Set struct {
	Zones []Zone
}

// Validate checks every zone.
func (s *Set) Validate() error {
	for i := range s.Zones {
		if err := s.Zones[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Rasterize paints the zones onto a level grid matching the area's output
// heightmap. Zones are painted in ascending level order, then by name, so
// overlaps resolve to the higher level no matter how the set was built.
func (s *Set) Rasterize(area *maparea.MapArea) ([]uint8, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	n := area.SamplesPerSide()
	levels := make([]uint8, n*n)

	ordered := make([]Zone, len(s.Zones))
	copy(ordered, s.Zones)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Level != ordered[j].Level {
			return ordered[i].Level < ordered[j].Level
		}
		return ordered[i].Name < ordered[j].Name
	})

	proj := area.Projection()
	grid := raster.NewPlanarGrid(n, n, area.Resolution)

	for _, zone := range ordered {
		ring := make([][2]float64, len(zone.Ring))
		for i, p := range zone.Ring {
			x, y := proj.Forward(p)
			ring[i] = [2]float64{x, y}
		}

		for row := 0; row < n; row++ {
			for col := 0; col < n; col++ {
				x, y := grid.CellCenterXY(row, col)
				if pointInRing(x, y, ring) {
					levels[row*n+col] = uint8(zone.Level)
				}
			}
		}
	}
	return levels, nil
}

// pointInRing runs an even-odd ray cast against the closed ring.
func pointInRing(x, y float64, ring [][2]float64) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
