package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileAt_KnownLocations(t *testing.T) {
	t.Parallel()

	// Zoom 0 is a single world tile.
	assert.Equal(t, TileID{Z: 0, X: 0, Y: 0}, TileAt(LatLon{Lat: 51.5, Lon: -0.1}, 0))

	// Zoom 1 splits the world into quadrants.
	assert.Equal(t, TileID{Z: 1, X: 0, Y: 0}, TileAt(LatLon{Lat: 51.5, Lon: -0.1}, 1))
	assert.Equal(t, TileID{Z: 1, X: 1, Y: 1}, TileAt(LatLon{Lat: -33.9, Lon: 151.2}, 1))
}

func TestTileBounds_ContainsItsCenterPoint(t *testing.T) {
	t.Parallel()

	for _, tile := range []TileID{
		{Z: 12, X: 2145, Y: 1428},
		{Z: 9, X: 268, Y: 178},
		{Z: 5, X: 0, Y: 0},
	} {
		require.True(t, tile.Valid())
		b := tile.Bounds()
		center := LatLon{Lat: (b.North + b.South) / 2, Lon: (b.West + b.East) / 2}
		assert.Equal(t, tile, TileAt(center, tile.Z), "tile %v", tile)
	}
}

func TestTilesCovering_RowMajorAndMinimal(t *testing.T) {
	t.Parallel()

	b := BoundingBox{West: 7.0, South: 50.0, East: 7.4, North: 50.3}
	tiles := TilesCovering(b, 10)
	require.NotEmpty(t, tiles)

	// Every tile must intersect the box and the union must cover it.
	var union BoundingBox
	for i, tile := range tiles {
		tb := tile.Bounds()
		union = union.Union(tb)
		if i > 0 {
			prev := tiles[i-1]
			inOrder := tile.Y > prev.Y || (tile.Y == prev.Y && tile.X > prev.X)
			assert.True(t, inOrder, "tiles not row-major at %d", i)
		}
	}
	assert.True(t, union.Covers(b))
}

func TestZoomForResolution(t *testing.T) {
	t.Parallel()

	// The selected zoom must meet the target and the next-coarser zoom
	// must miss it.
	for _, lat := range []float64{0, 48.2, -35.0} {
		z := ZoomForResolution(lat, 153.6)
		require.Greater(t, z, 0)
		assert.LessOrEqual(t, GroundResolution(lat, z), 153.6, "lat %f", lat)
		assert.Greater(t, GroundResolution(lat, z-1), 153.6, "lat %f", lat)
	}

	// An absurdly fine target clamps to the maximum zoom.
	assert.Equal(t, MaxTileZoom, ZoomForResolution(0, 0.001))
}

func TestGroundResolution_ShrinksWithLatitudeAndZoom(t *testing.T) {
	t.Parallel()

	assert.Greater(t, GroundResolution(0, 10), GroundResolution(60, 10))
	assert.Greater(t, GroundResolution(45, 8), GroundResolution(45, 9))
}
