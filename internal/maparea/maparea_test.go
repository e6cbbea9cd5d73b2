package maparea

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
)

func TestCreate_SnapsExtentToSegments(t *testing.T) {
	t.Parallel()

	a, err := Create("alps", geo.LatLon{Lat: 46.5, Lon: 10.5}, 100000, DefaultResolution, SourceProviderAPI, nil)
	require.NoError(t, err)

	assert.Equal(t, 32, a.Segments) // 100000 / 3072 = 32.55 -> 32
	assert.Equal(t, 32*SegmentMeters, a.ExtentMeters)
	assert.Equal(t, 640, a.SamplesPerSide())
	assert.NotEmpty(t, a.ID)
}

func TestCreate_OversizedExtentFailsBeforeAnyWork(t *testing.T) {
	t.Parallel()

	_, err := Create("toobig", geo.LatLon{Lat: 46.5, Lon: 10.5}, MaxSegments*SegmentMeters+1, DefaultResolution, SourceLocalTiles, nil)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "extent", cfgErr.Field)
}

func TestCreate_RejectsBadInputs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		areaName   string
		centroid   geo.LatLon
		extent     float64
		resolution float64
		source     SourceKind
		wantField  string
	}{
		{"empty name", "", geo.LatLon{Lat: 46, Lon: 10}, 50000, DefaultResolution, SourceProviderAPI, "name"},
		{"zero resolution", "a", geo.LatLon{Lat: 46, Lon: 10}, 50000, 0, SourceProviderAPI, "resolution"},
		{"negative resolution", "a", geo.LatLon{Lat: 46, Lon: 10}, 50000, -1, SourceProviderAPI, "resolution"},
		{"unknown source", "a", geo.LatLon{Lat: 46, Lon: 10}, 50000, DefaultResolution, SourceKind("ftp"), "source"},
		{"polar centroid", "a", geo.LatLon{Lat: 89, Lon: 10}, 50000, DefaultResolution, SourceProviderAPI, "centroid"},
		{"zero extent", "a", geo.LatLon{Lat: 46, Lon: 10}, 0, DefaultResolution, SourceProviderAPI, "extent"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Create(tc.areaName, tc.centroid, tc.extent, tc.resolution, tc.source, nil)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.wantField, cfgErr.Field)
		})
	}
}

func TestCreate_MinimumSegmentFloor(t *testing.T) {
	t.Parallel()

	a, err := Create("tiny", geo.LatLon{Lat: 50, Lon: 7}, 1000, DefaultResolution, SourceWebTiles, nil)
	require.NoError(t, err)
	assert.Equal(t, MinSegments, a.Segments)
}

func TestCreate_ResolutionDoesNotChangeGridSize(t *testing.T) {
	t.Parallel()

	// Resolution steers source fidelity only; the export grid is fixed by
	// the segment count.
	coarse, err := Create("coarse", geo.LatLon{Lat: 47, Lon: 11}, 25000, DefaultResolution, SourceLocalTiles, nil)
	require.NoError(t, err)
	fine, err := Create("fine", geo.LatLon{Lat: 47, Lon: 11}, 25000, 30, SourceLocalTiles, nil)
	require.NoError(t, err)

	assert.Equal(t, coarse.SamplesPerSide(), fine.SamplesPerSide())
	assert.Equal(t, coarse.ExtentMeters, fine.ExtentMeters)
}

func TestGeographicExtent_CoversMapSquare(t *testing.T) {
	t.Parallel()

	a, err := Create("cover", geo.LatLon{Lat: 47, Lon: 8}, 24*SegmentMeters, DefaultResolution, SourceLocalTiles, nil)
	require.NoError(t, err)

	box := a.GeographicExtent(0.02)
	proj := a.Projection()

	// Every corner of the planar square must project inside the box.
	half := a.ExtentMeters / 2
	for _, c := range [][2]float64{{-half, -half}, {-half, half}, {half, -half}, {half, half}} {
		p := proj.Inverse(c[0], c[1])
		assert.True(t, box.Contains(p), "corner %v -> %v outside %v", c, p, box)
	}
	assert.True(t, box.Contains(a.Centroid))
}

func TestCornerSW_GPSCorrectionShiftsEastward(t *testing.T) {
	t.Parallel()

	a, err := Create("gps", geo.LatLon{Lat: 55, Lon: 12}, 32*SegmentMeters, DefaultResolution, SourceProviderAPI, nil)
	require.NoError(t, err)

	plain := a.CornerSW()
	a.ImproveGPS = true
	corrected := a.CornerSW()

	assert.Equal(t, plain.Lat, corrected.Lat)
	assert.Greater(t, corrected.Lon, plain.Lon)
}

func TestLoadLimits(t *testing.T) {
	t.Parallel()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "limits.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"max_segments": 16}`), 0644))

		l, err := LoadLimits(path)
		require.NoError(t, err)
		assert.Equal(t, 16, l.GetMaxSegments())
		assert.Equal(t, 8, l.GetFetchWorkers())
		assert.Equal(t, 3, l.GetRetryAttempts())
	})

	t.Run("rejects out-of-range override", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "limits.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"max_segments": 1}`), 0644))
		_, err := LoadLimits(path)
		assert.Error(t, err)
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		t.Parallel()
		_, err := LoadLimits("limits.yaml")
		assert.Error(t, err)
	})
}

func TestCreate_CustomLimitCapsSegments(t *testing.T) {
	t.Parallel()

	maxSeg := 16
	limits := &Limits{MaxSegments: &maxSeg}

	_, err := Create("capped", geo.LatLon{Lat: 46, Lon: 10}, 17*SegmentMeters, DefaultResolution, SourceLocalTiles, limits)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "extent", cfgErr.Field)
}
