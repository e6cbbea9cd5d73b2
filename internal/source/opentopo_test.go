package source

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
	"github.com/rampage128/qgis-game-worlds/internal/httputil"
	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

const sampleGrid = `ncols 4
nrows 3
xllcorner 7.0
yllcorner 51.0
cellsize 0.25
NODATA_value -9999
10 20 30 40
50 -9999 70 80
90 100 110 120
`

func testArea(t *testing.T, source maparea.SourceKind) *maparea.MapArea {
	t.Helper()
	area, err := maparea.Create("ruhr", geo.LatLon{Lat: 51.5, Lon: 7.5}, 25000, 153.6, source, nil)
	require.NoError(t, err)
	return area
}

func newTestProvider(t *testing.T, client httputil.Doer) *ProviderAPI {
	t.Helper()
	p, err := NewProviderAPI(Config{APIKey: "test-key", Client: client})
	require.NoError(t, err)
	p.RetryBaseDelay = time.Millisecond
	return p
}

func TestParseASCIIGrid(t *testing.T) {
	t.Parallel()

	grid, err := parseASCIIGrid([]byte(sampleGrid))
	require.NoError(t, err)

	assert.Equal(t, 3, grid.Rows)
	assert.Equal(t, 4, grid.Cols)
	assert.InDelta(t, 7.0, grid.Bounds.West, 1e-9)
	assert.InDelta(t, 51.0, grid.Bounds.South, 1e-9)
	assert.InDelta(t, 51.75, grid.Bounds.North, 1e-9)

	// Row 0 is the north edge.
	assert.Equal(t, float32(10), grid.At(0, 0))
	assert.Equal(t, float32(120), grid.At(2, 3))
	assert.True(t, raster.IsNoData(grid.At(1, 1)))
}

func TestParseASCIIGrid_Truncated(t *testing.T) {
	t.Parallel()

	truncated := sampleGrid[:len(sampleGrid)-20]
	_, err := parseASCIIGrid([]byte(truncated))
	assert.Error(t, err)
}

func TestProviderAPI_FetchBuildsQuery(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockClient()
	mock.AddResponse(http.StatusOK, sampleGrid)
	p := newTestProvider(t, mock)

	area := testArea(t, maparea.SourceProviderAPI)
	grid, err := p.Fetch(context.Background(), area, Params{})
	require.NoError(t, err)
	assert.Equal(t, 3, grid.Rows)

	url := mock.RequestURL(0)
	assert.Contains(t, url, "demtype=COP30")
	assert.Contains(t, url, "outputFormat=AAIGrid")
	assert.Contains(t, url, "API_Key=test-key")
	assert.Contains(t, url, "south=")
}

func TestProviderAPI_RetriesRateLimit(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockClient()
	mock.AddResponse(http.StatusTooManyRequests, "")
	mock.AddResponse(http.StatusTooManyRequests, "")
	mock.AddResponse(http.StatusTooManyRequests, "")
	mock.AddResponse(http.StatusOK, sampleGrid)
	p := newTestProvider(t, mock)

	area := testArea(t, maparea.SourceProviderAPI)
	grid, err := p.Fetch(context.Background(), area, Params{})
	require.NoError(t, err)
	assert.Equal(t, 4, grid.Cols)
	assert.Equal(t, 4, mock.RequestCount())
}

func TestProviderAPI_ExhaustedRetries(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockClient()
	for i := 0; i < 4; i++ {
		mock.AddResponse(http.StatusTooManyRequests, "")
	}
	p := newTestProvider(t, mock)

	area := testArea(t, maparea.SourceProviderAPI)
	_, err := p.Fetch(context.Background(), area, Params{})

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusTooManyRequests, netErr.StatusCode)
	assert.Equal(t, 4, netErr.Attempts)
	assert.Equal(t, 4, mock.RequestCount())
}

func TestProviderAPI_AuthFailureNotRetried(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockClient()
	mock.AddResponse(http.StatusUnauthorized, "")
	p := newTestProvider(t, mock)

	area := testArea(t, maparea.SourceProviderAPI)
	_, err := p.Fetch(context.Background(), area, Params{})

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusUnauthorized, netErr.StatusCode)
	assert.Equal(t, 1, mock.RequestCount())
}

func TestProviderAPI_ContextCancelStopsRetries(t *testing.T) {
	t.Parallel()

	mock := httputil.NewMockClient()
	mock.AddResponse(http.StatusTooManyRequests, "")
	p := newTestProvider(t, mock)
	p.RetryBaseDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	area := testArea(t, maparea.SourceProviderAPI)

	done := make(chan error, 1)
	go func() {
		_, err := p.Fetch(ctx, area, Params{})
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not observe cancellation")
	}
}

func TestNewProviderAPI_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewProviderAPI(Config{APIKey: ""})
	var cfgErr *maparea.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "api-key", cfgErr.Field)

	_, err = NewProviderAPI(Config{APIKey: "k", Dataset: "BOGUS"})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "dataset", cfgErr.Field)

	p, err := NewProviderAPI(Config{APIKey: "k", Dataset: "EU_DTM"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p.Name(), "EU_DTM"))
}
