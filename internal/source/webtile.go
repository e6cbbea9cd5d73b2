package source

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
	"github.com/rampage128/qgis-game-worlds/internal/httputil"
	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/monitoring"
	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

// DefaultTileURL is the public terrarium-encoded elevation tileset.
const DefaultTileURL = "https://s3.amazonaws.com/elevation-tiles-prod/terrarium/{z}/{x}/{y}.png"

// Decoder converts a tile pixel color into an elevation in meters.
type Decoder interface {
	Name() string
	Elevation(r, g, b uint8) float32
}

// TerrariumDecoder decodes the terrarium RGB encoding.
type TerrariumDecoder struct{}

// Name identifies the encoding.
func (TerrariumDecoder) Name() string { return "terrarium" }

// Elevation decodes R*256 + G + B/256 - 32768.
func (TerrariumDecoder) Elevation(r, g, b uint8) float32 {
	return float32(r)*256 + float32(g) + float32(b)/256 - 32768
}

// MapboxDecoder decodes the Mapbox Terrain-RGB encoding.
type MapboxDecoder struct{}

// Name identifies the encoding.
func (MapboxDecoder) Name() string { return "mapbox" }

// Elevation decodes -10000 + (R*65536 + G*256 + B) * 0.1.
func (MapboxDecoder) Elevation(r, g, b uint8) float32 {
	return -10000 + (float32(r)*65536+float32(g)*256+float32(b))*0.1
}

// DecoderByName resolves an encoding name from configuration.
func DecoderByName(name string) (Decoder, error) {
	switch name {
	case "", "terrarium":
		return TerrariumDecoder{}, nil
	case "mapbox":
		return MapboxDecoder{}, nil
	}
	return nil, &maparea.ConfigurationError{Field: "tile-encoding", Reason: fmt.Sprintf("unknown encoding %q", name)}
}

// WebTiles fetches {z}/{x}/{y} PNG elevation tiles in Web Mercator,
// decodes them with the configured encoding, and resamples each tile onto
// a geographic grid before stitching.
type WebTiles struct {
	URLTemplate string
	Decode      Decoder

	client httputil.Doer

	// RetryBaseDelay is the first backoff delay; each retry doubles it
	// up to RetryMaxDelay. Exposed so tests run without real sleeps.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// NewWebTiles resolves the tile URL template and encoding.
func NewWebTiles(cfg Config) (*WebTiles, error) {
	tpl := cfg.TileURL
	if tpl == "" {
		tpl = DefaultTileURL
	}
	for _, ph := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(tpl, ph) {
			return nil, &maparea.ConfigurationError{Field: "tile-url", Reason: fmt.Sprintf("template missing %s placeholder", ph)}
		}
	}
	dec, err := DecoderByName(cfg.TileEncoding)
	if err != nil {
		return nil, err
	}
	return &WebTiles{
		URLTemplate:    tpl,
		Decode:         dec,
		client:         cfg.client(),
		RetryBaseDelay: 500 * time.Millisecond,
		RetryMaxDelay:  8 * time.Second,
	}, nil
}

// Name identifies the adapter.
func (w *WebTiles) Name() string { return "web-tiles/" + w.Decode.Name() }

// Fetch downloads every tile covering the padded extent at the zoom whose
// ground resolution meets the area's target resolution, then merges the
// reprojected tiles. Tiles are fetched concurrently; the first failure
// cancels the remaining downloads.
func (w *WebTiles) Fetch(ctx context.Context, area *maparea.MapArea, params Params) (*raster.GeoRaster, error) {
	box := area.GeographicExtent(params.padding())
	zoom := geo.ZoomForResolution(area.Centroid.Lat, area.Resolution)
	tiles := geo.TilesCovering(box, zoom)
	if len(tiles) == 0 {
		return nil, &raster.DataGapError{Region: box}
	}
	monitoring.Logf("fetching %d tiles at zoom %d for %s", len(tiles), zoom, box)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := params.limits().GetFetchWorkers()
	if workers > len(tiles) {
		workers = len(tiles)
	}
	retries := params.limits().GetRetryAttempts()

	rasters := make([]*raster.GeoRaster, len(tiles))
	jobs := make(chan int)
	errc := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				r, err := w.fetchTile(ctx, tiles[idx], retries)
				if err != nil {
					select {
					case errc <- err:
					default:
					}
					cancel()
					return
				}
				rasters[idx] = r
			}
		}()
	}

feed:
	for i := range tiles {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errc:
		return nil, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged, err := raster.Merge(rasters, box, raster.MergeOptions{AllowPartial: params.AllowPartial})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (w *WebTiles) tileURL(t geo.TileID) string {
	s := strings.ReplaceAll(w.URLTemplate, "{z}", strconv.Itoa(t.Z))
	s = strings.ReplaceAll(s, "{x}", strconv.Itoa(t.X))
	return strings.ReplaceAll(s, "{y}", strconv.Itoa(t.Y))
}

// fetchTile retries rate-limited and server-side failures with capped
// exponential backoff, like the provider-API adapter. Authentication
// failures are never retried.
func (w *WebTiles) fetchTile(ctx context.Context, t geo.TileID, retries int) (*raster.GeoRaster, error) {
	reqURL := w.tileURL(t)

	var lastStatus int
	var lastErr error

	attempts := retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := w.RetryBaseDelay << (attempt - 1)
			if delay > w.RetryMaxDelay {
				delay = w.RetryMaxDelay
			}
			monitoring.Logf("retrying tile %s in %s (attempt %d/%d)", reqURL, delay, attempt+1, attempts)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build tile request: %w", err)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			lastStatus = 0
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return nil, &NetworkError{URL: reqURL, StatusCode: resp.StatusCode, Attempts: attempt + 1}
			}
			lastStatus = resp.StatusCode
			lastErr = nil
			continue
		}

		img, err := png.Decode(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode tile %s: %w", reqURL, err)
		}
		return w.reproject(img, t), nil
	}

	return nil, &NetworkError{URL: reqURL, StatusCode: lastStatus, Attempts: attempts, Err: lastErr}
}

// reproject resamples a Web-Mercator tile onto a geographic grid. Rows are
// equally spaced in latitude; each output cell reads the mercator pixel
// its center falls in, so no elevation values are invented.
func (w *WebTiles) reproject(img image.Image, t geo.TileID) *raster.GeoRaster {
	bounds := t.Bounds()
	size := img.Bounds()

	cell := bounds.Width() / float64(geo.TileSizePixels)
	rows := int(math.Round(bounds.Height() / cell))
	if rows < 1 {
		rows = 1
	}

	out := raster.NewGeoRaster(bounds.North, bounds.West, rows, geo.TileSizePixels, cell)
	out.SourceResMeters = geo.GroundResolution((bounds.North+bounds.South)/2, t.Z)

	n := float64(int(1) << t.Z)
	mercTop := mercatorY(bounds.North)
	for row := 0; row < rows; row++ {
		lat := bounds.North - (float64(row)+0.5)*cell
		// Fractional pixel row within the tile at this latitude.
		py := (mercatorY(lat) - mercTop) * n * float64(geo.TileSizePixels)
		ipy := clampInt(int(py), 0, geo.TileSizePixels-1)
		for col := 0; col < geo.TileSizePixels; col++ {
			r, g, b, _ := img.At(size.Min.X+col, size.Min.Y+ipy).RGBA()
			out.Set(row, col, w.Decode.Elevation(uint8(r>>8), uint8(g>>8), uint8(b>>8)))
		}
	}
	return out
}

// mercatorY maps latitude to the global mercator y fraction in [0,1].
func mercatorY(lat float64) float64 {
	rad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
