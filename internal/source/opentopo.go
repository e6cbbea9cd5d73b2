package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rampage128/qgis-game-worlds/internal/geo"
	"github.com/rampage128/qgis-game-worlds/internal/httputil"
	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/monitoring"
	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

// DefaultProviderURL is the global DEM endpoint of the provider API.
const DefaultProviderURL = "https://portal.opentopography.org/API/globaldem"

// Datasets accepted by the provider API.
var providerDatasets = map[string]bool{
	"COP30":   true,
	"COP90":   true,
	"EU_DTM":  true,
	"AW3D30":  true,
	"NASADEM": true,
	"SRTMGL1": true,
	"SRTMGL3": true,
}

// ProviderAPI fetches a whole bounding box in one request from a global
// DEM API and parses the ASCII-grid response.
type ProviderAPI struct {
	BaseURL string
	Dataset string
	APIKey  string

	client httputil.Doer

	// RetryBaseDelay is the first backoff delay; each retry doubles it
	// up to RetryMaxDelay. Exposed so tests run without real sleeps.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// NewProviderAPI validates the dataset and API key and builds the adapter.
func NewProviderAPI(cfg Config) (*ProviderAPI, error) {
	dataset := cfg.Dataset
	if dataset == "" {
		dataset = "COP30"
	}
	if !providerDatasets[dataset] {
		return nil, &maparea.ConfigurationError{Field: "dataset", Reason: fmt.Sprintf("unknown dataset %q", dataset)}
	}
	if cfg.APIKey == "" {
		return nil, &maparea.ConfigurationError{Field: "api-key", Reason: "required for the provider API source"}
	}
	return &ProviderAPI{
		BaseURL:        DefaultProviderURL,
		Dataset:        dataset,
		APIKey:         cfg.APIKey,
		client:         cfg.client(),
		RetryBaseDelay: 500 * time.Millisecond,
		RetryMaxDelay:  8 * time.Second,
	}, nil
}

// Name identifies the adapter.
func (p *ProviderAPI) Name() string { return "provider-api/" + p.Dataset }

// Fetch requests the area's padded bounding box as an ASCII grid.
func (p *ProviderAPI) Fetch(ctx context.Context, area *maparea.MapArea, params Params) (*raster.GeoRaster, error) {
	box := area.GeographicExtent(params.padding())

	q := url.Values{}
	q.Set("demtype", p.Dataset)
	q.Set("south", fmt.Sprintf("%.6f", box.South))
	q.Set("north", fmt.Sprintf("%.6f", box.North))
	q.Set("west", fmt.Sprintf("%.6f", box.West))
	q.Set("east", fmt.Sprintf("%.6f", box.East))
	q.Set("outputFormat", "AAIGrid")
	q.Set("API_Key", p.APIKey)
	reqURL := p.BaseURL + "?" + q.Encode()

	body, err := p.get(ctx, reqURL, params.limits().GetRetryAttempts())
	if err != nil {
		return nil, err
	}

	grid, err := parseASCIIGrid(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s response: %w", p.Dataset, err)
	}
	monitoring.Logf("fetched %dx%d cells of %s covering %s", grid.Rows, grid.Cols, p.Dataset, box)
	return grid, nil
}

// get retries rate-limited and server-side failures with capped
// exponential backoff. Authentication failures are never retried.
func (p *ProviderAPI) get(ctx context.Context, reqURL string, retries int) ([]byte, error) {
	var lastStatus int
	var lastErr error

	attempts := retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.RetryBaseDelay << (attempt - 1)
			if delay > p.RetryMaxDelay {
				delay = p.RetryMaxDelay
			}
			monitoring.Logf("retrying elevation request in %s (attempt %d/%d)", delay, attempt+1, attempts)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build elevation request: %w", err)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			lastStatus = 0
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			data, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read elevation response: %w", err)
			}
			return data, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return nil, &NetworkError{URL: reqURL, StatusCode: resp.StatusCode, Attempts: attempt + 1}
		default:
			resp.Body.Close()
			lastStatus = resp.StatusCode
			lastErr = nil
		}
	}

	return nil, &NetworkError{URL: reqURL, StatusCode: lastStatus, Attempts: attempts, Err: lastErr}
}

// parseASCIIGrid decodes an Esri ASCII grid: a small key/value header
// followed by whitespace-separated cell values, row 0 northmost.
func parseASCIIGrid(data []byte) (*raster.GeoRaster, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	next := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return sc.Text(), nil
	}

	header := make(map[string]float64)
	var firstValue string
	for {
		key, err := next()
		if err != nil {
			return nil, fmt.Errorf("grid header: %w", err)
		}
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			// First bare number ends the header.
			firstValue = key
			break
		}
		val, err := next()
		if err != nil {
			return nil, fmt.Errorf("grid header value for %q: %w", key, err)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("grid header value for %q: %w", key, err)
		}
		header[strings.ToLower(key)] = f
	}

	cols := int(header["ncols"])
	rows := int(header["nrows"])
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("grid header missing ncols/nrows")
	}
	cell, ok := header["cellsize"]
	if !ok || cell <= 0 {
		return nil, fmt.Errorf("grid header missing cellsize")
	}

	var west, south float64
	if v, ok := header["xllcorner"]; ok {
		west = v
	} else if v, ok := header["xllcenter"]; ok {
		west = v - cell/2
	} else {
		return nil, fmt.Errorf("grid header missing xllcorner")
	}
	if v, ok := header["yllcorner"]; ok {
		south = v
	} else if v, ok := header["yllcenter"]; ok {
		south = v - cell/2
	} else {
		return nil, fmt.Errorf("grid header missing yllcorner")
	}

	nodata := -9999.0
	if v, ok := header["nodata_value"]; ok {
		nodata = v
	}

	north := south + float64(rows)*cell
	grid := raster.NewGeoRaster(north, west, rows, cols, cell)
	grid.SourceResMeters = cell * geo.MetersPerDegreeLat

	value := firstValue
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if value == "" {
				v, err := next()
				if err != nil {
					return nil, fmt.Errorf("grid cell (%d,%d): %w", row, col, err)
				}
				value = v
			}
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("grid cell (%d,%d): %w", row, col, err)
			}
			value = ""
			if f == nodata {
				grid.Set(row, col, raster.NoData)
			} else {
				grid.Set(row, col, float32(f))
			}
		}
	}
	return grid, nil
}
