// Package source fetches raw elevation data for a map area. Each adapter
// produces one geographic raster covering the area's padded extent; the
// rest of the pipeline never knows where the heights came from.
package source

import (
	"context"
	"fmt"

	"github.com/rampage128/qgis-game-worlds/internal/fsutil"
	"github.com/rampage128/qgis-game-worlds/internal/httputil"
	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

// DefaultPadding is the fraction of extra margin fetched around the map
// square so edge cells can be interpolated against real neighbours.
const DefaultPadding = 0.05

// Params carries run-scoped fetch settings.
type Params struct {
	// PaddingFraction widens the geographic extent on every side.
	// Zero means DefaultPadding.
	PaddingFraction float64

	// Limits bounds worker counts and retry attempts. Nil means defaults.
	Limits *maparea.Limits

	// AllowPartial accepts mosaics with uncovered cells instead of
	// failing with *raster.DataGapError; the gaps stay NoData.
	AllowPartial bool
}

func (p Params) padding() float64 {
	if p.PaddingFraction <= 0 {
		return DefaultPadding
	}
	return p.PaddingFraction
}

func (p Params) limits() *maparea.Limits {
	if p.Limits == nil {
		return maparea.DefaultLimits()
	}
	return p.Limits
}

// Adapter fetches elevation data covering a map area.
type Adapter interface {
	// Name identifies the adapter in logs and errors.
	Name() string

	// Fetch returns a geographic raster covering the area's padded
	// extent. Missing coverage surfaces as *raster.DataGapError unless
	// params.AllowPartial is set; remote failures as *NetworkError.
	Fetch(ctx context.Context, area *maparea.MapArea, params Params) (*raster.GeoRaster, error)
}

// NetworkError reports a failed remote elevation request after all
// permitted attempts.
type NetworkError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("elevation request %s failed with status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("elevation request %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Config collects provider settings, typically from CLI flags. Only the
// fields for the selected source kind need to be set.
type Config struct {
	// Provider-API source.
	Dataset string
	APIKey  string

	// Local-tile source.
	TileDir string

	// Web-tile source.
	TileURL      string
	TileEncoding string

	// Client is used by the network adapters. Nil means the default
	// HTTP client.
	Client httputil.Doer

	// FS is used by the local-tile adapter. Nil means the OS filesystem.
	FS fsutil.FileSystem
}

func (c Config) client() httputil.Doer {
	if c.Client == nil {
		return httputil.NewStandardClient(nil)
	}
	return c.Client
}

func (c Config) fs() fsutil.FileSystem {
	if c.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return c.FS
}

// ForKind builds the adapter matching the area's source discriminant.
func ForKind(kind maparea.SourceKind, cfg Config) (Adapter, error) {
	switch kind {
	case maparea.SourceProviderAPI:
		return NewProviderAPI(cfg)
	case maparea.SourceLocalTiles:
		return NewLocalTiles(cfg)
	case maparea.SourceWebTiles:
		return NewWebTiles(cfg)
	}
	return nil, &maparea.ConfigurationError{Field: "source", Reason: fmt.Sprintf("unknown source kind %q", kind)}
}
