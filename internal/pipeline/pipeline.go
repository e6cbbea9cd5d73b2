// Package pipeline wires the export stages together: fetch, reproject,
// downsample, rasterize cities, and write artifacts. All intermediate
// rasters are transient; a failed run leaves nothing behind but the typed
// error that stopped it.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rampage128/qgis-game-worlds/internal/cities"
	"github.com/rampage128/qgis-game-worlds/internal/export"
	"github.com/rampage128/qgis-game-worlds/internal/host"
	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/monitoring"
	"github.com/rampage128/qgis-game-worlds/internal/source"
	"github.com/rampage128/qgis-game-worlds/internal/terrain"
)

// Pipeline runs terrain exports for map areas.
type Pipeline struct {
	Host     host.Host
	Exporter *export.Exporter
	Source   source.Config
	Limits   *maparea.Limits

	// Workers bounds the reprojection pool; zero means GOMAXPROCS.
	Workers int

	// AllowPartial accepts incomplete source coverage; uncovered cells
	// stay NoData in the mosaic and only fail the run if the reprojector
	// actually samples them.
	AllowPartial bool
}

// stages in reporting order.
const (
	stageFetch     = "fetch"
	stageReproject = "reproject"
	stageCities    = "cities"
	stageExport    = "export"
)

// Export runs the full pipeline for one area. citySet may be nil.
func (p *Pipeline) Export(ctx context.Context, area *maparea.MapArea, citySet *cities.Set) (*export.Artifacts, error) {
	if area.RotationDeg != 0 {
		return nil, &maparea.ConfigurationError{Field: "rotation", Reason: "rotated areas are not supported"}
	}
	adapter, err := source.ForKind(area.Source, p.Source)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("exporting area %q via %s", area.Name, adapter.Name())

	total := 3
	if citySet != nil {
		total = 4
	}
	done := 0
	step := func(stage string) {
		done++
		p.Host.ReportProgress(stage, done, total)
	}

	params := source.Params{Limits: p.Limits, AllowPartial: p.AllowPartial}
	mosaic, err := adapter.Fetch(ctx, area, params)
	if err != nil {
		return nil, fmt.Errorf("fetch elevation for %q: %w", area.Name, err)
	}
	step(stageFetch)

	grid, err := terrain.BuildHeightmap(ctx, area, mosaic, p.Workers)
	if err != nil {
		return nil, fmt.Errorf("build heightmap for %q: %w", area.Name, err)
	}
	step(stageReproject)

	var cityLevels []uint8
	if citySet != nil {
		cityLevels, err = citySet.Rasterize(area)
		if err != nil {
			return nil, fmt.Errorf("rasterize cities for %q: %w", area.Name, err)
		}
		step(stageCities)
	}

	artifacts, err := p.Exporter.Export(area, grid, cityLevels)
	if err != nil {
		return nil, err
	}
	step(stageExport)

	p.Host.PublishResult("heightmap", artifacts.Payload)
	p.Host.PublishResult("metadata", artifacts.Metadata)
	p.Host.PublishResult("height image", artifacts.HeightPNG)
	p.Host.PublishResult("map descriptor", artifacts.Descriptor)
	p.Host.PublishResult("preview", artifacts.Preview)
	p.Host.PublishResult("report", artifacts.Report)
	return artifacts, nil
}
