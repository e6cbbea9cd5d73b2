package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

const histogramBins = 32

// writeReport renders an elevation histogram as a standalone HTML page.
func (e *Exporter) writeReport(path string, area *maparea.MapArea, grid *raster.PlanarGrid) error {
	min, max := grid.MinMax()
	span := float64(max - min)
	if span <= 0 {
		span = 1
	}
	width := span / histogramBins

	counts := make([]int, histogramBins)
	for _, v := range grid.Elev {
		bin := int(float64(v-min) / width)
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		counts[bin]++
	}

	labels := make([]string, histogramBins)
	data := make([]opts.BarData, histogramBins)
	for i := range counts {
		labels[i] = fmt.Sprintf("%.0f", float64(min)+(float64(i)+0.5)*width)
		data[i] = opts.BarData{Value: counts[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		// Pin the chart id to the area so identical exports render
		// byte-identical HTML.
		charts.WithInitializationOpts(opts.Initialization{
			ChartID: strings.ReplaceAll(area.ID, "-", ""),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Elevation distribution: %s", area.Name),
			Subtitle: fmt.Sprintf("%dx%d cells, %.1f m/cell", grid.Rows, grid.Cols, grid.CellMeters),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "elevation (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "cells"}),
	)
	bar.SetXAxis(labels).AddSeries("cells", data)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return &ExportError{Path: path, Reason: "render report", Err: err}
	}
	if err := e.FS.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return &ExportError{Path: path, Reason: "write report", Err: err}
	}
	return nil
}
