package export

import (
	"bytes"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

// heightGrid adapts a planar grid to the plotter's grid interface. Plot
// rows grow upward, so row indices are flipped.
type heightGrid struct {
	g *raster.PlanarGrid
}

func (h heightGrid) Dims() (c, r int) { return h.g.Cols, h.g.Rows }

func (h heightGrid) Z(c, r int) float64 {
	return float64(h.g.At(h.g.Rows-1-r, c))
}

func (h heightGrid) X(c int) float64 {
	x, _ := h.g.CellCenterXY(0, c)
	return x
}

func (h heightGrid) Y(r int) float64 {
	_, y := h.g.CellCenterXY(h.g.Rows-1-r, 0)
	return y
}

// writePreview renders a heatmap of the final grid for a quick visual
// sanity check before loading the map in the game.
func (e *Exporter) writePreview(path string, grid *raster.PlanarGrid) error {
	p := plot.New()
	p.Title.Text = "elevation preview"
	p.X.Label.Text = "east (m)"
	p.Y.Label.Text = "north (m)"

	hm := plotter.NewHeatMap(heightGrid{g: grid}, palette.Heat(16, 1))
	p.Add(hm)

	w, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return &ExportError{Path: path, Reason: "render preview", Err: err}
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return &ExportError{Path: path, Reason: "render preview", Err: err}
	}
	if err := e.FS.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return &ExportError{Path: path, Reason: "write preview", Err: err}
	}
	return nil
}
