package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/rampage128/qgis-game-worlds/internal/raster"
)

// Height image encoding. The engine reads elevations from MinHeight to
// MaxHeight split into four bands of BandMeters each; within a band the
// red channel holds the height quantized to 255 steps.
const (
	MinHeight  = -80.0
	MaxHeight  = 6000.0
	BandMeters = 1520.0
	// StepMeters is the vertical size of one red-channel step.
	StepMeters = BandMeters / 255.0
)

// EncodeHeight quantizes an elevation into its band and red-channel step.
// Heights outside the representable range clamp to it.
func EncodeHeight(h float64) (band, step uint8) {
	v := h - MinHeight
	if v < 0 {
		v = 0
	}
	if v > MaxHeight-MinHeight {
		v = MaxHeight - MinHeight
	}
	b := int(v / BandMeters)
	if b > 3 {
		b = 3
	}
	s := int((v-float64(b)*BandMeters)/StepMeters + 0.5)
	if s > 255 {
		s = 255
	}
	return uint8(b), uint8(s)
}

// DecodeHeight reverses EncodeHeight to the band-step lattice.
func DecodeHeight(band, step uint8) float64 {
	return MinHeight + float64(band)*BandMeters + float64(step)*StepMeters
}

// writeHeightPNG renders the banded height image. Red carries the in-band
// height step, blue the band index scaled to 85 per band, and green the
// city level scaled to 51 per level when a city layer is present.
func (e *Exporter) writeHeightPNG(path string, grid *raster.PlanarGrid, cityLevels []uint8) error {
	img := image.NewNRGBA(image.Rect(0, 0, grid.Cols, grid.Rows))
	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Cols; col++ {
			band, step := EncodeHeight(float64(grid.At(row, col)))
			c := color.NRGBA{R: step, B: band * 85, A: 255}
			if cityLevels != nil {
				c.G = cityLevels[row*grid.Cols+col] * 51
			}
			img.SetNRGBA(col, row, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return &ExportError{Path: path, Reason: "encode height image", Err: err}
	}
	if err := e.FS.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return &ExportError{Path: path, Reason: "write height image", Err: err}
	}
	return nil
}
