package export

import (
	"fmt"
	"strings"

	"github.com/rampage128/qgis-game-worlds/internal/maparea"
)

// writeDescriptor emits the brace-block map descriptor the game loads
// alongside the height image.
func (e *Exporter) writeDescriptor(path string, area *maparea.MapArea) error {
	origin := area.CornerSW()

	var b strings.Builder
	b.WriteString("VTMapCustom\n{\n")
	fmt.Fprintf(&b, "\tmapID = %s\n", area.Name)
	fmt.Fprintf(&b, "\tmapName = %s\n", area.Name)
	fmt.Fprintf(&b, "\tmapDescription = generated from %s elevation data\n", area.Source)
	b.WriteString("\tmapType = HeightMap\n")
	b.WriteString("\tedgeMode = Hills\n")
	fmt.Fprintf(&b, "\tmapSize = %d\n", area.Segments)
	fmt.Fprintf(&b, "\tmapLatitude = %.6f\n", origin.Lat)
	fmt.Fprintf(&b, "\tmapLongitude = %.6f\n", origin.Lon)
	b.WriteString("}\n")

	if err := e.FS.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return &ExportError{Path: path, Reason: "write descriptor", Err: err}
	}
	return nil
}
