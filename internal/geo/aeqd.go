package geo

import "math"

// AzimuthalEquidistant is a spherical azimuthal-equidistant projection
// centred on a single point. Distances and directions from the centre are
// true, which keeps distortion negligible across a bounded map area and is
// why the pipeline projects every area onto its own instance rather than a
// shared zoned projection.
type AzimuthalEquidistant struct {
	Center LatLon

	sinLat0 float64
	cosLat0 float64
	lon0    float64
}

// NewAzimuthalEquidistant creates a projection centred at the given point.
func NewAzimuthalEquidistant(center LatLon) *AzimuthalEquidistant {
	lat0 := center.Lat * math.Pi / 180
	return &AzimuthalEquidistant{
		Center:  center,
		sinLat0: math.Sin(lat0),
		cosLat0: math.Cos(lat0),
		lon0:    center.Lon * math.Pi / 180,
	}
}

// Forward projects a geographic coordinate to local planar meters. The
// centre maps to (0,0); x grows east, y grows north.
func (p *AzimuthalEquidistant) Forward(pt LatLon) (x, y float64) {
	lat := pt.Lat * math.Pi / 180
	dLon := pt.Lon*math.Pi/180 - p.lon0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	cosDLon := math.Cos(dLon)

	cosC := p.sinLat0*sinLat + p.cosLat0*cosLat*cosDLon
	if cosC > 1 {
		cosC = 1
	} else if cosC < -1 {
		cosC = -1
	}
	c := math.Acos(cosC)

	// k is the scale factor c/sin(c); it tends to 1 at the centre.
	k := 1.0
	if sinC := math.Sin(c); sinC > 1e-12 {
		k = c / sinC
	}

	x = EarthRadiusMeters * k * cosLat * math.Sin(dLon)
	y = EarthRadiusMeters * k * (p.cosLat0*sinLat - p.sinLat0*cosLat*cosDLon)
	return x, y
}

// Inverse maps local planar meters back to a geographic coordinate.
func (p *AzimuthalEquidistant) Inverse(x, y float64) LatLon {
	rho := math.Hypot(x, y)
	if rho < 1e-9 {
		return p.Center
	}
	c := rho / EarthRadiusMeters

	sinC := math.Sin(c)
	cosC := math.Cos(c)

	sinLat := cosC*p.sinLat0 + (y*sinC*p.cosLat0)/rho
	if sinLat > 1 {
		sinLat = 1
	} else if sinLat < -1 {
		sinLat = -1
	}
	lat := math.Asin(sinLat)

	var dLon float64
	if math.Abs(p.cosLat0) < 1e-12 {
		// Polar centre: longitude comes straight from the planar bearing.
		if p.sinLat0 > 0 {
			dLon = math.Atan2(x, -y)
		} else {
			dLon = math.Atan2(x, y)
		}
	} else {
		dLon = math.Atan2(x*sinC, rho*p.cosLat0*cosC-y*p.sinLat0*sinC)
	}

	return LatLon{
		Lat: lat * 180 / math.Pi,
		Lon: normalizeLon((p.lon0 + dLon) * 180 / math.Pi),
	}
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
