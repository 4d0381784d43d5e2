package geo

// Bounds is a fixed latitude/longitude bounding region.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// CaliforniaBounds is the strict bounding region all line geometries must
// fall inside. Records with any coordinate outside it are excluded.
var CaliforniaBounds = Bounds{
	MinLat: 32.5,
	MaxLat: 42.0,
	MinLng: -124.5,
	MaxLng: -114.0,
}

// Contains reports whether a single coordinate pair lies inside the bounds.
func (b Bounds) Contains(lng, lat float64) bool {
	return b.MinLng <= lng && lng <= b.MaxLng &&
		b.MinLat <= lat && lat <= b.MaxLat
}

// ContainsPath reports whether every coordinate of a path lies inside the
// bounds.
func (b Bounds) ContainsPath(path [][2]float64) bool {
	for _, c := range path {
		if !b.Contains(c[0], c[1]) {
			return false
		}
	}
	return true
}

// FeatureWithin is the line-geometry containment policy: a feature is
// retained iff every coordinate of every path in its geometry lies inside
// the bounds. Only LineString and MultiLineString geometries are supported;
// any other geometry kind is rejected, never silently included.
func FeatureWithin(b Bounds, f Feature) bool {
	if !f.Geometry.IsLine() {
		return false
	}
	paths, err := f.Geometry.Paths()
	if err != nil {
		return false
	}
	for _, path := range paths {
		if !b.ContainsPath(path) {
			return false
		}
	}
	return true
}

// MarkerInRegion is the attribute containment policy for point markers: a
// marker is retained iff its declared region code equals the target code.
// Coordinates are never inspected, so a marker whose point lies outside
// the bounding region still passes if its region code matches. Both codes
// are expected in canonical (upper-cased) form; an undeclared code never
// matches.
func MarkerInRegion(declared, region string) bool {
	return declared != "" && declared == region
}
