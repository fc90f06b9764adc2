package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat" mapstructure:"min_lat"`
	MinLon float64 `json:"min_lon" mapstructure:"min_lon"`
	MaxLat float64 `json:"max_lat" mapstructure:"max_lat"`
	MaxLon float64 `json:"max_lon" mapstructure:"max_lon"`
}

// Contains reports whether the point lies inside the box, borders included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Region is one independently-operated regional manager: its name, the base
// URL of its service, and the bounding box it owns. The order of the
// configured region list is the lookup priority for overlapping boxes.
type Region struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Bounds   Bounds `json:"bounds"`
}
