package geospatial

import "math"

const earthRadiusKm = 6371.0

// Point is a latitude/longitude pair. Kept free of domain imports so the
// package stays reusable from any layer.
type Point struct {
	Lat float64
	Lon float64
}

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// ExpandBounds returns a bounding box covering every point, grown by
// marginMeters on all sides.
func ExpandBounds(points []Point, marginMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}

	minLat, maxLat = points[0].Lat, points[0].Lat
	minLon, maxLon = points[0].Lon, points[0].Lon
	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}

	latDelta := marginMeters / 111320.0
	midLat := (minLat + maxLat) / 2
	lonDelta := marginMeters / (111320.0 * math.Cos(toRad(midLat)))

	return minLat - latDelta, minLon - lonDelta, maxLat + latDelta, maxLon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
