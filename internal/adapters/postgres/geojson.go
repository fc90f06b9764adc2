package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/openroads/roadpass/internal/core/domain"
)

// lineString is the minimal GeoJSON shape the segment queries exchange with
// PostGIS. Coordinates are [lon, lat] per the GeoJSON spec.
type lineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

func decodeLineString(raw []byte) ([]domain.GeoPoint, error) {
	var ls lineString
	if err := json.Unmarshal(raw, &ls); err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	if ls.Type != "LineString" {
		return nil, fmt.Errorf("unexpected geometry type %q", ls.Type)
	}
	points := make([]domain.GeoPoint, len(ls.Coordinates))
	for i, c := range ls.Coordinates {
		points[i] = domain.GeoPoint{Lon: c[0], Lat: c[1]}
	}
	return points, nil
}

func encodeLineString(points []domain.GeoPoint) ([]byte, error) {
	ls := lineString{Type: "LineString", Coordinates: make([][2]float64, len(points))}
	for i, p := range points {
		ls.Coordinates[i] = [2]float64{p.Lon, p.Lat}
	}
	return json.Marshal(ls)
}
