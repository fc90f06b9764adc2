package usecases

import (
	"context"
	"sort"

	"github.com/openroads/roadpass/internal/core/domain"
	"github.com/openroads/roadpass/internal/core/ports"
	"github.com/openroads/roadpass/internal/pkg/geospatial"
)

// SegmentMatcher resolves a chunk of route coordinates against a region's
// road-segment inventory. The store does a coarse bounding-box prefilter; the
// matcher then keeps every candidate whose geometry passes within
// radiusMeters of the route and orders the survivors by where their midpoint
// projects onto the route, recovering direction of travel.
type SegmentMatcher struct {
	store        ports.SegmentStore
	radiusMeters float64
}

func NewSegmentMatcher(store ports.SegmentStore, radiusMeters float64) *SegmentMatcher {
	return &SegmentMatcher{store: store, radiusMeters: radiusMeters}
}

// Match returns the inventory segments the route traverses, in travel order.
// An empty result is not an error: the chunk simply crosses no known roads.
func (m *SegmentMatcher) Match(ctx context.Context, route []domain.GeoPoint) ([]domain.RoadSegment, error) {
	if len(route) < 2 {
		return nil, domain.ErrInvalidInput
	}

	routeLine := toGeoLine(route)
	minLat, minLon, maxLat, maxLon := geospatial.ExpandBounds(routeLine, m.radiusMeters)

	candidates, err := m.store.SegmentsWithin(ctx, domain.Bounds{
		MinLat: minLat, MinLon: minLon,
		MaxLat: maxLat, MaxLon: maxLon,
	})
	if err != nil {
		return nil, err
	}

	type ranked struct {
		seg domain.RoadSegment
		at  float64
	}

	var hits []ranked
	for _, cand := range candidates {
		line := toGeoLine(cand.Geometry)
		if !withinRadius(line, routeLine, m.radiusMeters) {
			continue
		}
		mid := geospatial.Midpoint(line)
		hits = append(hits, ranked{
			seg: cand,
			at:  geospatial.LocateAlong(routeLine, mid),
		})
	}

	// Stable so equally-placed segments keep the store's deterministic order.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at < hits[j].at })

	matched := make([]domain.RoadSegment, len(hits))
	for i, h := range hits {
		matched[i] = h.seg
	}
	return matched, nil
}

// withinRadius reports whether any vertex of the segment's geometry lies
// within radius meters of the route polyline.
func withinRadius(segment, route []geospatial.Point, radius float64) bool {
	for _, p := range segment {
		if geospatial.DistanceToPolyline(p, route) <= radius {
			return true
		}
	}
	return false
}

func toGeoLine(points []domain.GeoPoint) []geospatial.Point {
	line := make([]geospatial.Point, len(points))
	for i, p := range points {
		line[i] = geospatial.Point{Lat: p.Lat, Lon: p.Lon}
	}
	return line
}
