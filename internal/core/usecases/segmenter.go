package usecases

import (
	"github.com/openroads/roadpass/internal/core/domain"
)

// SplitByRegion walks the route in order and groups consecutive points by the
// region that owns them. Ownership is decided by the first configured region
// whose bounding box contains the point, so overlapping boxes resolve by list
// order. Points no region covers are grouped into gap chunks (Covered=false)
// rather than dropped, so a route that leaves the covered area produces a
// visible hole instead of two silently merged neighbours.
func SplitByRegion(route []domain.GeoPoint, regions []domain.Region) []domain.RouteChunk {
	if len(route) == 0 {
		return nil
	}

	var chunks []domain.RouteChunk
	for _, p := range route {
		region, covered := ownerOf(p, regions)

		n := len(chunks)
		if n > 0 && chunks[n-1].Region == region && chunks[n-1].Covered == covered {
			chunks[n-1].Points = append(chunks[n-1].Points, p)
			continue
		}
		chunks = append(chunks, domain.RouteChunk{
			Region:  region,
			Covered: covered,
			Points:  []domain.GeoPoint{p},
		})
	}
	return chunks
}

// ownerOf returns the name of the first region containing p, or ("", false)
// when none does.
func ownerOf(p domain.GeoPoint, regions []domain.Region) (string, bool) {
	for _, r := range regions {
		if r.Bounds.Contains(p) {
			return r.Name, true
		}
	}
	return "", false
}
