package geospatial

import "math"

// The projection helpers work on a local equirectangular plane: longitudes
// are scaled by cos(latitude) so one unit of x and one unit of y are the same
// number of meters. Good to well under a meter at the 10 m scales the segment
// matcher cares about.

const metersPerDegree = 111320.0

// PolylineLength returns the length of the line in meters.
func PolylineLength(line []Point) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += Haversine(line[i-1].Lat, line[i-1].Lon, line[i].Lat, line[i].Lon)
	}
	return total
}

// DistanceToPolyline returns the minimum distance in meters from p to any
// sub-segment of line. A single-point line degenerates to point distance.
func DistanceToPolyline(p Point, line []Point) float64 {
	if len(line) == 0 {
		return math.Inf(1)
	}
	if len(line) == 1 {
		return Haversine(p.Lat, p.Lon, line[0].Lat, line[0].Lon)
	}

	min := math.Inf(1)
	for i := 1; i < len(line); i++ {
		if d := pointToSegment(p, line[i-1], line[i]); d < min {
			min = d
		}
	}
	return min
}

// LocateAlong returns the fractional position (0.0–1.0) along line of the
// point on line closest to p. This is the projection fraction that recovers
// direction-of-travel order from an unordered spatial match.
func LocateAlong(line []Point, p Point) float64 {
	if len(line) < 2 {
		return 0
	}

	total := PolylineLength(line)
	if total == 0 {
		return 0
	}

	bestDist := math.Inf(1)
	bestAt := 0.0
	walked := 0.0

	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		segLen := Haversine(a.Lat, a.Lon, b.Lat, b.Lon)

		t := projectFraction(p, a, b)
		closest := interpolate(a, b, t)
		d := Haversine(p.Lat, p.Lon, closest.Lat, closest.Lon)
		if d < bestDist {
			bestDist = d
			bestAt = walked + t*segLen
		}
		walked += segLen
	}

	return bestAt / total
}

// Midpoint returns the point at half the line's length, walking the vertices.
func Midpoint(line []Point) Point {
	if len(line) == 0 {
		return Point{}
	}
	if len(line) == 1 {
		return line[0]
	}

	half := PolylineLength(line) / 2
	walked := 0.0
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		segLen := Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
		if walked+segLen >= half && segLen > 0 {
			return interpolate(a, b, (half-walked)/segLen)
		}
		walked += segLen
	}
	return line[len(line)-1]
}

// pointToSegment is the distance in meters from p to the segment ab, with the
// projection clamped to the segment's endpoints.
func pointToSegment(p, a, b Point) float64 {
	t := projectFraction(p, a, b)
	c := interpolate(a, b, t)
	return Haversine(p.Lat, p.Lon, c.Lat, c.Lon)
}

// projectFraction returns the clamped [0,1] parameter of p's orthogonal
// projection onto the segment ab in the local plane.
func projectFraction(p, a, b Point) float64 {
	scale := math.Cos(toRad((a.Lat + b.Lat) / 2))

	ax, ay := a.Lon*scale, a.Lat
	bx, by := b.Lon*scale, b.Lat
	px, py := p.Lon*scale, p.Lat

	dx, dy := bx-ax, by-ay
	den := dx*dx + dy*dy
	if den == 0 {
		return 0
	}

	t := ((px-ax)*dx + (py-ay)*dy) / den
	return math.Max(0, math.Min(1, t))
}

func interpolate(a, b Point, t float64) Point {
	return Point{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lon: a.Lon + (b.Lon-a.Lon)*t,
	}
}
