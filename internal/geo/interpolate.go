package geo

import (
	"fmt"
	"math"
)

// Interpolate returns the position at progress along path. Progress must
// already be clamped to [0,1]. Each of the len(path)-1 segments spans an
// equal share of progress regardless of its geographic length.
//
// Interpolate panics if path has fewer than two points.
func Interpolate(path Path, progress float64) Point {
	n := len(path)
	if n < 2 {
		panic(fmt.Sprintf("geo: interpolate on path with %d points", n))
	}
	if n == 2 {
		return lerp(path[0], path[1], progress)
	}

	segments := n - 1
	scaled := progress * float64(segments)
	// progress == 1 would otherwise index past the last segment.
	idx := int(math.Floor(scaled))
	if idx > segments-1 {
		idx = segments - 1
	}
	if idx < 0 {
		idx = 0
	}
	return lerp(path[idx], path[idx+1], scaled-float64(idx))
}

// lerp uses a + (b-a)*t so a zero-length segment yields a exactly; t >= 1
// snaps to b because the formula can miss it by an ulp.
func lerp(a, b Point, t float64) Point {
	if t >= 1 {
		return b
	}
	return Point{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}
