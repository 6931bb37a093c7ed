package geo

import (
	"fmt"
	"math"
)

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Path is an ordered polyline. A valid path has at least two points;
// consecutive points may coincide.
type Path []Point

// Validate reports whether the path can be interpolated.
func (p Path) Validate() error {
	if len(p) < 2 {
		return fmt.Errorf("path has %d points, need at least 2", len(p))
	}
	for i, pt := range p {
		if math.IsNaN(pt.Lat) || math.IsNaN(pt.Lng) || math.IsInf(pt.Lat, 0) || math.IsInf(pt.Lng, 0) {
			return fmt.Errorf("path point %d is not finite", i)
		}
	}
	return nil
}

// First returns the starting point of the path.
func (p Path) First() Point { return p[0] }

// Last returns the terminal point of the path.
func (p Path) Last() Point { return p[len(p)-1] }

// Rect is a latitude/longitude bounding box.
type Rect struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	West  float64 `json:"west" yaml:"west"`
	East  float64 `json:"east" yaml:"east"`
}

// Validate checks that the box is not inverted.
func (r Rect) Validate() error {
	if r.South > r.North {
		return fmt.Errorf("bounds south %.6f above north %.6f", r.South, r.North)
	}
	if r.West > r.East {
		return fmt.Errorf("bounds west %.6f is east of %.6f", r.West, r.East)
	}
	return nil
}

// Sample maps two unit samples u, v in [0,1) onto a point inside the box.
func (r Rect) Sample(u, v float64) Point {
	return Point{
		Lat: r.South + u*(r.North-r.South),
		Lng: r.West + v*(r.East-r.West),
	}
}

// Contains reports whether pt lies inside the box, edges included.
func (r Rect) Contains(pt Point) bool {
	return pt.Lat >= r.South && pt.Lat <= r.North && pt.Lng >= r.West && pt.Lng <= r.East
}
