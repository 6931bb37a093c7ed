package geo

import (
	"math"
	"testing"
)

func TestInterpolateEndpointsExact(t *testing.T) {
	paths := map[string]Path{
		"two":        {{Lat: 0.1, Lng: -118.7}, {Lat: 0.3, Lng: -118.69}},
		"three":      {{Lat: 34.02, Lng: -118.72}, {Lat: 34.03, Lng: -118.71}, {Lat: 34.041, Lng: -118.693}},
		"five":       {{Lat: 1, Lng: 1}, {Lat: 2, Lng: 3}, {Lat: 7, Lng: 0.3}, {Lat: -1, Lng: 2}, {Lat: 0.7, Lng: 0.9}},
		"degenerate": {{Lat: 34.0301, Lng: -118.7011}, {Lat: 34.0301, Lng: -118.7011}},
	}

	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			if got := Interpolate(path, 0); got != path.First() {
				t.Fatalf("Interpolate(path, 0) = %v, want %v", got, path.First())
			}
			if got := Interpolate(path, 1); got != path.Last() {
				t.Fatalf("Interpolate(path, 1) = %v, want %v", got, path.Last())
			}
		})
	}
}

func TestInterpolateThreePointMidpointIsVertex(t *testing.T) {
	a := Point{Lat: 34.0251, Lng: -118.7203}
	b := Point{Lat: 34.0317, Lng: -118.7089}
	c := Point{Lat: 34.0392, Lng: -118.6951}

	if got := Interpolate(Path{a, b, c}, 0.5); got != b {
		t.Fatalf("Interpolate([A,B,C], 0.5) = %v, want %v", got, b)
	}
}

func TestInterpolateSegmentsShareProgressEqually(t *testing.T) {
	// Second segment is far longer than the first; progress is split by
	// index, not distance.
	path := Path{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 0}, {Lat: 1, Lng: 100}}

	got := Interpolate(path, 0.25)
	if got.Lat != 0.5 || got.Lng != 0 {
		t.Fatalf("Interpolate(path, 0.25) = %v, want {0.5 0}", got)
	}

	got = Interpolate(path, 0.75)
	if got.Lat != 1 || got.Lng != 50 {
		t.Fatalf("Interpolate(path, 0.75) = %v, want {1 50}", got)
	}
}

func TestInterpolateTwoPointLinear(t *testing.T) {
	path := Path{{Lat: 10, Lng: 20}, {Lat: 20, Lng: 40}}
	got := Interpolate(path, 0.5)
	if got.Lat != 15 || got.Lng != 30 {
		t.Fatalf("Interpolate(path, 0.5) = %v, want {15 30}", got)
	}
}

func TestInterpolateDegenerateNeverDiverges(t *testing.T) {
	p := Point{Lat: 34.0299, Lng: -118.7021}
	path := Path{p, p}

	for i := 0; i <= 1000; i++ {
		got := Interpolate(path, float64(i)/1000)
		if math.IsNaN(got.Lat) || math.IsNaN(got.Lng) {
			t.Fatalf("step %d produced NaN", i)
		}
		if got != p {
			t.Fatalf("step %d: got %v, want %v", i, got, p)
		}
	}
}

func TestInterpolateDeterministic(t *testing.T) {
	path := Path{{Lat: 1.1, Lng: 2.2}, {Lat: 3.3, Lng: 4.4}, {Lat: 5.5, Lng: 6.6}, {Lat: 7.7, Lng: 8.8}}
	for _, progress := range []float64{0, 0.1, 0.333, 0.5, 0.9999, 1} {
		if a, b := Interpolate(path, progress), Interpolate(path, progress); a != b {
			t.Fatalf("Interpolate(path, %v) not reproducible: %v vs %v", progress, a, b)
		}
	}
}

func TestInterpolatePanicsOnShortPath(t *testing.T) {
	for _, path := range []Path{nil, {{Lat: 1, Lng: 1}}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic for path of length %d", len(path))
				}
			}()
			Interpolate(path, 0.5)
		}()
	}
}

func TestPathValidate(t *testing.T) {
	if err := (Path{{Lat: 1, Lng: 1}}).Validate(); err == nil {
		t.Fatal("expected single-point path to be rejected")
	}
	if err := (Path{{Lat: math.NaN(), Lng: 1}, {Lat: 1, Lng: 1}}).Validate(); err == nil {
		t.Fatal("expected NaN point to be rejected")
	}
	if err := (Path{{Lat: 1, Lng: 1}, {Lat: 1, Lng: 1}}).Validate(); err != nil {
		t.Fatalf("expected degenerate path to be valid, got %v", err)
	}
}

func TestRectSampleStaysInside(t *testing.T) {
	r := Rect{North: 34.045, South: 34.020, West: -118.725, East: -118.690}
	for _, uv := range [][2]float64{{0, 0}, {0.5, 0.5}, {0.999999, 0.999999}} {
		if pt := r.Sample(uv[0], uv[1]); !r.Contains(pt) {
			t.Fatalf("Sample(%v, %v) = %v outside %v", uv[0], uv[1], pt, r)
		}
	}
	if err := (Rect{North: 1, South: 2}).Validate(); err == nil {
		t.Fatal("expected inverted bounds to be rejected")
	}
}
