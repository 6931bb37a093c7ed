package sim

import (
	"fmt"
	"math"

	"evacsim/internal/geo"
)

// Rand is the random source used to place agents. *math/rand.Rand
// satisfies it; tests inject a seeded one.
type Rand interface {
	Float64() float64
}

// Speeds are per-tick progress increments.
type Speeds struct {
	// Distinguished is the speed of the tracked agent, faster than the rest.
	Distinguished float64 `yaml:"distinguished"`
	// Base is the lower bound of ordinary en-route speeds.
	Base float64 `yaml:"base"`
	// Jitter widens ordinary speeds to [Base, Base+Jitter).
	Jitter float64 `yaml:"jitter"`
}

// DefaultSpeeds spread the trip over several thousand ticks so it plays out
// smoothly at animation frame rate.
var DefaultSpeeds = Speeds{
	Distinguished: 0.00004,
	Base:          0.000035,
	Jitter:        0.00002,
}

// DefaultSafeJitterRadius is the radius, in degrees, of the disk around the
// destination where pre-placed safe agents are scattered.
const DefaultSafeJitterRadius = 0.0025

// Params describes the population to generate.
type Params struct {
	EnRouteCount      int
	SafeCount         int
	Bounds            geo.Rect
	Destination       geo.Point
	DistinguishedPath geo.Path
	// Speeds falls back to DefaultSpeeds when left zero.
	Speeds Speeds
	// SafeJitterRadius scatters safe agents around Destination. Zero stacks
	// them exactly on it.
	SafeJitterRadius float64
}

func (p Params) withDefaults() Params {
	if p.Speeds == (Speeds{}) {
		p.Speeds = DefaultSpeeds
	}
	return p
}

// Validate reports the first reason p cannot produce a population.
func (p Params) Validate() error {
	p = p.withDefaults()
	if p.EnRouteCount < 1 {
		return fmt.Errorf("%w: en-route count %d, need at least 1 for the distinguished agent", ErrInvalidArgument, p.EnRouteCount)
	}
	if p.SafeCount < 0 {
		return fmt.Errorf("%w: safe count %d is negative", ErrInvalidArgument, p.SafeCount)
	}
	if err := p.DistinguishedPath.Validate(); err != nil {
		return fmt.Errorf("%w: distinguished path: %v", ErrInvalidArgument, err)
	}
	if err := p.Bounds.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if !(p.Speeds.Distinguished > 0) || !(p.Speeds.Base > 0) || !(p.Speeds.Jitter >= 0) {
		return fmt.Errorf("%w: speeds %+v must be positive", ErrInvalidArgument, p.Speeds)
	}
	if !(p.SafeJitterRadius >= 0) {
		return fmt.Errorf("%w: safe jitter radius %v is negative", ErrInvalidArgument, p.SafeJitterRadius)
	}
	return nil
}

// Generate builds the initial population: the distinguished agent on its
// multi-point route, EnRouteCount-1 agents heading straight from a random
// origin to the destination, and SafeCount agents already resting near it.
func Generate(params Params, rng Rand) (*Population, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidArgument)
	}
	params = params.withDefaults()

	agents := make([]*Agent, 0, params.EnRouteCount+params.SafeCount)

	lead, err := NewAgent(DistinguishedID, params.DistinguishedPath, params.Speeds.Distinguished, true)
	if err != nil {
		return nil, err
	}
	agents = append(agents, lead)

	for i := 0; i < params.EnRouteCount-1; i++ {
		origin := params.Bounds.Sample(rng.Float64(), rng.Float64())
		speed := params.Speeds.Base + rng.Float64()*params.Speeds.Jitter
		a, err := NewAgent(i, geo.Path{origin, params.Destination}, speed, false)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}

	for i := 0; i < params.SafeCount; i++ {
		pt := jitter(params.Destination, params.SafeJitterRadius, rng)
		agents = append(agents, NewSafeAgent(params.EnRouteCount+i, pt))
	}

	return NewPopulation(agents...)
}

// jitter picks a point uniformly inside the disk of radius r around c.
func jitter(c geo.Point, r float64, rng Rand) geo.Point {
	dist := r * math.Sqrt(rng.Float64())
	angle := 2 * math.Pi * rng.Float64()
	return geo.Point{
		Lat: c.Lat + dist*math.Sin(angle),
		Lng: c.Lng + dist*math.Cos(angle),
	}
}
