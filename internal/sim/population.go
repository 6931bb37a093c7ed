package sim

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a population cannot be built from the
// supplied parameters.
var ErrInvalidArgument = errors.New("invalid argument")

// Population holds every agent of one simulation run, keyed by id.
// Iteration follows insertion order.
type Population struct {
	agents []*Agent
	index  map[int]int
}

// NewPopulation collects agents into a population. Ids must be unique.
func NewPopulation(agents ...*Agent) (*Population, error) {
	p := &Population{
		agents: make([]*Agent, 0, len(agents)),
		index:  make(map[int]int, len(agents)),
	}
	for _, a := range agents {
		if a == nil {
			return nil, fmt.Errorf("%w: nil agent", ErrInvalidArgument)
		}
		if _, dup := p.index[a.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate agent id %d", ErrInvalidArgument, a.ID)
		}
		p.index[a.ID] = len(p.agents)
		p.agents = append(p.agents, a)
	}
	return p, nil
}

// Len returns the number of agents.
func (p *Population) Len() int { return len(p.agents) }

// Get looks up an agent by id.
func (p *Population) Get(id int) (*Agent, bool) {
	i, ok := p.index[id]
	if !ok {
		return nil, false
	}
	return p.agents[i], true
}

// Distinguished returns the tracked agent, or nil if the population has none.
func (p *Population) Distinguished() *Agent {
	a, _ := p.Get(DistinguishedID)
	return a
}

// Each calls fn for every agent in insertion order.
func (p *Population) Each(fn func(*Agent)) {
	for _, a := range p.agents {
		fn(a)
	}
}

// Copy returns value copies of every agent in insertion order. Paths are
// shared since they never change after construction.
func (p *Population) Copy() []Agent {
	out := make([]Agent, len(p.agents))
	for i, a := range p.agents {
		out[i] = *a
	}
	return out
}

// Counts is the number of agents per status.
type Counts struct {
	EnRoute int `json:"en_route"`
	Safe    int `json:"safe"`
}

// Total returns the population size the counts were taken from.
func (c Counts) Total() int { return c.EnRoute + c.Safe }

// Counts folds the current statuses.
func (p *Population) Counts() Counts {
	var c Counts
	for _, a := range p.agents {
		if a.Status == Safe {
			c.Safe++
		} else {
			c.EnRoute++
		}
	}
	return c
}
