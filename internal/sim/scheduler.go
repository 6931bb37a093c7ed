package sim

// Tick advances every en-route agent by one step and returns how many moved.
// Agents never read each other, so the update order does not matter.
// A malformed path panics inside the interpolator.
func (p *Population) Tick() int {
	moved := 0
	for _, a := range p.agents {
		if a.Step() {
			moved++
		}
	}
	return moved
}

// Complete reports whether every agent has reached Safe.
func (p *Population) Complete() bool {
	for _, a := range p.agents {
		if a.Status != Safe {
			return false
		}
	}
	return true
}
