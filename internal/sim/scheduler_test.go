package sim

import (
	"math/rand"
	"reflect"
	"testing"

	"evacsim/internal/geo"
)

func generateFast(t *testing.T, enRoute, safe int, seed int64) *Population {
	t.Helper()
	params := testParams(enRoute, safe)
	params.Speeds = Speeds{Distinguished: 0.1, Base: 0.03, Jitter: 0.02}
	pop, err := Generate(params, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return pop
}

func TestTickScenarioDistinguishedArrivesAfterTenTicks(t *testing.T) {
	pop := generateFast(t, 3, 2, 42)

	for i := 0; i < 10; i++ {
		pop.Tick()
	}

	lead := pop.Distinguished()
	if lead.Progress != 1.0 {
		t.Fatalf("expected distinguished progress 1.0 after 10 ticks, got %v", lead.Progress)
	}
	if lead.Status != Safe {
		t.Fatalf("expected distinguished agent safe, got %v", lead.Status)
	}
	if lead.Position != testRoute.Last() {
		t.Fatalf("expected distinguished agent at %v, got %v", testRoute.Last(), lead.Position)
	}

	for i := 0; i < 1000 && !pop.Complete(); i++ {
		pop.Tick()
	}
	counts := pop.Counts()
	if !pop.Complete() || counts.Safe != 5 || counts.EnRoute != 0 {
		t.Fatalf("expected every agent safe, got %+v", counts)
	}
}

func TestTickMonotonicAndCountsConserved(t *testing.T) {
	pop := generateFast(t, 40, 10, 3)
	prev := map[int]float64{}
	pop.Each(func(a *Agent) { prev[a.ID] = a.Progress })

	for tick := 0; tick < 60; tick++ {
		pop.Tick()

		pop.Each(func(a *Agent) {
			if a.Progress < prev[a.ID] {
				t.Fatalf("tick %d: agent %d regressed from %v to %v", tick, a.ID, prev[a.ID], a.Progress)
			}
			if a.Progress > 1 {
				t.Fatalf("tick %d: agent %d progress %v exceeds 1", tick, a.ID, a.Progress)
			}
			if (a.Progress >= 1) != (a.Status == Safe) {
				t.Fatalf("tick %d: agent %d status %v inconsistent with progress %v", tick, a.ID, a.Status, a.Progress)
			}
			prev[a.ID] = a.Progress
		})

		if c := pop.Counts(); c.Total() != pop.Len() {
			t.Fatalf("tick %d: counts %+v do not sum to %d", tick, c, pop.Len())
		}
	}
}

func TestTickSafeAgentsAreFrozen(t *testing.T) {
	pop := generateFast(t, 10, 5, 11)
	frozen := map[int]Agent{}

	for tick := 0; tick < 80; tick++ {
		pop.Tick()
		pop.Each(func(a *Agent) {
			if before, ok := frozen[a.ID]; ok {
				if a.Status != Safe || a.Progress != before.Progress || a.Position != before.Position {
					t.Fatalf("tick %d: safe agent %d changed from %+v to %+v", tick, a.ID, before, *a)
				}
				return
			}
			if a.Status == Safe {
				frozen[a.ID] = *a
			}
		})
	}
}

func TestTickDeterministic(t *testing.T) {
	a := generateFast(t, 25, 25, 99)
	b := generateFast(t, 25, 25, 99)

	for i := 0; i < 30; i++ {
		a.Tick()
		b.Tick()
	}
	if !reflect.DeepEqual(a.Copy(), b.Copy()) {
		t.Fatal("populations with the same seed diverged")
	}
}

func TestTickCompleteIsNoop(t *testing.T) {
	p := geo.Point{Lat: 1, Lng: 1}
	pop, err := NewPopulation(NewSafeAgent(0, p), NewSafeAgent(1, p))
	if err != nil {
		t.Fatalf("NewPopulation: %v", err)
	}
	if !pop.Complete() {
		t.Fatal("expected all-safe population to be complete")
	}
	if moved := pop.Tick(); moved != 0 {
		t.Fatalf("expected no movement, got %d", moved)
	}
}

func TestTickPanicsOnMalformedPath(t *testing.T) {
	agent := &Agent{ID: 5, Path: geo.Path{{Lat: 1, Lng: 1}}, Speed: 0.1, Status: EnRoute}
	pop, err := NewPopulation(agent)
	if err != nil {
		t.Fatalf("NewPopulation: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for single-point path")
		}
	}()
	pop.Tick()
}
