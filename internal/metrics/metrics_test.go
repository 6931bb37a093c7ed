package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"evacsim/internal/sim"
)

func TestObserveTickUpdatesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.ObserveTick(3, 2*time.Millisecond, sim.Counts{EnRoute: 10, Safe: 20})
	c.ObserveTick(1, time.Millisecond, sim.Counts{EnRoute: 9, Safe: 21})

	if got := testutil.ToFloat64(c.Ticks); got != 4 {
		t.Fatalf("evac_ticks_total = %v, want 4", got)
	}
	if got := testutil.ToFloat64(c.AgentsEnRoute); got != 9 {
		t.Fatalf("evac_agents_en_route = %v, want 9", got)
	}
	if got := testutil.ToFloat64(c.AgentsSafe); got != 21 {
		t.Fatalf("evac_agents_safe = %v, want 21", got)
	}
	if got := testutil.CollectAndCount(c.TickDuration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestClientGauge(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.ClientConnected()
	c.ClientConnected()
	c.ClientDisconnected()
	c.FrameDropped()

	if got := testutil.ToFloat64(c.StreamClients); got != 1 {
		t.Fatalf("evac_stream_clients = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.FramesDropped); got != 1 {
		t.Fatalf("evac_stream_frames_dropped_total = %v, want 1", got)
	}
}

func TestNewCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}

	first.SetCounts(sim.Counts{EnRoute: 5})
	if got := testutil.ToFloat64(second.AgentsEnRoute); got != 5 {
		t.Fatalf("expected shared gauge, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.SetCounts(sim.Counts{EnRoute: 57, Safe: 573})

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	for _, want := range []string{"evac_agents_en_route 57", "evac_agents_safe 573"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveTick(1, time.Millisecond, sim.Counts{})
	c.ClientConnected()
	c.FrameDropped()
}
