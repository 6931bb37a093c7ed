package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evacsim/internal/sim"
)

// Collector bundles the simulator's Prometheus metrics. It satisfies
// sim.TickObserver.
type Collector struct {
	gatherer prometheus.Gatherer

	AgentsEnRoute prometheus.Gauge
	AgentsSafe    prometheus.Gauge
	Ticks         prometheus.Counter
	TickDuration  prometheus.Histogram
	StreamClients prometheus.Gauge
	FramesDropped prometheus.Counter
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	enRoute, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "evac_agents_en_route",
		Help: "Agents still travelling toward the shelter.",
	}), "evac_agents_en_route")
	if err != nil {
		return nil, err
	}
	safe, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "evac_agents_safe",
		Help: "Agents that have reached the shelter.",
	}), "evac_agents_safe")
	if err != nil {
		return nil, err
	}
	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evac_ticks_total",
		Help: "Simulation ticks applied across all runs.",
	}), "evac_ticks_total")
	if err != nil {
		return nil, err
	}
	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evac_tick_duration_seconds",
		Help:    "Wall time spent applying one batch of ticks.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}), "evac_tick_duration_seconds")
	if err != nil {
		return nil, err
	}
	clients, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "evac_stream_clients",
		Help: "Connected websocket stream clients.",
	}), "evac_stream_clients")
	if err != nil {
		return nil, err
	}
	dropped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evac_stream_frames_dropped_total",
		Help: "Snapshot frames that could not be delivered to a client.",
	}), "evac_stream_frames_dropped_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		AgentsEnRoute: enRoute,
		AgentsSafe:    safe,
		Ticks:         ticks,
		TickDuration:  duration,
		StreamClients: clients,
		FramesDropped: dropped,
	}, nil
}

// ObserveTick records a batch of ticks and the resulting counts.
func (c *Collector) ObserveTick(ticks int, elapsed time.Duration, counts sim.Counts) {
	if c == nil {
		return
	}
	c.Ticks.Add(float64(ticks))
	c.TickDuration.Observe(elapsed.Seconds())
	c.SetCounts(counts)
}

// SetCounts updates the population gauges directly, e.g. after a reset.
func (c *Collector) SetCounts(counts sim.Counts) {
	if c == nil {
		return
	}
	c.AgentsEnRoute.Set(float64(counts.EnRoute))
	c.AgentsSafe.Set(float64(counts.Safe))
}

// ClientConnected and ClientDisconnected track the stream audience.
func (c *Collector) ClientConnected() {
	if c != nil {
		c.StreamClients.Inc()
	}
}

func (c *Collector) ClientDisconnected() {
	if c != nil {
		c.StreamClients.Dec()
	}
}

// FrameDropped counts a failed delivery.
func (c *Collector) FrameDropped() {
	if c != nil {
		c.FramesDropped.Inc()
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
