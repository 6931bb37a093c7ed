// Package server streams a running evacuation simulation to websocket
// clients and exposes its totals over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"evacsim/internal/config"
	"evacsim/internal/logging"
	"evacsim/internal/metrics"
	"evacsim/internal/sim"
)

// CountsResponse is the body of /api/counts.
type CountsResponse struct {
	RunID    string `json:"run_id"`
	Tick     uint64 `json:"tick"`
	EnRoute  int    `json:"en_route"`
	Safe     int    `json:"safe"`
	Complete bool   `json:"complete"`
}

// Server wires a simulation to HTTP and websocket clients.
type Server struct {
	cfg        config.ServerConfig
	simulation *sim.Simulation
	metrics    *metrics.Collector
	hub        *hub
	log        logging.Logger
}

// New builds a server around simulation. The simulation reports tick
// metrics to m.
func New(cfg config.ServerConfig, simulation *sim.Simulation, m *metrics.Collector, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	simulation.SetObserver(m)
	simulation.SetPace(cfg.Pace)
	m.SetCounts(simulation.Counts())
	return &Server{
		cfg:        cfg,
		simulation: simulation,
		metrics:    m,
		hub:        newHub(simulation, m, log),
		log:        log,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws/stream", s.hub.handler())
	mux.HandleFunc("/api/counts", s.handleCounts)
	mux.HandleFunc("/api/agents/distinguished", s.handleDistinguished)
	mux.Handle("/metrics", s.metrics.Handler())
	if s.cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
	return mux
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	snap := s.simulation.Snapshot()
	writeJSON(w, http.StatusOK, CountsResponse{
		RunID:    snap.RunID,
		Tick:     snap.Tick,
		EnRoute:  snap.Counts.EnRoute,
		Safe:     snap.Counts.Safe,
		Complete: snap.Complete,
	})
}

func (s *Server) handleDistinguished(w http.ResponseWriter, r *http.Request) {
	agent, ok := s.simulation.Distinguished()
	if !ok {
		http.Error(w, "no distinguished agent", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the tick loop and HTTP server on ln until ctx is cancelled.
// On shutdown every stream client receives a close frame.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.hub.closeAll()

	go s.simulation.Run(ctx, s.cfg.TickInterval, s.hub.broadcast)

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "serving simulation", logging.String("addr", ln.Addr().String()),
			logging.Any("tick_interval", s.cfg.TickInterval), logging.Int("pace", s.cfg.Pace))
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info(context.Background(), "simulation server stopped")
		return nil
	}
}
