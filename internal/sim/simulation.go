package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"evacsim/internal/logging"
)

// MaxPace caps the ticks applied per Run interval.
const MaxPace = 100

// TickObserver receives the outcome of every applied tick batch.
type TickObserver interface {
	ObserveTick(ticks int, elapsed time.Duration, counts Counts)
}

// ControlSettings carries client-driven adjustments. Nil fields are left
// unchanged.
type ControlSettings struct {
	Pace   *int
	Paused *bool
	Reset  bool
	// Seed is used when Reset is set; zero picks a time-based seed.
	Seed int64
}

// Snapshot is a consistent copy of the simulation between ticks.
type Snapshot struct {
	RunID    string  `json:"run_id"`
	Seed     int64   `json:"seed"`
	Tick     uint64  `json:"tick"`
	Counts   Counts  `json:"counts"`
	Complete bool    `json:"complete"`
	Pace     int     `json:"pace"`
	Paused   bool    `json:"paused"`
	Agents   []Agent `json:"agents,omitempty"`
}

// Simulation owns one population and drives it from a timer.
type Simulation struct {
	mu         sync.RWMutex
	params     Params
	population *Population
	runID      string
	seed       int64
	tick       uint64
	pace       int
	paused     bool
	dirty      bool
	done       bool

	observer TickObserver
	log      logging.Logger
}

// New generates a population from params. A zero seed picks a time-based
// one.
func New(params Params, seed int64) (*Simulation, error) {
	s := &Simulation{
		params: params,
		pace:   1,
		log:    logging.Noop(),
	}
	if err := s.reset(seed); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulation) reset(seed int64) error {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	population, err := Generate(s.params, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}
	s.population = population
	s.seed = seed
	s.runID = uuid.NewString()
	s.tick = 0
	s.done = population.Complete()
	s.dirty = true
	return nil
}

// SetLogger replaces the logger. Nil restores the no-op logger.
func (s *Simulation) SetLogger(l logging.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l == nil {
		l = logging.Noop()
	}
	s.log = l
}

// SetObserver registers a tick observer, typically a metrics collector.
func (s *Simulation) SetObserver(o TickObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// Reset regenerates the population from the original parameters.
func (s *Simulation) Reset(seed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLogged(seed)
}

func (s *Simulation) resetLogged(seed int64) error {
	if err := s.reset(seed); err != nil {
		return err
	}
	s.log.Info(context.Background(), "simulation reset", logging.String("run_id", s.runID), logging.Any("seed", s.seed))
	return nil
}

// SetPace sets how many ticks Run applies per interval, clamped to
// [0, MaxPace].
func (s *Simulation) SetPace(pace int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPaceLocked(pace)
}

func (s *Simulation) setPaceLocked(pace int) {
	s.pace = clampPace(pace)
	s.dirty = true
}

// Pace returns the ticks applied per Run interval.
func (s *Simulation) Pace() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pace
}

// SetPaused suspends or resumes ticking in Run.
func (s *Simulation) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPausedLocked(paused)
}

func (s *Simulation) setPausedLocked(paused bool) {
	s.paused = paused
	s.dirty = true
}

// Paused reports whether Run is suspended.
func (s *Simulation) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// ApplyControlSettings applies a control update and returns the resulting
// state. The update is applied atomically with respect to Run, so a reset
// that also pauses never lets a tick in between.
func (s *Simulation) ApplyControlSettings(settings ControlSettings) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.Reset {
		if err := s.resetLogged(settings.Seed); err != nil {
			return s.snapshotLocked(), err
		}
	}
	if settings.Pace != nil {
		s.setPaceLocked(*settings.Pace)
	}
	if settings.Paused != nil {
		s.setPausedLocked(*settings.Paused)
	}
	return s.snapshotLocked(), nil
}

// Step applies exactly one tick regardless of pace or pause.
func (s *Simulation) Step() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(1)
	return s.snapshotLocked()
}

// Advance applies n ticks and returns the state afterwards.
func (s *Simulation) Advance(n int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(n)
	return s.snapshotLocked()
}

func (s *Simulation) advance(n int) int {
	if s.done || n <= 0 {
		return 0
	}

	start := time.Now()
	applied := 0
	for i := 0; i < n && !s.done; i++ {
		s.population.Tick()
		s.tick++
		applied++
		s.done = s.population.Complete()
	}
	counts := s.population.Counts()

	if s.observer != nil {
		s.observer.ObserveTick(applied, time.Since(start), counts)
	}
	s.log.Debug(context.Background(), "simulation step",
		logging.Any("tick", s.tick),
		logging.Int("en_route", counts.EnRoute),
		logging.Int("safe", counts.Safe))
	if s.done {
		s.log.Info(context.Background(), "simulation complete",
			logging.String("run_id", s.runID),
			logging.Any("tick", s.tick),
			logging.Int("safe", counts.Safe))
	}
	s.dirty = true
	return applied
}

// Counts returns the current en-route and safe totals.
func (s *Simulation) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.population.Counts()
}

// Complete reports whether every agent is safe.
func (s *Simulation) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Distinguished returns a copy of the tracked agent.
func (s *Simulation) Distinguished() (Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.population.Distinguished()
	if a == nil {
		return Agent{}, false
	}
	return *a, true
}

// Snapshot returns the current state without advancing.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Simulation) snapshotLocked() Snapshot {
	return Snapshot{
		RunID:    s.runID,
		Seed:     s.seed,
		Tick:     s.tick,
		Counts:   s.population.Counts(),
		Complete: s.done,
		Pace:     s.pace,
		Paused:   s.paused,
		Agents:   s.population.Copy(),
	}
}

// Run applies Pace ticks every interval until ctx is cancelled, calling
// report whenever the state changed since the previous report.
func (s *Simulation) Run(ctx context.Context, interval time.Duration, report func(Snapshot)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.paused {
				s.advance(s.pace)
			}
			changed := s.dirty
			s.dirty = false
			var snap Snapshot
			if changed {
				snap = s.snapshotLocked()
			}
			s.mu.Unlock()

			if changed && report != nil {
				report(snap)
			}
		}
	}
}

func clampPace(pace int) int {
	if pace < 0 {
		return 0
	}
	if pace > MaxPace {
		return MaxPace
	}
	return pace
}
