// Package scheduler drives the periodic acquisition cycle of one node.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/nodepulse/internal/core/domain"
	"github.com/vietddude/nodepulse/internal/pipeline/derive"
	"github.com/vietddude/nodepulse/internal/pipeline/history"
	"github.com/vietddude/nodepulse/internal/pipeline/metrics"
)

var (
	// ErrCycleInProgress is returned when a cycle is requested while one runs.
	ErrCycleInProgress = errors.New("cycle in progress")
	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = errors.New("scheduler already running")
)

// ChainFetcher captures the node's chain state.
type ChainFetcher interface {
	Fetch(ctx context.Context) (*domain.ChainSnapshot, error)
}

// SystemFetcher captures the node host's resource counters.
type SystemFetcher interface {
	Fetch(ctx context.Context) (*domain.SystemSnapshot, error)
}

// Sink receives every appended sample.
type Sink interface {
	Publish(ctx context.Context, node string, s domain.Sample) error
}

// Config holds per-node scheduling settings.
type Config struct {
	Node     string
	Interval time.Duration
	Timeout  time.Duration // per fetch
	CPUCores int           // 0 = detect
}

// State is the scheduler's cycle state.
type State int32

const (
	StateIdle State = iota
	StatePolling
)

func (s State) String() string {
	if s == StatePolling {
		return "polling"
	}
	return "idle"
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSink adds a sample sink.
func WithSink(sink Sink) Option {
	return func(s *Scheduler) {
		s.sinks = append(s.sinks, sink)
	}
}

// WithClock replaces the wall clock used to stamp samples.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// Scheduler runs at most one acquisition cycle at a time and appends each
// cycle's sample to its history store.
type Scheduler struct {
	cfg    Config
	chain  ChainFetcher
	system SystemFetcher
	store  *history.Store
	sinks  []Sink
	now    func() time.Time
	log    *slog.Logger

	polling atomic.Bool
	running atomic.Bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
	inflight sync.WaitGroup
}

// New creates a scheduler for one node.
func New(cfg Config, chain ChainFetcher, system SystemFetcher, store *history.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:    cfg,
		chain:  chain,
		system: system,
		store:  store,
		now:    time.Now,
		log:    slog.Default().With("node", cfg.Node),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Node returns the node name.
func (s *Scheduler) Node() string {
	return s.cfg.Node
}

// Store returns the node's history.
func (s *Scheduler) Store() *history.Store {
	return s.store
}

// State reports whether a cycle is running.
func (s *Scheduler) State() State {
	if s.polling.Load() {
		return StatePolling
	}
	return StateIdle
}

// Start runs one cycle immediately and then one per interval until Stop is
// called or ctx is done. It does not block.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	s.log.Info("Starting scheduler", "interval", s.cfg.Interval, "timeout", s.cfg.Timeout)
	go s.loop(ctx)
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.tick(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick starts a cycle in the background unless one is already running, in
// which case the tick is dropped.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.polling.CompareAndSwap(false, true) {
		metrics.TicksDropped.WithLabelValues(s.cfg.Node).Inc()
		s.log.Warn("Dropping tick, previous cycle still running")
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.polling.Store(false)
		s.cycle(ctx)
	}()
}

// Stop halts ticking and waits for the in-flight cycle, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}
	s.stopOnce.Do(func() { close(s.stop) })

	finished := make(chan struct{})
	go func() {
		<-s.done
		s.inflight.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.log.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler %s: %w", s.cfg.Node, ctx.Err())
	}
}

// RunCycle runs one cycle synchronously and returns the appended sample.
func (s *Scheduler) RunCycle(ctx context.Context) (domain.Sample, error) {
	if !s.polling.CompareAndSwap(false, true) {
		metrics.TicksDropped.WithLabelValues(s.cfg.Node).Inc()
		return domain.Sample{}, ErrCycleInProgress
	}
	defer s.polling.Store(false)

	return s.cycle(ctx)
}

func (s *Scheduler) cycle(ctx context.Context) (domain.Sample, error) {
	started := s.now()

	var (
		chainSnap *domain.ChainSnapshot
		sysSnap   *domain.SystemSnapshot
		chainErr  error
		sysErr    error
	)

	// Neither fetch cancels the other; each fails on its own.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		chainSnap, chainErr = s.fetchChain(ctx)
	}()
	go func() {
		defer wg.Done()
		sysSnap, sysErr = s.fetchSystem(ctx)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.log.Debug("Cycle cancelled, discarding sample")
		return domain.Sample{}, err
	}

	sample := domain.Sample{
		ID:        uuid.NewString(),
		Timestamp: started,
		Chain:     chainSnap,
		System:    sysSnap,
	}
	if chainErr != nil {
		sample.ChainError = chainErr.Error()
	}
	if sysErr != nil {
		sample.SystemError = sysErr.Error()
	}

	sample.Derived = derive.Derive(s.store.Snapshot(), &sample, s.cfg.CPUCores)

	s.store.Append(sample)
	s.record(sample)
	s.publish(ctx, sample)

	return sample, nil
}

func (s *Scheduler) fetchChain(ctx context.Context) (*domain.ChainSnapshot, error) {
	start := time.Now()
	snap, err := fetchWithTimeout(ctx, s.cfg.Timeout, s.chain.Fetch)
	metrics.FetchDuration.WithLabelValues(s.cfg.Node, "chain").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchFailures.WithLabelValues(s.cfg.Node, "chain").Inc()
		s.log.Warn("Chain fetch failed", "error", err)
		return nil, err
	}
	return snap, nil
}

func (s *Scheduler) fetchSystem(ctx context.Context) (*domain.SystemSnapshot, error) {
	start := time.Now()
	snap, err := fetchWithTimeout(ctx, s.cfg.Timeout, s.system.Fetch)
	metrics.FetchDuration.WithLabelValues(s.cfg.Node, "system").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchFailures.WithLabelValues(s.cfg.Node, "system").Inc()
		s.log.Warn("System fetch failed", "error", err)
		return nil, err
	}
	return snap, nil
}

// fetchWithTimeout bounds fetch by timeout. A fetch that overruns is
// abandoned: its late result is dropped into a buffered channel and ignored.
func fetchWithTimeout[T any](
	ctx context.Context,
	timeout time.Duration,
	fetch func(context.Context) (*T, error),
) (*T, error) {
	if timeout <= 0 {
		return fetch(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   *T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fetch(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch abandoned after %s: %w", timeout, ctx.Err())
	}
}

func (s *Scheduler) record(sample domain.Sample) {
	metrics.PollCycles.WithLabelValues(s.cfg.Node).Inc()
	metrics.HistoryLength.WithLabelValues(s.cfg.Node).Set(float64(s.store.Len()))
	if sample.Chain != nil {
		metrics.ChainLatestBlock.WithLabelValues(s.cfg.Node).Set(float64(sample.Chain.BlockNumber))
	}
	if sample.Derived != nil && sample.Derived.HealthScore != nil {
		metrics.HealthScore.WithLabelValues(s.cfg.Node).Set(float64(*sample.Derived.HealthScore))
	}

	s.log.Debug("Cycle complete",
		"cycle", sample.ID,
		"chain", sample.Chain != nil,
		"system", sample.System != nil,
		"history", s.store.Len(),
	)
}

func (s *Scheduler) publish(ctx context.Context, sample domain.Sample) {
	if len(s.sinks) == 0 {
		return
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, s.cfg.Node, sample); err != nil {
			s.log.Warn("Failed to publish sample", "cycle", sample.ID, "error", err)
		}
	}
}
