// Package kernel implements the simulation kernel: the context that owns the
// clock, the nodes, the connections and the event queue, the scheduler that
// advances it step by step, and the run controller that makes a sequence of
// Advance calls equivalent to a single one.
package kernel

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sarchlab/nsim/hooking"
	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// A Kernel simulates one network over a run-series.
//
// All methods are safe to call from several goroutines. While Advance is in
// progress every other method that reads or changes the simulation fails with
// simerr.ErrStateUnavailable; Now and Progress stay available for monitors.
type Kernel struct {
	*hooking.HookableBase

	cfg    Config
	logger *zap.Logger

	// lock is held for writing by Advance and by mutating calls. Nobody
	// waits for it while a run is in progress.
	lock sync.RWMutex
	ctx  *simContext

	now      atomic.Uint64
	runStart atomic.Uint64
	runEnd   atomic.Uint64
	running  atomic.Bool
}

// NewKernel creates an empty kernel.
func NewKernel(opts ...Option) (*Kernel, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	clock, err := cfg.newClock()
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		HookableBase: hooking.NewHookableBase(),
		cfg:          cfg,
		logger:       cfg.Logger,
		ctx:          newSimContext(clock),
	}

	return k, nil
}

// Logger returns the kernel logger.
func (k *Kernel) Logger() *zap.Logger {
	return k.logger
}

// Workers returns the number of goroutines used to integrate neurons.
func (k *Kernel) Workers() int {
	return k.cfg.Workers
}

func (k *Kernel) read() (*simContext, func(), error) {
	if !k.lock.TryRLock() {
		if k.running.Load() {
			return nil, nil, simerr.StateUnavailablef("a run is in progress")
		}

		k.lock.RLock()
	}

	return k.ctx, k.lock.RUnlock, nil
}

func (k *Kernel) write() (*simContext, func(), error) {
	if !k.lock.TryLock() {
		if k.running.Load() {
			return nil, nil, simerr.StateUnavailablef("a run is in progress")
		}

		k.lock.Lock()
	}

	return k.ctx, k.lock.Unlock, nil
}

// Reset discards all nodes, connections, recordings and pending events and
// rewinds the clock to step 0. The resolution returns to the configured one.
func (k *Kernel) Reset() error {
	_, unlock, err := k.write()
	if err != nil {
		return err
	}
	defer unlock()

	clock, err := k.cfg.newClock()
	if err != nil {
		return err
	}

	k.ctx = newSimContext(clock)
	k.now.Store(0)
	k.runStart.Store(0)
	k.runEnd.Store(0)

	k.logger.Info("kernel reset",
		zap.Float64("resolution_ms", clock.Resolution()))

	return nil
}

// SetResolution changes the step length in milliseconds. It fails with
// simerr.ErrConfiguration once nodes exist.
func (k *Kernel) SetResolution(ms float64) error {
	ctx, unlock, err := k.write()
	if err != nil {
		return err
	}
	defer unlock()

	if err := ctx.clock.SetResolution(ms); err != nil {
		return err
	}

	k.logger.Debug("resolution set", zap.Float64("resolution_ms", ms))

	return nil
}

// Resolution returns the step length in milliseconds.
func (k *Kernel) Resolution() (float64, error) {
	ctx, unlock, err := k.read()
	if err != nil {
		return 0, err
	}
	defer unlock()

	return ctx.clock.Resolution(), nil
}

// Now returns the number of completed steps of the run-series. During a run
// it reports the last committed step.
func (k *Kernel) Now() timing.Step {
	return timing.Step(k.now.Load())
}

// Progress reports the first and last step of the current or most recent
// Advance call together with the last committed step.
func (k *Kernel) Progress() (start, now, end timing.Step, running bool) {
	return timing.Step(k.runStart.Load()),
		timing.Step(k.now.Load()),
		timing.Step(k.runEnd.Load()),
		k.running.Load()
}

// Status summarizes the kernel.
type Status struct {
	Resolution     float64 `json:"resolution_ms"`
	TicsPerMs      int64   `json:"tics_per_ms"`
	Step           uint64  `json:"step"`
	TimeMs         float64 `json:"time_ms"`
	NumNodes       int     `json:"num_nodes"`
	NumConnections int     `json:"num_connections"`
	PendingEvents  int     `json:"pending_events"`
}

// Status reports the clock and the size of the network.
func (k *Kernel) Status() (Status, error) {
	ctx, unlock, err := k.read()
	if err != nil {
		return Status{}, err
	}
	defer unlock()

	return Status{
		Resolution:     ctx.clock.Resolution(),
		TicsPerMs:      ctx.clock.TicsPerMs(),
		Step:           uint64(ctx.clock.Now()),
		TimeMs:         ctx.clock.NowMs(),
		NumNodes:       len(ctx.nodes),
		NumConnections: ctx.numConnections,
		PendingEvents:  ctx.queue.Len(),
	}, nil
}

// StepToMs converts a step to milliseconds at the current resolution.
func (k *Kernel) StepToMs(s timing.Step) (float64, error) {
	ctx, unlock, err := k.read()
	if err != nil {
		return 0, err
	}
	defer unlock()

	return ctx.clock.StepToMs(s), nil
}

// DurationSteps converts a duration in milliseconds to steps. It fails with
// simerr.ErrInvalidDuration exactly when Advance would reject the duration.
func (k *Kernel) DurationSteps(ms float64) (timing.Step, error) {
	ctx, unlock, err := k.read()
	if err != nil {
		return 0, err
	}
	defer unlock()

	return ctx.clock.DurationSteps(ms)
}
