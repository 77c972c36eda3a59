package kernel

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sarchlab/nsim/hooking"
	"github.com/sarchlab/nsim/model"
)

// SpikeCountTracer counts the spikes of each node and the steps that carried
// at least one spike.
type SpikeCountTracer struct {
	lock        sync.Mutex
	origins     []model.ID
	spikeCount  map[model.ID]uint64
	activeSteps uint64
	stepsTraced uint64
}

// NewSpikeCountTracer creates a new SpikeCountTracer.
func NewSpikeCountTracer() *SpikeCountTracer {
	return &SpikeCountTracer{
		spikeCount: make(map[model.ID]uint64),
	}
}

// Func counts spikes and steps.
func (t *SpikeCountTracer) Func(ctx hooking.HookCtx) {
	t.lock.Lock()
	defer t.lock.Unlock()

	switch ctx.Pos {
	case HookPosSpike:
		spike := ctx.Item.(Spike)
		if _, ok := t.spikeCount[spike.Origin]; !ok {
			t.origins = append(t.origins, spike.Origin)
		}
		t.spikeCount[spike.Origin]++
	case HookPosStep:
		info := ctx.Item.(StepInfo)
		t.stepsTraced++
		if info.Spikes > 0 {
			t.activeSteps++
		}
	}
}

// Origins returns the nodes that spiked, in ascending id order.
func (t *SpikeCountTracer) Origins() []model.ID {
	t.lock.Lock()
	defer t.lock.Unlock()

	origins := append([]model.ID(nil), t.origins...)
	sort.Slice(origins, func(i, j int) bool { return origins[i] < origins[j] })

	return origins
}

// SpikeCount returns the number of spikes of a node.
func (t *SpikeCountTracer) SpikeCount(id model.ID) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.spikeCount[id]
}

// StepCount returns the number of traced steps and how many of them carried
// spikes.
func (t *SpikeCountTracer) StepCount() (traced, active uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.stepsTraced, t.activeSteps
}

// A LogHook writes advance boundaries and spikes into a logger.
type LogHook struct {
	logger *zap.Logger
	spikes bool
}

// NewLogHook creates a LogHook. Spikes are logged at debug level when
// spikes is set.
func NewLogHook(logger *zap.Logger, spikes bool) *LogHook {
	return &LogHook{logger: logger, spikes: spikes}
}

// Func writes the hook information into the logger.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosAdvanceStart:
		info := ctx.Item.(AdvanceInfo)
		h.logger.Info("advance started",
			zap.Uint64("from_step", uint64(info.From)),
			zap.Uint64("to_step", uint64(info.To)))
	case HookPosAdvanceEnd:
		info := ctx.Item.(AdvanceInfo)
		h.logger.Info("advance ended",
			zap.Uint64("reached_step", uint64(info.Reached)),
			zap.Error(info.Err))
	case HookPosSpike:
		if !h.spikes {
			return
		}

		spike := ctx.Item.(Spike)
		h.logger.Debug("spike",
			zap.Uint64("origin", uint64(spike.Origin)),
			zap.Uint64("stamp", uint64(spike.Stamp)))
	}
}
