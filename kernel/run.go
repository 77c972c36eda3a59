package kernel

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sarchlab/nsim/hooking"
	"github.com/sarchlab/nsim/timing"
)

// Advance runs the simulation for a duration in milliseconds.
//
// The duration must be a whole number of steps, otherwise Advance fails with
// simerr.ErrInvalidDuration before any step runs. A sequence of Advance calls
// produces the same recordings as one call over the summed duration. If a
// step fails, the steps before it stay committed and the clock stops at the
// last completed step.
func (k *Kernel) Advance(ms float64) error {
	ctx, unlock, err := k.write()
	if err != nil {
		return err
	}
	defer unlock()

	steps, err := ctx.clock.DurationSteps(ms)
	if err != nil {
		return err
	}

	from := ctx.clock.Now()
	info := AdvanceInfo{From: from, To: from + steps}

	k.running.Store(true)
	defer k.running.Store(false)

	k.runStart.Store(uint64(info.From))
	k.runEnd.Store(uint64(info.To))

	k.InvokeHook(hooking.HookCtx{
		Domain: k,
		Pos:    HookPosAdvanceStart,
		Item:   info,
	})

	sched := &scheduler{ctx: ctx, workers: k.cfg.Workers}
	err = k.run(sched, info.To)

	info.Reached = ctx.clock.Now()
	info.Err = err

	k.InvokeHook(hooking.HookCtx{
		Domain: k,
		Pos:    HookPosAdvanceEnd,
		Item:   info,
	})

	if err != nil {
		k.logger.Error("advance failed",
			zap.Uint64("step", uint64(info.Reached)),
			zap.Float64("time_ms", ctx.clock.NowMs()),
			zap.Error(err))

		return fmt.Errorf("advance stopped at %g ms: %w", ctx.clock.NowMs(), err)
	}

	k.logger.Info("advance completed",
		zap.Float64("duration_ms", ms),
		zap.Uint64("steps", uint64(steps)),
		zap.Float64("time_ms", ctx.clock.NowMs()))

	return nil
}

func (k *Kernel) run(sched *scheduler, to timing.Step) error {
	ctx := sched.ctx

	for ctx.clock.Now() < to {
		r, err := sched.stage()
		if err != nil {
			return err
		}

		sched.commit(r)
		k.now.Store(uint64(ctx.clock.Now()))

		k.notify(r)
	}

	return nil
}

func (k *Kernel) notify(r *stepResult) {
	if k.NumHooks() == 0 {
		return
	}

	for _, spike := range r.spikes {
		k.InvokeHook(hooking.HookCtx{
			Domain: k,
			Pos:    HookPosSpike,
			Item:   spike,
		})
	}

	k.InvokeHook(hooking.HookCtx{
		Domain: k,
		Pos:    HookPosStep,
		Item: StepInfo{
			Step:   r.step + 1,
			Spikes: len(r.spikes),
		},
	})
}
