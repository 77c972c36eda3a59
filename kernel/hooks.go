package kernel

import (
	"github.com/sarchlab/nsim/hooking"
	"github.com/sarchlab/nsim/timing"
)

// HookPosAdvanceStart marks the start of an Advance call. The item is an
// AdvanceInfo.
var HookPosAdvanceStart = &hooking.HookPos{Name: "AdvanceStart"}

// HookPosAdvanceEnd marks the end of an Advance call, successful or not. The
// item is an AdvanceInfo.
var HookPosAdvanceEnd = &hooking.HookPos{Name: "AdvanceEnd"}

// HookPosStep marks a committed step. The item is a StepInfo.
var HookPosStep = &hooking.HookPos{Name: "Step"}

// HookPosSpike marks a spike of a committed step. The item is a Spike.
var HookPosSpike = &hooking.HookPos{Name: "Spike"}

// AdvanceInfo describes an Advance call.
type AdvanceInfo struct {
	From, To timing.Step

	// Reached is the step the run stopped at. It is only set at the end.
	Reached timing.Step

	Err error
}

// StepInfo describes a committed step.
type StepInfo struct {
	// Step is the clock value after the step.
	Step   timing.Step
	Spikes int
}
