package timing

import (
	"errors"

	"github.com/sarchlab/nsim/simerr"
)

// A Clock owns the global discrete simulation time.
//
// The clock is expressed in integer steps of a fixed resolution. The
// resolution is counted in tics so that conversions between steps and
// milliseconds are exact. Once frozen, the resolution can no longer change.
type Clock struct {
	ticsPerMs  int64
	resolution int64
	now        Step
	frozen     bool
}

// NewClock creates a clock at step 0 with the default resolution.
func NewClock() *Clock {
	c := &Clock{
		ticsPerMs: DefaultTicsPerMs,
	}

	tics, _ := msToTics(DefaultResolution, c.ticsPerMs)
	c.resolution = tics

	return c
}

// NewClockWithBase creates a clock at step 0 with the given tic base and
// resolution in milliseconds.
func NewClockWithBase(ticsPerMs int64, resolution float64) (*Clock, error) {
	if ticsPerMs <= 0 {
		return nil, simerr.Configf("tics_per_ms must be positive, got %d", ticsPerMs)
	}

	c := &Clock{
		ticsPerMs:  ticsPerMs,
		resolution: 1,
	}

	if err := c.SetResolution(resolution); err != nil {
		return nil, err
	}

	return c, nil
}

// SetTicsPerMs changes the tic base. The resolution is kept in milliseconds
// and must stay representable in the new base.
func (c *Clock) SetTicsPerMs(ticsPerMs int64) error {
	if c.frozen {
		return simerr.Configf(
			"tics_per_ms cannot change once nodes exist")
	}

	if ticsPerMs <= 0 {
		return simerr.Configf("tics_per_ms must be positive, got %d", ticsPerMs)
	}

	resMs := c.Resolution()

	tics, err := msToTics(resMs, ticsPerMs)
	if err != nil || tics <= 0 {
		return simerr.Configf(
			"resolution %g ms is not representable with %d tics per ms",
			resMs, ticsPerMs)
	}

	c.ticsPerMs = ticsPerMs
	c.resolution = tics

	return nil
}

// TicsPerMs returns the number of tics in one millisecond.
func (c *Clock) TicsPerMs() int64 {
	return c.ticsPerMs
}

// SetResolution sets the step length in milliseconds.
func (c *Clock) SetResolution(ms float64) error {
	if c.frozen {
		return simerr.Configf(
			"resolution cannot change once nodes or connections exist")
	}

	tics, err := msToTics(ms, c.ticsPerMs)
	if err != nil {
		return simerr.Configf("resolution %g ms: %v", ms, err)
	}

	if tics <= 0 {
		return simerr.Configf("resolution must be positive, got %g ms", ms)
	}

	c.resolution = tics

	return nil
}

// Resolution returns the step length in milliseconds.
func (c *Clock) Resolution() float64 {
	return float64(c.resolution) / float64(c.ticsPerMs)
}

// ResolutionTics returns the step length in tics.
func (c *Clock) ResolutionTics() int64 {
	return c.resolution
}

// Freeze locks the resolution and the tic base.
func (c *Clock) Freeze() {
	c.frozen = true
}

// Frozen tells whether the resolution is locked.
func (c *Clock) Frozen() bool {
	return c.frozen
}

// Now returns the current step.
func (c *Clock) Now() Step {
	return c.now
}

// NowMs returns the current time in milliseconds.
func (c *Clock) NowMs() float64 {
	return c.StepToMs(c.now)
}

// Tick advances the clock by one step.
func (c *Clock) Tick() {
	c.now++
}

// StepToMs converts a step to milliseconds. The product is formed in tics so
// that the result does not depend on how the step was reached.
func (c *Clock) StepToMs(s Step) float64 {
	return float64(int64(s)*c.resolution) / float64(c.ticsPerMs)
}

// Steps converts a non-negative time in milliseconds to steps. Times that are
// not a whole number of steps are rejected with an error that wraps both
// simerr.ErrConfiguration and ErrOffGrid, or ErrNotRepresentable if the time
// is not a whole number of tics either.
func (c *Clock) Steps(ms float64) (Step, error) {
	if ms < 0 {
		return 0, simerr.Configf("time must not be negative, got %g ms", ms)
	}

	tics, err := msToTics(ms, c.ticsPerMs)
	if err != nil {
		return 0, errors.Join(simerr.Configf("%g ms: %v", ms, err), err)
	}

	if tics%c.resolution != 0 {
		return 0, errors.Join(
			simerr.Configf("%g ms is not a multiple of the resolution %g ms",
				ms, c.Resolution()),
			ErrOffGrid)
	}

	return Step(tics / c.resolution), nil
}

// RoundSteps converts a non-negative time in milliseconds to the nearest
// number of steps.
func (c *Clock) RoundSteps(ms float64) (Step, error) {
	if ms < 0 {
		return 0, simerr.Configf("time must not be negative, got %g ms", ms)
	}

	tics, err := msToTics(ms, c.ticsPerMs)
	if err != nil {
		return 0, simerr.Configf("%g ms: %v", ms, err)
	}

	return Step((tics + c.resolution/2) / c.resolution), nil
}

// DurationSteps converts a run duration to steps. Durations that are not a
// whole number of steps fail with simerr.ErrInvalidDuration.
func (c *Clock) DurationSteps(ms float64) (Step, error) {
	if ms < 0 {
		return 0, simerr.InvalidDurationf(
			"duration must not be negative, got %g ms", ms)
	}

	tics, err := msToTics(ms, c.ticsPerMs)
	if err != nil {
		return 0, simerr.InvalidDurationf("%g ms: %v", ms, err)
	}

	if tics%c.resolution != 0 {
		return 0, simerr.InvalidDurationf(
			"%g ms is not a multiple of the resolution %g ms",
			ms, c.Resolution())
	}

	return Step(tics / c.resolution), nil
}
