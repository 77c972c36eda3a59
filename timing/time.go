// Package timing provides the time base of the simulation kernel: a grid of
// integer steps laid over integer tics, the clock that walks the grid and the
// time-bucketed queue that holds future deliveries.
package timing

import (
	"errors"
	"math"
)

// Step counts resolution units since the start of a run-series.
type Step uint64

// MaxStep is the largest representable step. It stands for "never".
const MaxStep = Step(math.MaxUint64)

const (
	// DefaultTicsPerMs is the number of tics in one millisecond.
	DefaultTicsPerMs int64 = 1000

	// DefaultResolution is the default step length in milliseconds.
	DefaultResolution = 0.1
)

var (
	// ErrOffGrid reports a time that is not a whole number of steps.
	ErrOffGrid = errors.New("timing: value is not a multiple of the resolution")

	// ErrNotRepresentable reports a time that cannot be expressed in tics.
	ErrNotRepresentable = errors.New("timing: value cannot be expressed in tics")
)

// msToTics converts milliseconds to tics, rejecting values whose rounding
// residue would change the time they denote.
func msToTics(ms float64, ticsPerMs int64) (int64, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0, ErrNotRepresentable
	}

	scaled := ms * float64(ticsPerMs)
	rounded := math.Round(scaled)

	if math.Abs(scaled-rounded) > alignmentTolerance(scaled) {
		return 0, ErrNotRepresentable
	}

	if rounded > math.MaxInt64 || rounded < math.MinInt64 {
		return 0, ErrNotRepresentable
	}

	return int64(rounded), nil
}

func alignmentTolerance(scaled float64) float64 {
	return math.Max(1e-6, 1e-12*math.Abs(scaled))
}
