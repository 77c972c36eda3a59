package model

import "github.com/sarchlab/nsim/timing"

// A Window is the activity window of a device, expressed in steps. A device
// is active for stamps s with origin+start < s <= origin+stop.
type Window struct {
	Origin timing.Step
	Start  timing.Step
	Stop   timing.Step
}

// Contains tells whether a stamp lies in the half-open window.
func (w Window) Contains(s timing.Step) bool {
	return s > w.Origin+w.Start && s <= w.stop()
}

// ContainsClosed tells whether a stamp lies in the closed window
// origin+start <= s <= origin+stop.
func (w Window) ContainsClosed(s timing.Step) bool {
	return s >= w.Origin+w.Start && s <= w.stop()
}

func (w Window) stop() timing.Step {
	if w.Stop == timing.MaxStep {
		return timing.MaxStep
	}

	return w.Origin + w.Stop
}

// windowParams holds the millisecond form of a Window.
type windowParams struct {
	origin, start, stop float64
}

func defaultWindowParams() windowParams {
	return windowParams{stop: inf}
}

func (wp *windowParams) read(r *paramReader) {
	r.float("origin", &wp.origin)
	r.float("start", &wp.start)
	r.float("stop", &wp.stop)
}

func (wp windowParams) quantize(model string, clock *timing.Clock) (Window, error) {
	var (
		w   Window
		err error
	)

	if wp.stop < wp.start {
		return w, configf(model, "stop %g ms is before start %g ms",
			wp.stop, wp.start)
	}

	if w.Origin, err = clock.Steps(wp.origin); err != nil {
		return w, wrapParam(model, "origin", err)
	}

	if w.Start, err = clock.Steps(wp.start); err != nil {
		return w, wrapParam(model, "start", err)
	}

	w.Stop = timing.MaxStep
	if !isInf(wp.stop) {
		if w.Stop, err = clock.Steps(wp.stop); err != nil {
			return w, wrapParam(model, "stop", err)
		}
	}

	return w, nil
}

func (wp windowParams) status(p Params) {
	p["origin"] = wp.origin
	p["start"] = wp.start
	p["stop"] = wp.stop
}
