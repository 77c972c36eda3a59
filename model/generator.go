package model

import (
	"errors"
	"sort"

	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// Generator model names.
const (
	SpikeGeneratorModel = "spike_generator"
	DCGeneratorModel    = "dc_generator"
)

// A SpikeGenerator emits spikes at preset times.
type SpikeGenerator struct {
	nodeBase

	clock  *timing.Clock
	times  []float64
	steps  []timing.Step
	window windowParams
	active Window
}

func newSpikeGenerator(id ID, clock *timing.Clock, p Params) (Node, error) {
	g := &SpikeGenerator{
		nodeBase: nodeBase{id: id, model: SpikeGeneratorModel},
		clock:    clock,
		window:   defaultWindowParams(),
	}

	if err := g.SetStatus(p); err != nil {
		return nil, err
	}

	return g, nil
}

// Kind returns KindSpikeGenerator.
func (g *SpikeGenerator) Kind() Kind {
	return KindSpikeGenerator
}

// Spikes tells how many spikes carry the given stamp. It is 0 or 1.
func (g *SpikeGenerator) Spikes(stamp timing.Step) int {
	if !g.active.Contains(stamp) {
		return 0
	}

	i := sort.Search(len(g.steps), func(i int) bool {
		return g.steps[i] >= stamp
	})

	if i < len(g.steps) && g.steps[i] == stamp {
		return 1
	}

	return 0
}

// SpikeSteps returns the trigger steps.
func (g *SpikeGenerator) SpikeSteps() []timing.Step {
	return append([]timing.Step(nil), g.steps...)
}

// Status reports the spike times and the window.
func (g *SpikeGenerator) Status() Params {
	p := Params{
		"model":       g.model,
		"spike_times": append([]float64(nil), g.times...),
	}
	g.window.status(p)

	return p
}

// SetStatus changes the spike times or the window.
func (g *SpikeGenerator) SetStatus(p Params) error {
	times := g.times
	window := g.window

	r := newParamReader(g.model, p)
	r.floats("spike_times", &times)
	window.read(r)
	r.readOnly("model", g.model)

	if err := r.done(); err != nil {
		return err
	}

	steps, err := g.quantizeTimes(times)
	if err != nil {
		return err
	}

	active, err := window.quantize(g.model, g.clock)
	if err != nil {
		return err
	}

	g.times = append([]float64(nil), times...)
	g.steps = steps
	g.window = window
	g.active = active

	return nil
}

func (g *SpikeGenerator) quantizeTimes(times []float64) ([]timing.Step, error) {
	steps := make([]timing.Step, len(times))

	for i, t := range times {
		if !(t > 0) || isInf(t) {
			return nil, configf(g.model,
				"spike time %g ms must be positive and finite", t)
		}

		if i > 0 && !(t > times[i-1]) {
			return nil, configf(g.model,
				"spike times must be strictly ascending, %g ms follows %g ms",
				t, times[i-1])
		}

		s, err := g.clock.Steps(t)
		if errors.Is(err, timing.ErrOffGrid) ||
			errors.Is(err, timing.ErrNotRepresentable) {
			return nil, simerr.MisalignedSpikeTimef(
				"%s %d: spike time %g ms is not a multiple of the resolution %g ms",
				g.model, g.id, t, g.clock.Resolution())
		}

		if err != nil {
			return nil, wrapParam(g.model, "spike_times", err)
		}

		steps[i] = s
	}

	return steps, nil
}

// A DCGenerator injects a constant current while its window is open.
type DCGenerator struct {
	nodeBase

	clock     *timing.Clock
	amplitude float64
	window    windowParams
	active    Window
}

func newDCGenerator(id ID, clock *timing.Clock, p Params) (Node, error) {
	g := &DCGenerator{
		nodeBase: nodeBase{id: id, model: DCGeneratorModel},
		clock:    clock,
		window:   defaultWindowParams(),
	}

	if err := g.SetStatus(p); err != nil {
		return nil, err
	}

	return g, nil
}

// Kind returns KindCurrentGenerator.
func (g *DCGenerator) Kind() Kind {
	return KindCurrentGenerator
}

// Current returns the amplitude in pA of the current that belongs to the
// stamp, and false if the window is closed at that stamp.
func (g *DCGenerator) Current(stamp timing.Step) (float64, bool) {
	if !g.active.Contains(stamp) {
		return 0, false
	}

	return g.amplitude, true
}

// Status reports the amplitude and the window.
func (g *DCGenerator) Status() Params {
	p := Params{
		"model":     g.model,
		"amplitude": g.amplitude,
	}
	g.window.status(p)

	return p
}

// SetStatus changes the amplitude or the window.
func (g *DCGenerator) SetStatus(p Params) error {
	amplitude := g.amplitude
	window := g.window

	r := newParamReader(g.model, p)
	r.float("amplitude", &amplitude)
	window.read(r)
	r.readOnly("model", g.model)

	if err := r.done(); err != nil {
		return err
	}

	if !finite(amplitude) {
		return configf(g.model, "amplitude must be finite")
	}

	active, err := window.quantize(g.model, g.clock)
	if err != nil {
		return err
	}

	g.amplitude = amplitude
	g.window = window
	g.active = active

	return nil
}
