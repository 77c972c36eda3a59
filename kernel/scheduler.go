package kernel

import (
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/nsim/model"
	"github.com/sarchlab/nsim/timing"
)

// stepResult is everything one iteration changes. It is computed without
// touching the context and applied by commit only if the whole iteration
// succeeded.
type stepResult struct {
	step     timing.Step
	states   []model.NeuronState
	spiked   []bool
	recorded map[model.ID][]model.Record
	emitted  []model.Event
	spikes   []Spike
}

// A Spike is a spike produced during a step.
type Spike struct {
	Origin model.ID    `json:"origin"`
	Stamp  timing.Step `json:"stamp"`
}

// scheduler runs iterations over a context.
type scheduler struct {
	ctx     *simContext
	workers int
}

// stage computes iteration t = clock.Now(): it delivers the events due at t,
// integrates every neuron over (t, t+1], samples the new states and collects
// the events produced with stamp t+1.
func (s *scheduler) stage() (*stepResult, error) {
	ctx := s.ctx
	t := ctx.clock.Now()

	r := &stepResult{
		step:     t,
		recorded: make(map[model.ID][]model.Record),
	}

	inbox := s.deliver(t)

	for _, rec := range ctx.recorders {
		if records := rec.Receive(inbox[rec.ID()]); len(records) > 0 {
			r.recorded[rec.ID()] = records
		}
	}

	if err := s.integrate(r, inbox); err != nil {
		return nil, err
	}

	s.sample(r)
	s.emit(r)

	return r, nil
}

// deliver groups the events due at t by target. Each group is ordered by
// ascending origin id.
func (s *scheduler) deliver(t timing.Step) map[model.ID][]model.Event {
	due := s.ctx.queue.Peek(t)
	inbox := make(map[model.ID][]model.Event)

	for _, e := range due {
		inbox[e.Target] = append(inbox[e.Target], e)
	}

	for _, events := range inbox {
		model.SortDeliveries(events)
	}

	return inbox
}

func (s *scheduler) integrate(
	r *stepResult,
	inbox map[model.ID][]model.Event,
) error {
	neurons := s.ctx.neurons
	r.states = make([]model.NeuronState, len(neurons))
	r.spiked = make([]bool, len(neurons))
	errs := make([]error, len(neurons))

	work := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			n := neurons[i]
			r.states[i], r.spiked[i], errs[i] = n.Integrate(inbox[n.ID()])
		}
	}

	if s.workers <= 1 || len(neurons) < 2*s.workers {
		work(0, len(neurons))
	} else {
		var g errgroup.Group
		g.SetLimit(s.workers)

		chunk := (len(neurons) + s.workers - 1) / s.workers
		for lo := 0; lo < len(neurons); lo += chunk {
			hi := min(lo+chunk, len(neurons))
			g.Go(func() error {
				work(lo, hi)
				return nil
			})
		}

		_ = g.Wait()
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

// sample records the staged neuron states with stamp t+1.
func (s *scheduler) sample(r *stepResult) {
	ctx := s.ctx
	stamp := r.step + 1

	var index map[model.ID]int

	for _, sampler := range ctx.samplers {
		if !sampler.Due(stamp) {
			continue
		}

		if index == nil {
			index = make(map[model.ID]int, len(ctx.neurons))
			for i, n := range ctx.neurons {
				index[n.ID()] = i
			}
		}

		for _, id := range ctx.observed[sampler.ID()] {
			i := index[id]
			rec := sampler.Sample(stamp, ctx.neurons[i], r.states[i])
			r.recorded[sampler.ID()] = append(r.recorded[sampler.ID()], rec)
		}
	}
}

// emit collects the events produced in the iteration in ascending origin id
// order.
func (s *scheduler) emit(r *stepResult) {
	ctx := s.ctx
	stamp := r.step + 1
	ni, gi := 0, 0

	for ni < len(ctx.neurons) || gi < len(ctx.generators) {
		if gi == len(ctx.generators) ||
			(ni < len(ctx.neurons) && ctx.neurons[ni].ID() < ctx.generators[gi].ID()) {
			if r.spiked[ni] {
				s.fan(r, ctx.neurons[ni].ID(), model.PayloadSpike, 0, 1)
			}
			ni++

			continue
		}

		switch g := ctx.generators[gi].(type) {
		case *model.SpikeGenerator:
			if n := g.Spikes(stamp); n > 0 {
				s.fan(r, g.ID(), model.PayloadSpike, 0, n)
			}
		case *model.DCGenerator:
			if amplitude, on := g.Current(stamp); on {
				s.fan(r, g.ID(), model.PayloadCurrent, amplitude, 1)
			}
		}
		gi++
	}
}

func (s *scheduler) fan(
	r *stepResult,
	origin model.ID,
	payload model.Payload,
	amplitude float64,
	count int,
) {
	stamp := r.step + 1

	for i := 0; i < count; i++ {
		if payload == model.PayloadSpike {
			r.spikes = append(r.spikes, Spike{Origin: origin, Stamp: stamp})
		}

		for _, syn := range s.ctx.outgoing[origin] {
			r.emitted = append(r.emitted, model.Event{
				Delivery:  r.step + syn.delay,
				Stamp:     stamp,
				Origin:    origin,
				Target:    syn.target,
				Weight:    syn.weight,
				Payload:   payload,
				Amplitude: amplitude,
			})
		}
	}
}

// commit applies a staged iteration and ticks the clock.
func (s *scheduler) commit(r *stepResult) {
	ctx := s.ctx

	for i, n := range ctx.neurons {
		n.Commit(r.states[i])
	}

	for _, rec := range ctx.recorders {
		if records, ok := r.recorded[rec.ID()]; ok {
			rec.Commit(records)
		}
	}

	for _, sampler := range ctx.samplers {
		if records, ok := r.recorded[sampler.ID()]; ok {
			sampler.Commit(records)
		}
	}

	ctx.queue.Drop(r.step)

	for _, e := range r.emitted {
		ctx.queue.Push(e.Delivery, e)
	}

	ctx.clock.Tick()
}
