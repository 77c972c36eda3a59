package model

import (
	"slices"

	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// Sampler model names.
const (
	VoltmeterModel  = "voltmeter"
	MultimeterModel = "multimeter"
)

// A Sampler periodically records state variables of the neurons it observes.
// It never affects the dynamics of the network.
type Sampler struct {
	nodeBase
	recordingDevice

	fixed      bool
	recordFrom []string
	intervalMs float64
	interval   timing.Step
}

func newVoltmeter(id ID, clock *timing.Clock, p Params) (Node, error) {
	return newSampler(id, VoltmeterModel, clock, p, []string{"V_m"}, true)
}

func newMultimeter(id ID, clock *timing.Clock, p Params) (Node, error) {
	return newSampler(id, MultimeterModel, clock, p, nil, false)
}

func newSampler(
	id ID,
	model string,
	clock *timing.Clock,
	p Params,
	recordFrom []string,
	fixed bool,
) (Node, error) {
	s := &Sampler{
		nodeBase:        nodeBase{id: id, model: model},
		recordingDevice: newRecordingDevice(clock),
		fixed:           fixed,
		recordFrom:      recordFrom,
		intervalMs:      clock.Resolution(),
		interval:        1,
	}

	if err := s.SetStatus(p); err != nil {
		return nil, err
	}

	return s, nil
}

// Kind returns KindSampler.
func (s *Sampler) Kind() Kind {
	return KindSampler
}

// RecordFrom lists the sampled variables.
func (s *Sampler) RecordFrom() []string {
	return append([]string(nil), s.recordFrom...)
}

// Interval returns the sampling interval in steps.
func (s *Sampler) Interval() timing.Step {
	return s.interval
}

// Due tells whether the sampler takes a sample of the state that belongs to
// the stamp: the stamp lies in the closed window and is a whole number of
// intervals after the window start.
func (s *Sampler) Due(stamp timing.Step) bool {
	if !s.active.ContainsClosed(stamp) {
		return false
	}

	first := s.active.Origin + s.active.Start

	return (stamp-first)%s.interval == 0
}

// Sample builds the record of one observed neuron from its state.
func (s *Sampler) Sample(stamp timing.Step, n *Neuron, state NeuronState) Record {
	values := make([]float64, len(s.recordFrom))
	for i, name := range s.recordFrom {
		values[i], _ = n.Observe(state, name)
	}

	return Record{
		Step:   stamp,
		Sender: n.ID(),
		Values: values,
	}
}

// Fields lists the read-out fields.
func (s *Sampler) Fields() []string {
	return append([]string{"times", "senders"}, s.recordFrom...)
}

// Events returns one field of the recording.
func (s *Sampler) Events(
	field string,
	stepToMs func(timing.Step) float64,
) ([]float64, error) {
	switch field {
	case "times":
		return s.column(func(rec Record) float64 {
			return s.presentTime(rec.Step, stepToMs)
		}), nil
	case "senders":
		return s.column(func(rec Record) float64 {
			return float64(rec.Sender)
		}), nil
	}

	i := slices.Index(s.recordFrom, field)
	if i < 0 {
		return nil, simerr.UnknownFieldf("%s %d does not record %q",
			s.model, s.id, field)
	}

	return s.column(func(rec Record) float64 {
		return rec.Values[i]
	}), nil
}

// Status reports the window, the interval, the sampled variables and the
// number of records.
func (s *Sampler) Status() Params {
	p := Params{
		"model":       s.model,
		"interval":    s.intervalMs,
		"record_from": s.RecordFrom(),
	}
	s.status(p)

	return p
}

// SetStatus changes the sampling settings. The sampled variables can only
// change while the recording is empty.
func (s *Sampler) SetStatus(p Params) error {
	intervalMs := s.intervalMs
	recordFrom := s.recordFrom

	r := newParamReader(s.model, p)
	u := s.read(r)
	r.float("interval", &intervalMs)
	r.strings("record_from", &recordFrom)
	r.readOnly("model", s.model)

	if err := r.done(); err != nil {
		return err
	}

	if err := s.check(s.model, u); err != nil {
		return err
	}

	interval, err := s.quantizeInterval(intervalMs)
	if err != nil {
		return err
	}

	if err := s.checkRecordFrom(recordFrom, u.clear); err != nil {
		return err
	}

	s.apply(u)
	s.intervalMs = intervalMs
	s.interval = interval
	s.recordFrom = append([]string(nil), recordFrom...)

	return nil
}

func (s *Sampler) quantizeInterval(ms float64) (timing.Step, error) {
	steps, err := s.clock.Steps(ms)
	if err != nil {
		return 0, wrapParam(s.model, "interval", err)
	}

	if steps == 0 {
		return 0, configf(s.model, "interval must be at least one step")
	}

	return steps, nil
}

func (s *Sampler) checkRecordFrom(names []string, clearing bool) error {
	if slices.Equal(names, s.recordFrom) {
		return nil
	}

	if s.fixed {
		return configf(s.model, "record_from is fixed to %v", s.recordFrom)
	}

	if s.recording.Len() > 0 && !clearing {
		return configf(s.model,
			"record_from cannot change while the device holds records")
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !slices.Contains(Observables, name) {
			return configf(s.model, "cannot record %q, observables are %v",
				name, Observables)
		}

		if seen[name] {
			return configf(s.model, "%q is listed twice in record_from", name)
		}
		seen[name] = true
	}

	return nil
}
