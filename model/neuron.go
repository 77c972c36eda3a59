package model

import (
	"math"

	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// IAFPscAlphaModel is the model name of the leaky integrate-and-fire neuron
// with alpha-shaped postsynaptic currents.
const IAFPscAlphaModel = "iaf_psc_alpha"

// IAFPscAlphaParams are the parameters of an iaf_psc_alpha neuron. Times are
// in ms, potentials in mV, currents in pA and capacitance in pF.
type IAFPscAlphaParams struct {
	CM       float64
	TauM     float64
	TRef     float64
	EL       float64
	VTh      float64
	VReset   float64
	VMin     float64
	TauSynEx float64
	TauSynIn float64
	IE       float64
}

// DefaultIAFPscAlphaParams returns the default parameters.
func DefaultIAFPscAlphaParams() IAFPscAlphaParams {
	return IAFPscAlphaParams{
		CM:       250,
		TauM:     10,
		TRef:     2,
		EL:       -70,
		VTh:      -55,
		VReset:   -70,
		VMin:     math.Inf(-1),
		TauSynEx: 2,
		TauSynIn: 2,
		IE:       0,
	}
}

func (p *IAFPscAlphaParams) read(r *paramReader) {
	r.float("C_m", &p.CM)
	r.float("tau_m", &p.TauM)
	r.float("t_ref", &p.TRef)
	r.float("E_L", &p.EL)
	r.float("V_th", &p.VTh)
	r.float("V_reset", &p.VReset)
	r.float("V_min", &p.VMin)
	r.float("tau_syn_ex", &p.TauSynEx)
	r.float("tau_syn_in", &p.TauSynIn)
	r.float("I_e", &p.IE)
}

func (p IAFPscAlphaParams) validate() error {
	switch {
	case !(p.CM > 0):
		return configf(IAFPscAlphaModel, "C_m must be positive")
	case !(p.TauM > 0):
		return configf(IAFPscAlphaModel, "tau_m must be positive")
	case !(p.TauSynEx > 0) || !(p.TauSynIn > 0):
		return configf(IAFPscAlphaModel, "synaptic time constants must be positive")
	case !(p.TRef >= 0):
		return configf(IAFPscAlphaModel, "t_ref must not be negative")
	case !(p.VReset < p.VTh):
		return configf(IAFPscAlphaModel, "V_reset must be below V_th")
	case !(p.VMin <= p.VReset):
		return configf(IAFPscAlphaModel, "V_min must not exceed V_reset")
	case !finite(p.EL, p.VTh, p.VReset, p.IE):
		return configf(IAFPscAlphaModel, "E_L, V_th, V_reset and I_e must be finite")
	}

	return nil
}

// NeuronState is the dynamic state of an iaf_psc_alpha neuron. V is kept
// relative to E_L.
type NeuronState struct {
	V          float64
	DIEx       float64
	IEx        float64
	DIIn       float64
	IIn        float64
	IStim      float64
	Refractory timing.Step
}

// Observables lists the state variables a sampler may record from a neuron.
var Observables = []string{"V_m", "I_syn_ex", "I_syn_in"}

// A Neuron is an iaf_psc_alpha neuron integrated exactly on the step grid.
//
// Integrate is a pure function of the committed state, the inputs delivered
// at the step and the resolution. The kernel commits the result only when
// the whole step succeeds.
type Neuron struct {
	nodeBase

	params IAFPscAlphaParams
	clock  *timing.Clock
	h      float64

	ex, in          alphaPropagator
	p30, expm1TauM  float64
	refractorySteps timing.Step
	theta, vReset   float64
	vMin            float64

	state NeuronState
}

func newNeuron(id ID, clock *timing.Clock, p Params) (Node, error) {
	n := &Neuron{
		nodeBase: nodeBase{id: id, model: IAFPscAlphaModel},
		params:   DefaultIAFPscAlphaParams(),
		clock:    clock,
	}

	r := newParamReader(IAFPscAlphaModel, p)
	n.params.read(r)

	vm := n.params.EL
	r.float("V_m", &vm)

	if err := r.done(); err != nil {
		return nil, err
	}

	if err := n.params.validate(); err != nil {
		return nil, err
	}

	if err := n.calibrate(); err != nil {
		return nil, err
	}

	n.state.V = vm - n.params.EL

	return n, nil
}

func (n *Neuron) calibrate() error {
	p := n.params
	h := n.clock.Resolution()

	refractory, err := n.clock.RoundSteps(p.TRef)
	if err != nil {
		return wrapParam(IAFPscAlphaModel, "t_ref", err)
	}

	n.h = h
	n.refractorySteps = refractory
	n.ex = newAlphaPropagator(h, p.TauSynEx, p.TauM, p.CM)
	n.in = newAlphaPropagator(h, p.TauSynIn, p.TauM, p.CM)
	n.expm1TauM = math.Expm1(-h / p.TauM)
	n.p30 = -p.TauM / p.CM * n.expm1TauM
	n.theta = p.VTh - p.EL
	n.vReset = p.VReset - p.EL
	n.vMin = p.VMin - p.EL

	return nil
}

// Kind returns KindNeuron.
func (n *Neuron) Kind() Kind {
	return KindNeuron
}

// Params returns the neuron parameters.
func (n *Neuron) Params() IAFPscAlphaParams {
	return n.params
}

// State returns the committed state.
func (n *Neuron) State() NeuronState {
	return n.state
}

// Integrate computes the state after one step from the committed state and
// the events delivered at that step, which must be sorted with
// SortDeliveries. It reports whether the neuron crossed the threshold.
func (n *Neuron) Integrate(delivered []Event) (NeuronState, bool, error) {
	s := n.state

	if s.Refractory == 0 {
		s.V = n.p30*(s.IStim+n.params.IE) +
			n.ex.p31*s.DIEx + n.ex.p32*s.IEx +
			n.in.p31*s.DIIn + n.in.p32*s.IIn +
			n.expm1TauM*s.V + s.V

		if s.V < n.vMin {
			s.V = n.vMin
		}

		if !finite(s.V) {
			return s, false, n.fault(s)
		}
	} else {
		s.Refractory--
	}

	s.IEx = n.ex.p21*s.DIEx + n.ex.p22*s.IEx
	s.DIEx *= n.ex.p11
	s.IIn = n.in.p21*s.DIIn + n.in.p22*s.IIn
	s.DIIn *= n.in.p11

	var exWeight, inWeight, current float64
	for _, e := range delivered {
		switch e.Payload {
		case PayloadSpike:
			if e.Weight >= 0 {
				exWeight += e.Weight
			} else {
				inWeight += e.Weight
			}
		case PayloadCurrent:
			current += e.Weight * e.Amplitude
		}
	}

	s.DIEx += n.ex.initial * exWeight
	s.DIIn += n.in.initial * inWeight

	spiked := false
	if s.V >= n.theta {
		s.Refractory = n.refractorySteps
		s.V = n.vReset
		spiked = true
	}

	s.IStim = current

	if !finite(s.V, s.DIEx, s.IEx, s.DIIn, s.IIn, s.IStim) {
		return s, false, n.fault(s)
	}

	return s, spiked, nil
}

func (n *Neuron) fault(s NeuronState) error {
	return simerr.Integrationf(
		"%s %d: state is no longer finite (V_m=%g, I_syn_ex=%g, I_syn_in=%g)",
		n.model, n.id, s.V+n.params.EL, s.IEx, s.IIn)
}

// Commit makes s the committed state.
func (n *Neuron) Commit(s NeuronState) {
	n.state = s
}

// Observe reads a variable from a state of this neuron.
func (n *Neuron) Observe(s NeuronState, name string) (float64, bool) {
	switch name {
	case "V_m":
		return s.V + n.params.EL, true
	case "I_syn_ex":
		return s.IEx, true
	case "I_syn_in":
		return s.IIn, true
	default:
		return 0, false
	}
}

// Status reports parameters and the membrane potential.
func (n *Neuron) Status() Params {
	p := n.params

	return Params{
		"model":      n.model,
		"C_m":        p.CM,
		"tau_m":      p.TauM,
		"t_ref":      p.TRef,
		"E_L":        p.EL,
		"V_th":       p.VTh,
		"V_reset":    p.VReset,
		"V_min":      p.VMin,
		"tau_syn_ex": p.TauSynEx,
		"tau_syn_in": p.TauSynIn,
		"I_e":        p.IE,
		"V_m":        n.state.V + p.EL,
		"I_syn_ex":   n.state.IEx,
		"I_syn_in":   n.state.IIn,
	}
}

// SetStatus changes parameters and, through V_m, the membrane potential.
// Changing E_L keeps the absolute membrane potential.
func (n *Neuron) SetStatus(p Params) error {
	params := n.params
	vm := n.state.V + params.EL

	r := newParamReader(IAFPscAlphaModel, p)
	params.read(r)
	r.float("V_m", &vm)
	r.readOnly("model", n.model)
	r.readOnly("I_syn_ex", n.state.IEx)
	r.readOnly("I_syn_in", n.state.IIn)

	if err := r.done(); err != nil {
		return err
	}

	if err := params.validate(); err != nil {
		return err
	}

	updated := *n
	updated.params = params

	if err := updated.calibrate(); err != nil {
		return err
	}

	updated.state.V = vm - params.EL
	*n = updated

	return nil
}
